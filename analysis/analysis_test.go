package analysis_test

import (
	"math"
	"testing"

	"github.com/printqueue/analysis/analysis"
)

func TestTotalDuration(t *testing.T) {
	tests := []struct {
		name string
		p    analysis.Params
		want uint64
	}{
		{"two windows", analysis.Params{Alpha: 1, K: 2, T: 2, TB0: 2, Z: 1}, 48},
		{"single window", analysis.Params{Alpha: 1, K: 2, T: 1, TB0: 2, Z: 1}, 16},
		{"alpha two", analysis.Params{Alpha: 2, K: 2, T: 2, TB0: 2, Z: 1}, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.TotalDuration(); got != tt.want {
				t.Errorf("TotalDuration() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCoefficients(t *testing.T) {
	// The z = 1 limit: every cell write succeeds, counts pass through
	// unscaled in every window.
	p := analysis.Params{Alpha: 1, K: 2, T: 3, TB0: 2, Z: 1}
	for i, c := range p.Coefficients() {
		if c != 1 {
			t.Errorf("coeff[%d] = %v, want 1", i, c)
		}
	}

	// z = 0.5: p = 0.75, step = 0.5*(1-0.75^2)/(0.25*2) = 0.4375.
	p = analysis.Params{Alpha: 1, K: 2, T: 2, TB0: 2, Z: 0.5}
	coeff := p.Coefficients()
	if coeff[0] != 1 {
		t.Errorf("coeff[0] = %v, want 1", coeff[0])
	}
	if math.Abs(coeff[1]-0.4375) > 1e-12 {
		t.Errorf("coeff[1] = %v, want 0.4375", coeff[1])
	}
}

func TestCoefficientsNonIncreasing(t *testing.T) {
	p := analysis.Params{Alpha: 1, K: 10, T: 5, TB0: 7, Z: 0.8}
	coeff := p.Coefficients()
	if coeff[0] != 1 {
		t.Fatalf("coeff[0] = %v, want 1", coeff[0])
	}
	for i := 1; i < len(coeff); i++ {
		if coeff[i] > coeff[i-1] {
			t.Errorf("coeff[%d] = %v exceeds coeff[%d] = %v", i, coeff[i], i-1, coeff[i-1])
		}
	}
}

func TestCIDBits(t *testing.T) {
	p := analysis.Params{Alpha: 1, K: 2, T: 2, TB0: 2, Z: 1}
	if got := p.CIDBits(0); got != 28 {
		t.Errorf("CIDBits(0) = %d, want 28", got)
	}
	if got := p.CIDBits(1); got != 27 {
		t.Errorf("CIDBits(1) = %d, want 27", got)
	}
	if got := p.TTSBits(); got != 30 {
		t.Errorf("TTSBits() = %d, want 30", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       analysis.Params
		wantErr bool
	}{
		{"valid", analysis.Params{Alpha: 1, K: 10, T: 3, TB0: 7, Z: 1}, false},
		{"zero T", analysis.Params{Alpha: 1, K: 10, T: 0, TB0: 7, Z: 1}, true},
		{"z out of range", analysis.Params{Alpha: 1, K: 10, T: 3, TB0: 7, Z: 1.5}, true},
		{"z zero", analysis.Params{Alpha: 1, K: 10, T: 3, TB0: 7, Z: 0}, true},
		{"cid bits exhausted", analysis.Params{Alpha: 8, K: 10, T: 3, TB0: 7, Z: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// Package analysis provides the core types shared across packages: the
// immutable run parameters supplied by the data plane configuration, flow
// identifiers, flow count aggregates, and typed processing errors.
package analysis

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned during ingest. Malformed input is always fatal to the
// ingest of the offending file; callers decide whether to abort the run.
var (
	ErrMalformedInput  = errors.New("malformed input")
	ErrTruncatedRecord = errors.New("truncated record")
	ErrEmptySnapshot   = errors.New("snapshot has no used cells")
	ErrBadFileName     = errors.New("file name is not timestamp-formatted")
)

// ProcessingError extends error to provide a datatype and detail for
// metrics, plus a code usable by callers that surface HTTP status.
type ProcessingError interface {
	DataType() string
	Detail() string
	Code() int
	error
}

type processingError struct {
	dataType string
	detail   string
	code     int
	err      error
}

func (p processingError) DataType() string { return p.dataType }
func (p processingError) Detail() string   { return p.detail }
func (p processingError) Code() int        { return p.code }
func (p processingError) Error() string {
	return fmt.Sprintf("%s (datatype: %s, detail: %s)", p.err.Error(), p.dataType, p.detail)
}
func (p processingError) Unwrap() error { return p.err }

// NewError creates a ProcessingError wrapping err.
func NewError(dataType, detail string, code int, err error) ProcessingError {
	return processingError{dataType, detail, code, err}
}

// Params holds the per-run configuration of the time window cascade. The
// values must match the data plane that produced the register snapshots.
type Params struct {
	Alpha int     // compression factor between adjacent windows, >= 1
	K     int     // log2 cells per window, >= 1
	T     int     // number of windows, >= 1
	TB0   int     // trimmed bits of window 0
	Z     float64 // per-cycle cell write probability in window 0, in (0, 1]

	// SignalTolerance is the match slack, in window ticks, used when
	// correlating data plane signals against decoded cells. Zero means
	// the default of 5.
	SignalTolerance uint32
}

// Validate returns an error when the parameters are out of range or the
// tts bit budget is exhausted before the last window.
func (p Params) Validate() error {
	if p.Alpha < 1 || p.K < 1 || p.T < 1 || p.TB0 < 1 {
		return fmt.Errorf("%w: alpha, k, T, TB0 must be positive", ErrMalformedInput)
	}
	if p.Z <= 0 || p.Z > 1 {
		return fmt.Errorf("%w: z must be in (0, 1]", ErrMalformedInput)
	}
	if p.CIDBits(p.T-1) <= 0 {
		return fmt.Errorf("%w: no cycle-id bits left in window %d", ErrMalformedInput, p.T-1)
	}
	return nil
}

// IndexCount returns the number of cells per window, 2^k.
func (p Params) IndexCount() int { return 1 << p.K }

// TTSBits returns the bit width of the trimmed timestamp field, 32-TB0.
func (p Params) TTSBits() int { return 32 - p.TB0 }

// TB returns the trimmed bits of window w: one tts tick of window w
// spans 2^TB(w) nanoseconds.
func (p Params) TB(w int) int { return p.TB0 + p.Alpha*w }

// CIDBits returns the number of meaningful cycle-id bits of window w.
func (p Params) CIDBits(w int) int { return 32 - p.TB0 - p.K - p.Alpha*w }

// Tolerance returns the effective signal match tolerance.
func (p Params) Tolerance() uint32 {
	if p.SignalTolerance == 0 {
		return 5
	}
	return p.SignalTolerance
}

// TotalDuration returns the period covered by one complete set, in
// nanoseconds: ((2^(alpha*T) - 1)/(2^alpha - 1)) * 2^(TB0+k).
func (p Params) TotalDuration() uint64 {
	num := uint64(1)<<(p.Alpha*p.T) - 1
	den := uint64(1)<<p.Alpha - 1
	return num / den * (uint64(1) << (p.TB0 + p.K))
}

// Coefficients returns the per-window sampling coefficients used to scale
// raw cell counts into packet count estimates. Index i scales window i.
//
// With z == 1 every cell write succeeds and every window reports
// unscaled counts; otherwise the coefficients attenuate per window.
func (p Params) Coefficients() []float64 {
	coeff := make([]float64, p.T)
	coeff[0] = 1
	if p.Z == 1 {
		for i := 1; i < p.T; i++ {
			coeff[i] = 1
		}
		return coeff
	}
	z := p.Z
	pr := 1 - z*z
	co := 1.0
	m := float64(int(1) << p.Alpha)
	for i := 1; i < p.T; i++ {
		step := z * (1 - math.Pow(pr, m)) / ((1 - pr) * m)
		co *= step
		coeff[i] = co
		z = 1 - math.Pow(pr, m)
		pr = 1 - z*z
	}
	return coeff
}

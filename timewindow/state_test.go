package timewindow_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/printqueue/analysis/timewindow"
)

func TestStateRoundTrip(t *testing.T) {
	d := twoWindowDecoder(t)

	var buf bytes.Buffer
	if err := d.SaveState(&buf); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}
	restored, err := timewindow.LoadState(buf.Bytes())
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}

	if diff := cmp.Diff(d.Sets(), restored.Sets()); diff != "" {
		t.Errorf("sets mismatch after round trip (-want +got):\n%s", diff)
	}
	if restored.Wrap() != d.Wrap() {
		t.Errorf("wrap = %d, want %d", restored.Wrap(), d.Wrap())
	}

	// The restored decoder answers queries identically.
	set := d.Sets()[0]
	want := d.Retrieve(set.STS, set.LTS).Flows
	got := restored.Retrieve(set.STS, set.LTS).Flows
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("query mismatch after round trip (-want +got):\n%s", diff)
	}
}

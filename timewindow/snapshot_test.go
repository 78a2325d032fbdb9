package timewindow_test

import (
	"errors"
	"testing"

	"github.com/printqueue/analysis/analysis"
	"github.com/printqueue/analysis/timewindow"
)

func TestDecodeSnapshot(t *testing.T) {
	data := buildSnapshot(testParams, []cellSpec{
		{window: 0, slot: 1, tts: 5, fid: "aabbccddeeff1122"},
		{window: 1, slot: 2, tts: 9, fid: "0a0000010a000002"},
	})

	s, err := timewindow.DecodeSnapshot(testParams, 0, 12, 34, data)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if got := s.Windows[0][1]; got.TTS != 5 || got.Fid != mustFid("aabbccddeeff1122") {
		t.Errorf("window 0 slot 1 = %+v, want tts 5 fid aabbccddeeff1122", got)
	}
	if got := s.Windows[1][2]; got.TTS != 9 || got.Fid != mustFid("0a0000010a000002") {
		t.Errorf("window 1 slot 2 = %+v, want tts 9 fid 0a0000010a000002", got)
	}
	if !s.Windows[0][0].Fid.IsZero() {
		t.Errorf("untouched slot has fid %v, want zero", s.Windows[0][0].Fid)
	}
	if s.Sec != 12 || s.Usec != 34 {
		t.Errorf("snapshot time = %d_%d, want 12_34", s.Sec, s.Usec)
	}
}

func TestDecodeSnapshotBadLength(t *testing.T) {
	data := buildSnapshot(testParams, nil)
	_, err := timewindow.DecodeSnapshot(testParams, 0, 0, 0, data[:len(data)-4])
	if !errors.Is(err, analysis.ErrMalformedInput) {
		t.Errorf("DecodeSnapshot() error = %v, want ErrMalformedInput", err)
	}
}

func TestDecodeSnapshotAllUnused(t *testing.T) {
	// A file dumped before the first data plane write decodes to the
	// empty sentinel, and the reader drops it.
	data := buildSnapshot(testParams, nil)
	_, err := timewindow.DecodeSnapshot(testParams, 0, 0, 0, data)
	if !errors.Is(err, analysis.ErrEmptySnapshot) {
		t.Errorf("DecodeSnapshot() error = %v, want ErrEmptySnapshot", err)
	}
}

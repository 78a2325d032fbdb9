package timewindow

import (
	"time"

	"github.com/m-lab/go/logx"

	"github.com/printqueue/analysis/analysis"
	"github.com/printqueue/analysis/metrics"
)

var logStall = logx.NewLogEvery(nil, 30*time.Second)

// WrapTracker reconstructs the global 32-bit rollover count of the
// dequeue clock. The data plane never exports an absolute time, so the
// only evidence of a rollover is a burst jump in the trimmed timestamps
// of window 0: a numerically smaller tts that sits within a small band
// above zero while the previous largest sits within the same band below
// the wrap point.
type WrapTracker struct {
	p           analysis.Params
	wrap        uint32
	prevLargest uint32
}

// NewWrapTracker returns a tracker starting at wrap zero.
func NewWrapTracker(p analysis.Params) *WrapTracker {
	return &WrapTracker{p: p}
}

// Wrap returns the current rollover count.
func (t *WrapTracker) Wrap() uint32 { return t.wrap }

// Observe scans window 0 of a snapshot for the largest trimmed
// timestamp, advancing the rollover counter when a wrap is evident
// either within the window or across the snapshot boundary. It returns
// the largest tts, its slot index, and the rollover count that applies
// to this snapshot. ok is false when window 0 holds no used cell; the
// snapshot then contributes an empty set and the counter is untouched.
func (t *WrapTracker) Observe(s *Snapshot) (largest uint32, idx int, wrap uint32, ok bool) {
	ttsBit := t.p.TTSBits()
	// Threshold between a plausible in-burst step and a rollover jump.
	thetaBit := (ttsBit + t.p.K) / 2
	theta := int64(1) << thetaBit
	modulus := int64(1) << ttsBit

	w0 := s.Windows[0]
	found := false
	wrappedOnce := false
	for j := range w0 {
		if w0[j].Fid.IsZero() {
			continue
		}
		b := w0[j].TTS
		if !found {
			largest, idx, found = b, j, true
			continue
		}
		if b > largest {
			if modulus+int64(largest)-int64(b) > theta {
				largest, idx = b, j
			}
			// Otherwise b is a pre-wrap leftover: numerically larger
			// but older than the current largest.
		} else if modulus+int64(b)-int64(largest) < theta {
			// b re-entered from zero: the clock rolled over.
			largest, idx = b, j
			t.wrap++
			wrappedOnce = true
		}
	}
	if !found {
		return 0, 0, t.wrap, false
	}

	if !wrappedOnce {
		if modulus+int64(largest)-int64(t.prevLargest) < theta {
			// The rollover happened between this snapshot and the
			// previous one.
			t.wrap++
		} else if largest < t.prevLargest {
			logStall.Printf("snapshot %d_%d: largest tts %d below previous %d without wrap; registers idle",
				s.Sec, s.Usec, largest, t.prevLargest)
			metrics.WrapAnomalyCount.Inc()
		}
	}
	t.prevLargest = largest
	metrics.WrapCount.Set(float64(t.wrap))
	return largest, idx, t.wrap, true
}

package timewindow

import (
	"encoding/binary"
	"fmt"
	"net/http"

	"github.com/printqueue/analysis/analysis"
	"github.com/printqueue/analysis/metrics"
	"github.com/printqueue/analysis/storage"
)

// signalRecordSize is the on-wire record width: type, enqueue and
// dequeue timestamps, all 32-bit little-endian.
const signalRecordSize = 12

// Signal is a data plane query-result record lifted onto the 64-bit
// timeline.
type Signal struct {
	Type  uint32 `json:"type"`
	Enq64 uint64 `json:"enqueue_ts"`
	Deq64 uint64 `json:"dequeue_ts"`
}

// SignalStats reports how the correlation pass fared.
type SignalStats struct {
	Matched  int // matched in the candidate set
	Fallback int // matched in the preceding set
	Dropped  int // no enclosing cell found
}

// Signals returns the correlated signals in file order.
func (d *Decoder) Signals() []Signal { return d.signals }

// SignalStats returns the correlation counters.
func (d *Decoder) SignalStats() SignalStats {
	return SignalStats{d.signalMatched, d.signalFallback, d.signalDropped}
}

// LoadSignals reads every signal file under dir in timestamp order and
// correlates the records against the decoded sets. Snapshots must be
// loaded first.
func (d *Decoder) LoadSignals(dir string) error {
	files, err := storage.ListTimestamped(dir)
	if err != nil {
		return analysis.NewError("signal", "list", http.StatusInternalServerError, err)
	}
	for _, f := range files {
		data, err := storage.ReadAll(f.Path)
		if err != nil {
			metrics.FileCount.WithLabelValues("signal", "error").Inc()
			return analysis.NewError("signal", f.Name, http.StatusInternalServerError, err)
		}
		if err := d.CorrelateSignalFile(f.Sec, f.Usec, data); err != nil {
			metrics.FileCount.WithLabelValues("signal", "error").Inc()
			return analysis.NewError("signal", f.Name, http.StatusBadRequest, err)
		}
		metrics.FileCount.WithLabelValues("signal", "ok").Inc()
	}
	return nil
}

// CorrelateSignalFile lifts each record in one signal file onto the
// 64-bit timeline. The file's write time selects the candidate set; a
// record that matches no cell there is retried against the preceding
// set and dropped if still unmatched.
func (d *Decoder) CorrelateSignalFile(sec, usec int64, data []byte) error {
	if len(data)%signalRecordSize != 0 {
		return fmt.Errorf("%w: signal file is %d bytes", analysis.ErrTruncatedRecord, len(data))
	}

	// Default to the first set when no write time matches, as when the
	// controller dumped signals before the first snapshot rotation.
	candidate := 0
	for i, set := range d.sets {
		if set.Sec == sec && set.Usec == usec {
			candidate = i
			break
		}
	}

	for off := 0; off < len(data); off += signalRecordSize {
		typ := binary.LittleEndian.Uint32(data[off:])
		enq32 := binary.LittleEndian.Uint32(data[off+4:])
		deq32 := binary.LittleEndian.Uint32(data[off+8:])

		sig, ok := d.liftSignal(candidate, typ, enq32, deq32)
		switch {
		case ok:
			d.signalMatched++
			metrics.SignalCount.WithLabelValues("matched").Inc()
		case candidate > 0:
			sig, ok = d.liftSignal(candidate-1, typ, enq32, deq32)
			if ok {
				d.signalFallback++
				metrics.SignalCount.WithLabelValues("fallback").Inc()
			}
		}
		if !ok {
			d.signalDropped++
			metrics.SignalCount.WithLabelValues("dropped").Inc()
			continue
		}
		d.signals = append(d.signals, sig)
	}
	return nil
}

// liftSignal searches one set for a cell whose trimmed timestamp agrees
// with the signal's dequeue time at that cell's resolution. The matched
// cell's wrap count anchors the signal on the 64-bit timeline.
func (d *Decoder) liftSignal(setIdx int, typ, enq32, deq32 uint32) (Signal, bool) {
	if setIdx < 0 || setIdx >= len(d.sets) {
		return Signal{}, false
	}
	tol := int64(d.p.Tolerance())
	for _, c := range d.sets[setIdx].Cells {
		tb := d.p.TB(int(c.Window))
		diff := int64(deq32>>tb) - int64(c.TTS)
		if diff <= -tol || diff >= tol {
			continue
		}
		deqWrap := int64(c.Wrap)
		enqWrap := deqWrap
		if enq32 >= deq32 {
			// The packet was enqueued before the rollover the dequeue
			// clock has already taken.
			enqWrap--
		}
		if enqWrap < 0 {
			return Signal{}, false
		}
		return Signal{
			Type:  typ,
			Enq64: uint64(enq32) + uint64(enqWrap)<<32,
			Deq64: uint64(deq32) + uint64(deqWrap)<<32,
		}, true
	}
	return Signal{}, false
}

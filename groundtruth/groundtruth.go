// Package groundtruth ingests the INT tap stream: one 20-byte record per
// packet that traversed the monitored queue, with 32-bit wrapping
// enqueue and dequeue timestamps repaired onto the 64-bit timeline.
package groundtruth

import (
	"encoding/binary"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/printqueue/analysis/analysis"
	"github.com/printqueue/analysis/metrics"
	"github.com/printqueue/analysis/storage"
)

const (
	recordSize = 20

	// trimCount is the number of records discarded at each end of the
	// stream. The tap warms up and drains with partial data.
	trimCount = 10

	// noiseThreshold separates a genuine 32-bit rollover from an
	// out-of-order record: the clock cannot step back almost a full
	// wrap between adjacent packets unless it rolled over.
	noiseThreshold = 4000000000
)

// Record is one repaired tap record.
type Record struct {
	Enq64 uint64
	Deq64 uint64
	QLen  uint32
	Fid   analysis.Fid
}

// Delay returns the packet's queuing delay.
func (r Record) Delay() uint64 { return r.Deq64 - r.Enq64 }

// Stats summarizes a finalized stream.
type Stats struct {
	PacketCount     int
	FirstEnq        uint64
	LastEnq         uint64
	FirstDeq        uint64
	LastDeq         uint64
	EnqueueTotal    uint64 // LastEnq - FirstEnq
	DequeueTotal    uint64 // LastDeq - FirstDeq
	AverageQueueLen float64
	AverageInterval float64 // mean inter-departure gap, ns
}

// Stream holds the repaired tap records in arrival order.
type Stream struct {
	records []Record

	// repair state, carried across files
	baseEnq, baseDeq uint64
	pEnq, pDeq       uint64
	warmupSeen       int
	finalized        bool
}

// NewStream returns an empty stream ready for ingest.
func NewStream() *Stream { return &Stream{} }

// Records returns the repaired records. Valid after Finalize.
func (st *Stream) Records() []Record { return st.records }

// LoadDirectory ingests every tap file under dir in name order and
// finalizes the stream. Tap files carry no structured name, so plain
// lexical order stands in for write order.
func (st *Stream) LoadDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return analysis.NewError("groundtruth", "list", http.StatusInternalServerError, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := storage.ReadAll(filepath.Join(dir, e.Name()))
		if err != nil {
			metrics.FileCount.WithLabelValues("groundtruth", "error").Inc()
			return analysis.NewError("groundtruth", e.Name(), http.StatusInternalServerError, err)
		}
		if err := st.Ingest(data); err != nil {
			metrics.FileCount.WithLabelValues("groundtruth", "error").Inc()
			return analysis.NewError("groundtruth", e.Name(), http.StatusBadRequest, err)
		}
		metrics.FileCount.WithLabelValues("groundtruth", "ok").Inc()
	}
	st.Finalize()
	s := st.Stats()
	log.Printf("Loaded %d ground truth records from %s (dequeue span %d ns)",
		s.PacketCount, dir, s.DequeueTotal)
	return nil
}

// Ingest parses one tap file. The first record of each file only seeds
// the previous-timestamp state; it is never emitted.
func (st *Stream) Ingest(data []byte) error {
	if len(data)%recordSize != 0 {
		return fmt.Errorf("%w: tap file is %d bytes", analysis.ErrTruncatedRecord, len(data))
	}
	if len(data) == 0 {
		return nil
	}

	deq32 := binary.BigEndian.Uint32(data[0:4])
	enq32 := binary.BigEndian.Uint32(data[4:8])
	st.pDeq = uint64(deq32) + st.baseDeq
	st.pEnq = uint64(enq32) + st.baseEnq
	if st.pEnq > st.pDeq {
		st.baseDeq += 1 << 32
		st.pDeq += 1 << 32
	}

	for off := recordSize; off < len(data); off += recordSize {
		deq := uint64(binary.BigEndian.Uint32(data[off:])) + st.baseDeq
		enq := uint64(binary.BigEndian.Uint32(data[off+4:])) + st.baseEnq
		qlen := binary.BigEndian.Uint32(data[off+8:])
		var fid analysis.Fid
		copy(fid[:], data[off+12:off+20])

		if st.warmupSeen < trimCount {
			st.warmupSeen++
			st.pDeq = deq
			st.pEnq = enq
			metrics.GroundTruthRecords.WithLabelValues("warmup").Inc()
			continue
		}

		deq, enq, keep := st.repair(deq, enq)
		if !keep {
			metrics.GroundTruthRecords.WithLabelValues("noise").Inc()
			continue
		}
		st.records = append(st.records, Record{Enq64: enq, Deq64: deq, QLen: qlen, Fid: fid})
		metrics.GroundTruthRecords.WithLabelValues("ok").Inc()
		st.pDeq = deq
		st.pEnq = enq
	}
	return nil
}

// repair applies the wrap state machine to one record. A dequeue time
// below its enqueue time means the dequeue counter rolled over while
// the packet sat in the queue; a step backwards within the noise
// threshold is an out-of-order record and is dropped.
func (st *Stream) repair(deq, enq uint64) (uint64, uint64, bool) {
	if enq > deq {
		st.baseDeq += 1 << 32
		deq += 1 << 32
	}
	if deq < st.pDeq {
		if st.pDeq-deq > noiseThreshold {
			st.baseDeq += 1 << 32
			deq += 1 << 32
		} else {
			return 0, 0, false
		}
	}
	if enq < st.pEnq {
		if st.pEnq-enq > noiseThreshold {
			st.baseEnq += 1 << 32
			enq += 1 << 32
		} else {
			return 0, 0, false
		}
	}
	return deq, enq, true
}

// Finalize trims the cool-down tail. Further Ingest calls are invalid.
func (st *Stream) Finalize() {
	if st.finalized {
		return
	}
	st.finalized = true
	if len(st.records) <= trimCount {
		st.records = nil
		return
	}
	st.records = st.records[:len(st.records)-trimCount]
}

// Stats computes summary statistics over the finalized stream.
func (st *Stream) Stats() Stats {
	var s Stats
	s.PacketCount = len(st.records)
	if s.PacketCount == 0 {
		return s
	}
	first := st.records[0]
	last := st.records[s.PacketCount-1]
	s.FirstEnq, s.LastEnq = first.Enq64, last.Enq64
	s.FirstDeq, s.LastDeq = first.Deq64, last.Deq64
	s.EnqueueTotal = s.LastEnq - s.FirstEnq
	s.DequeueTotal = s.LastDeq - s.FirstDeq

	var sumQLen uint64
	var sumInterval uint64
	prev := first.Deq64
	for i, r := range st.records {
		sumQLen += uint64(r.QLen)
		if i > 0 {
			sumInterval += r.Deq64 - prev
			prev = r.Deq64
		}
	}
	s.AverageQueueLen = float64(sumQLen) / float64(s.PacketCount)
	if s.PacketCount > 1 {
		s.AverageInterval = float64(sumInterval) / float64(s.PacketCount-1)
	}
	return s
}

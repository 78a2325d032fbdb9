// Package qmon decodes the queue monitor register dumps: per-slot flow
// id and sequence number snapshots of the egress queue stack, spliced
// across files into a consistent view of the queue contents over time.
package qmon

import (
	"encoding/binary"
	"fmt"
	"log"
	"net/http"

	"github.com/printqueue/analysis/analysis"
	"github.com/printqueue/analysis/metrics"
	"github.com/printqueue/analysis/storage"
)

// Slot is one register slot of a raw dump.
type Slot struct {
	Fid  analysis.Fid
	Seq  uint32
	Wrap uint32
}

// Seq64 returns the slot's sequence number lifted by the wrap counter.
func (s Slot) Seq64() uint64 { return uint64(s.Seq) + uint64(s.Wrap)<<32 }

// Entry is one live slot of a reconstructed queue stack.
type Entry struct {
	Index int
	Fid   analysis.Fid
	Seq   uint64
}

// Result is the reconstructed queue at one dump time. QDepth is the
// index of the deepest live slot, zero for an empty queue.
type Result struct {
	Sec     int64
	Usec    int64
	QDepth  int
	Entries []Entry
}

// Monitor ingests queue monitor dumps and reconstructs the stack per
// file. The wrap flag in each file name counts sequence rollovers that
// happened during the controller's read.
type Monitor struct {
	maxDepth int
	wrap     uint32
	lastSeq  int64 // largest Seq64 accepted so far; -1 before any

	results []Result
}

// NewMonitor returns a monitor for a queue of the given maximum depth.
func NewMonitor(maxDepth int) *Monitor {
	return &Monitor{maxDepth: maxDepth, lastSeq: -1}
}

// Results returns the reconstructed stacks in dump order.
func (m *Monitor) Results() []Result { return m.results }

// LoadDirectory ingests every dump under dir in timestamp order.
func (m *Monitor) LoadDirectory(dir string) error {
	files, err := storage.ListTimestamped(dir)
	if err != nil {
		return analysis.NewError("queuemonitor", "list", http.StatusInternalServerError, err)
	}
	for _, f := range files {
		data, err := storage.ReadAll(f.Path)
		if err != nil {
			metrics.FileCount.WithLabelValues("queuemonitor", "error").Inc()
			return analysis.NewError("queuemonitor", f.Name, http.StatusInternalServerError, err)
		}
		if err := m.Ingest(f.Sec, f.Usec, f.Flag, data); err != nil {
			metrics.FileCount.WithLabelValues("queuemonitor", "error").Inc()
			return analysis.NewError("queuemonitor", f.Name, http.StatusBadRequest, err)
		}
		metrics.FileCount.WithLabelValues("queuemonitor", "ok").Inc()
	}
	log.Printf("Loaded %d queue monitor dumps from %s", len(m.results), dir)
	return nil
}

// Ingest decodes one dump and splices it against the previous result.
// wrapFlag is the third file name field: 1 when the sequence counter
// rolled over during the dump.
func (m *Monitor) Ingest(sec, usec int64, wrapFlag int, data []byte) error {
	if wrapFlag == 1 {
		m.wrap++
	}
	slots, err := m.decode(data)
	if err != nil {
		return err
	}
	res := Result{Sec: sec, Usec: usec}
	if len(m.results) == 0 {
		res.Entries = m.filterFirst(slots)
	} else {
		res.Entries = m.splice(m.results[len(m.results)-1].Entries, slots)
	}
	if len(res.Entries) > 0 {
		res.QDepth = res.Entries[len(res.Entries)-1].Index
	}
	m.results = append(m.results, res)
	return nil
}

// decode parses the three register blocks: src addresses, dst
// addresses, then sequence numbers, each maxDepth little-endian words.
func (m *Monitor) decode(data []byte) ([]Slot, error) {
	want := 3 * m.maxDepth * 4
	if len(data) != want {
		return nil, fmt.Errorf("%w: queue monitor dump is %d bytes, want %d", analysis.ErrMalformedInput, len(data), want)
	}
	slots := make([]Slot, m.maxDepth)
	for j := 0; j < m.maxDepth; j++ {
		src := binary.LittleEndian.Uint32(data[4*j:])
		dst := binary.LittleEndian.Uint32(data[4*(m.maxDepth+j):])
		slots[j].Fid = analysis.FidFromWords(src, dst)
		slots[j].Seq = binary.LittleEndian.Uint32(data[4*(2*m.maxDepth+j):])
		slots[j].Wrap = m.wrap
	}
	return slots, nil
}

// filterFirst keeps the slots of the first dump whose sequence numbers
// strictly increase: later writes overwrite the stack from the bottom,
// so a non-increasing sequence marks stale data above the queue head.
func (m *Monitor) filterFirst(slots []Slot) []Entry {
	var out []Entry
	for i, s := range slots {
		if s.Fid.IsZero() {
			continue
		}
		if int64(s.Seq64()) > m.lastSeq {
			out = append(out, Entry{Index: i, Fid: s.Fid, Seq: s.Seq64()})
			m.lastSeq = int64(s.Seq64())
		}
	}
	return out
}

// splice reconstructs the current stack from the previous result. The
// previous entries stand until the first slot holding a later sequence
// number appears; from there the tail is rescanned for updates.
func (m *Monitor) splice(prev []Entry, slots []Slot) []Entry {
	allEmpty := true
	for _, s := range slots {
		if !s.Fid.IsZero() {
			allEmpty = false
			break
		}
	}
	if allEmpty {
		return nil
	}

	var out []Entry
	j := 0
	found := false
	for _, item := range prev {
		for j <= item.Index {
			s := slots[j]
			if !s.Fid.IsZero() && int64(s.Seq64()) > m.lastSeq {
				m.lastSeq = int64(s.Seq64())
				out = append(out, Entry{Index: j, Fid: s.Fid, Seq: s.Seq64()})
				j++
				found = true
				break
			}
			j++
		}
		if found {
			break
		}
		out = append(out, item)
	}
	for z := j; z < len(slots); z++ {
		s := slots[z]
		if !s.Fid.IsZero() && int64(s.Seq64()) > m.lastSeq {
			m.lastSeq = int64(s.Seq64())
			out = append(out, Entry{Index: z, Fid: s.Fid, Seq: s.Seq64()})
		}
	}
	return out
}

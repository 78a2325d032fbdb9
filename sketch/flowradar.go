package sketch

import (
	"fmt"

	"github.com/printqueue/analysis/analysis"
)

// flowRadarHashes is the number of cells each flow occupies.
const flowRadarHashes = 3

type radarCell struct {
	fn     int64  // distinct flows folded into the cell
	pn     int64  // packets folded into the cell
	fidXor uint64 // XOR of the folded flow ids
}

// FlowRadar is a counting Bloom filter variant whose cells can be
// decoded back into exact per-flow counts while singleton cells remain.
type FlowRadar struct {
	hash  *HashRows
	cells []radarCell
	seen  []bool
}

// NewFlowRadar allocates a table of the given cell count.
func NewFlowRadar(hash *HashRows, cells int) (*FlowRadar, error) {
	if cells < flowRadarHashes {
		return nil, fmt.Errorf("%w: flowradar cells %d", analysis.ErrMalformedInput, cells)
	}
	return &FlowRadar{hash: hash, cells: make([]radarCell, cells), seen: make([]bool, cells)}, nil
}

func (fr *FlowRadar) positions(fid analysis.Fid) [flowRadarHashes]int {
	var pos [flowRadarHashes]int
	for i := 0; i < flowRadarHashes; i++ {
		pos[i] = int(fr.hash.Sum(i, fid[:])) % len(fr.cells)
	}
	return pos
}

// Insert adds n packets of the flow. The first-seen bit array decides
// whether the flow id is folded in or only the packet counters bumped.
func (fr *FlowRadar) Insert(fid analysis.Fid, n int64) {
	pos := fr.positions(fid)
	set := 0
	for _, j := range pos {
		if fr.seen[j] {
			set++
		}
		fr.seen[j] = true
	}
	if set == flowRadarHashes {
		// All bits were already set: treat as a known flow.
		for _, j := range pos {
			fr.cells[j].pn += n
		}
		return
	}
	for _, j := range pos {
		fr.cells[j].fn++
		fr.cells[j].pn += n
		fr.cells[j].fidXor ^= fid.Uint64()
	}
}

// InsertFlows loads a whole flow list.
func (fr *FlowRadar) InsertFlows(flows analysis.FlowCounts) {
	for _, f := range flows {
		fr.Insert(f.Fid, f.Count)
	}
}

// Decode peels singleton cells until none remain, returning the
// recovered flows in descending count order. Decoding is destructive.
func (fr *FlowRadar) Decode() analysis.FlowCounts {
	m := make(map[analysis.Fid]int64)
	for {
		progress := false
		for i := range fr.cells {
			if fr.cells[i].fn != 1 {
				continue
			}
			fid := analysis.FidFromUint64(fr.cells[i].fidXor)
			count := fr.cells[i].pn
			m[fid] = count
			progress = true
			for _, j := range fr.positions(fid) {
				fr.cells[j].fn--
				fr.cells[j].pn -= count
				fr.cells[j].fidXor ^= fid.Uint64()
			}
		}
		if !progress {
			break
		}
	}
	return analysis.SortedFlows(m)
}

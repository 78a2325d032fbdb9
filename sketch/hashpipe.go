package sketch

import (
	"fmt"

	"github.com/printqueue/analysis/analysis"
)

type pipeCell struct {
	fid analysis.Fid
	n   int64
}

// HashPipe tracks heavy flows through S pipeline stages of N cells.
// A packet always claims its stage-0 cell; the evicted incumbent walks
// down the pipeline, merging on a match, settling into an empty cell,
// or swapping with a smaller incumbent and carrying it further.
type HashPipe struct {
	hash   *HashRows
	stages [][]pipeCell
	used   [][]bool
	cells  int
}

// NewHashPipe allocates a pipe with the given stage count and cells per
// stage. Each stage consumes one hash row.
func NewHashPipe(hash *HashRows, stages, cells int) (*HashPipe, error) {
	if stages < 1 || stages > NumHashRows {
		return nil, fmt.Errorf("%w: hashpipe stages %d", analysis.ErrMalformedInput, stages)
	}
	if cells < 1 {
		return nil, fmt.Errorf("%w: hashpipe cells %d", analysis.ErrMalformedInput, cells)
	}
	hp := &HashPipe{hash: hash, cells: cells, stages: make([][]pipeCell, stages), used: make([][]bool, stages)}
	for i := range hp.stages {
		hp.stages[i] = make([]pipeCell, cells)
		hp.used[i] = make([]bool, cells)
	}
	return hp, nil
}

// InsertPacket records one packet of the flow.
func (hp *HashPipe) InsertPacket(fid analysis.Fid) {
	idx := int(hp.hash.Sum(0, fid[:])) % hp.cells
	stage0 := &hp.stages[0][idx]
	if !hp.used[0][idx] {
		hp.used[0][idx] = true
		*stage0 = pipeCell{fid, 1}
		return
	}
	if stage0.fid == fid {
		stage0.n++
		return
	}
	carry := *stage0
	*stage0 = pipeCell{fid, 1}

	for i := 1; i < len(hp.stages); i++ {
		idx = int(hp.hash.Sum(i, carry.fid[:])) % hp.cells
		cell := &hp.stages[i][idx]
		if hp.used[i][idx] && cell.fid == carry.fid {
			cell.n += carry.n
			return
		}
		if !hp.used[i][idx] {
			hp.used[i][idx] = true
			*cell = carry
			return
		}
		if cell.n < carry.n {
			*cell, carry = carry, *cell
		}
	}
	// The final carry is dropped: its flow lost every stage.
}

// InsertTrace replays a packet trace.
func (hp *HashPipe) InsertTrace(trace []analysis.Fid) {
	for _, fid := range trace {
		hp.InsertPacket(fid)
	}
}

// Flows aggregates every occupied cell across all stages, descending.
func (hp *HashPipe) Flows() analysis.FlowCounts {
	m := make(map[analysis.Fid]int64)
	for i := range hp.stages {
		for j := range hp.stages[i] {
			if hp.used[i][j] {
				m[hp.stages[i][j].fid] += hp.stages[i][j].n
			}
		}
	}
	return analysis.SortedFlows(m)
}

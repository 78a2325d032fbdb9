package sketch

import (
	"fmt"

	"github.com/printqueue/analysis/analysis"
)

// CountMin is an R x C count-min sketch. C must be a power of two so
// row hashes can be masked instead of reduced.
type CountMin struct {
	hash *HashRows
	rows int
	mask uint16
	data [][]int64
}

// NewCountMin allocates a sketch. rows must not exceed the hash family
// size and cols must be a power of two.
func NewCountMin(hash *HashRows, rows, cols int) (*CountMin, error) {
	if rows < 1 || rows > NumHashRows {
		return nil, fmt.Errorf("%w: count-min rows %d", analysis.ErrMalformedInput, rows)
	}
	if cols < 2 || cols&(cols-1) != 0 || cols > 1<<16 {
		return nil, fmt.Errorf("%w: count-min cols %d must be a power of two", analysis.ErrMalformedInput, cols)
	}
	cm := &CountMin{hash: hash, rows: rows, mask: uint16(cols - 1), data: make([][]int64, rows)}
	for i := range cm.data {
		cm.data[i] = make([]int64, cols)
	}
	return cm, nil
}

// Insert adds n packets of the flow to every row.
func (cm *CountMin) Insert(fid analysis.Fid, n int64) {
	for i := 0; i < cm.rows; i++ {
		cm.data[i][cm.hash.Sum(i, fid[:])&cm.mask] += n
	}
}

// InsertFlows loads a whole flow list.
func (cm *CountMin) InsertFlows(flows analysis.FlowCounts) {
	for _, f := range flows {
		cm.Insert(f.Fid, f.Count)
	}
}

// Query estimates the flow's packet count: the minimum across rows.
func (cm *CountMin) Query(fid analysis.Fid) int64 {
	var smallest int64
	for i := 0; i < cm.rows; i++ {
		v := cm.data[i][cm.hash.Sum(i, fid[:])&cm.mask]
		if i == 0 || v < smallest {
			smallest = v
		}
	}
	return smallest
}

// Estimate queries every flow in the filter list and returns the
// estimates in descending order.
func (cm *CountMin) Estimate(filter analysis.FlowCounts) analysis.FlowCounts {
	m := make(map[analysis.Fid]int64, len(filter))
	for _, f := range filter {
		m[f.Fid] = cm.Query(f.Fid)
	}
	return analysis.SortedFlows(m)
}

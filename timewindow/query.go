package timewindow

import (
	"github.com/printqueue/analysis/analysis"
	"github.com/printqueue/analysis/metrics"
)

// Interval is a closed query interval on the 64-bit timeline.
type Interval struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// QueryResult carries the flows estimated for one interval query plus
// the coverage details callers need to judge the answer.
type QueryResult struct {
	// Flows holds the estimated packet count per flow, descending.
	Flows analysis.FlowCounts

	// Sets lists the decoded sets the query touched, and SubIntervals
	// the portion of the query answered by each. The two are parallel.
	Sets         []*Set
	SubIntervals []Interval

	// DominantWindow is the window that contributed the most distinct
	// flows, or -1 when no set covered the query.
	DominantWindow int

	// Truncated is non-nil when the query extended beyond the last
	// covering set; it names the unanswered tail.
	Truncated *Interval
}

// Empty reports whether no set covered the query at all.
func (r *QueryResult) Empty() bool { return len(r.Sets) == 0 }

// Retrieve estimates the per-flow packet counts within [ts, te]. A
// query that straddles snapshot boundaries is cut into sub-intervals,
// one per covering set; a query beyond the last set returns the covered
// prefix with the tail reported in Truncated.
func (d *Decoder) Retrieve(ts, te uint64) *QueryResult {
	res := &QueryResult{DominantWindow: -1}
	if ts > te {
		metrics.QueryCount.WithLabelValues("empty").Inc()
		return res
	}

	for i, set := range d.sets {
		if !set.Covers(ts) {
			continue
		}
		if te <= set.LTS {
			res.Sets = append(res.Sets, set)
			res.SubIntervals = append(res.SubIntervals, Interval{ts, te})
			break
		}
		res.Sets = append(res.Sets, set)
		res.SubIntervals = append(res.SubIntervals, Interval{ts, set.LTS})
		if i+1 >= len(d.sets) {
			res.Truncated = &Interval{set.LTS, te}
			break
		}
		ts = set.LTS
		if next := d.sets[i+1].STS; next > ts {
			ts = next
		}
	}
	if res.Empty() {
		metrics.QueryCount.WithLabelValues("empty").Inc()
		return res
	}
	if res.Truncated == nil && res.SubIntervals[len(res.SubIntervals)-1].End < te {
		// The walk ran off the end without a set covering the advanced
		// start point.
		res.Truncated = &Interval{res.SubIntervals[len(res.SubIntervals)-1].End, te}
	}

	// Bin live cells by window, counting per flow.
	agg := make([]map[analysis.Fid]int64, d.p.T)
	for i := range agg {
		agg[i] = make(map[analysis.Fid]int64)
	}
	scanned := 0
	for i, set := range res.Sets {
		iv := res.SubIntervals[i]
		for _, c := range set.Cells {
			scanned++
			mid := c.Midpoint(d.p)
			if iv.Start <= mid && mid <= iv.End {
				agg[c.Window][c.Fid]++
			}
		}
	}
	metrics.QueryCellsHistogram.Observe(float64(scanned))

	// The dominant window is the one with the most distinct flows.
	maxFlows := -1
	for w := range agg {
		if len(agg[w]) > maxFlows {
			maxFlows = len(agg[w])
			res.DominantWindow = w
		}
	}

	// Scale raw counts by the per-window sampling coefficients.
	est := make(map[analysis.Fid]int64)
	for w := range agg {
		for fid, n := range agg[w] {
			est[fid] += int64(float64(n) / d.coeff[w])
		}
	}
	res.Flows = analysis.SortedFlows(est)

	if res.Truncated != nil {
		metrics.QueryCount.WithLabelValues("partial").Inc()
	} else {
		metrics.QueryCount.WithLabelValues("ok").Inc()
	}
	return res
}

// RetrieveCells estimates per-flow counts for [ts, te] against an
// explicit cell list, bypassing set selection. Used when replaying a
// stored set or a single set's cells.
func (d *Decoder) RetrieveCells(ts, te uint64, cells []LiveCell) analysis.FlowCounts {
	agg := make([]map[analysis.Fid]int64, d.p.T)
	for i := range agg {
		agg[i] = make(map[analysis.Fid]int64)
	}
	for _, c := range cells {
		mid := c.Midpoint(d.p)
		if ts <= mid && mid <= te {
			agg[c.Window][c.Fid]++
		}
	}
	est := make(map[analysis.Fid]int64)
	for w := range agg {
		for fid, n := range agg[w] {
			est[fid] += int64(float64(n) / d.coeff[w])
		}
	}
	return analysis.SortedFlows(est)
}

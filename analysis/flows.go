package analysis

import "sort"

// FlowCount pairs a flow identifier with a packet count, exact or
// estimated depending on the producer.
type FlowCount struct {
	Fid   Fid
	Count int64
}

// FlowCounts is a flow list ordered by descending count. Producers sort
// before returning; ties break on the hex form of the fid so results are
// deterministic.
type FlowCounts []FlowCount

// SortedFlows converts a count map into a descending FlowCounts.
func SortedFlows(m map[Fid]int64) FlowCounts {
	out := make(FlowCounts, 0, len(m))
	for fid, n := range m {
		out = append(out, FlowCount{fid, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Fid.String() < out[j].Fid.String()
	})
	return out
}

// Map converts the list back into a count map.
func (fc FlowCounts) Map() map[Fid]int64 {
	m := make(map[Fid]int64, len(fc))
	for _, f := range fc {
		m[f.Fid] += f.Count
	}
	return m
}

// Top returns the first k entries, or all of them when k <= 0 or exceeds
// the length.
func (fc FlowCounts) Top(k int) FlowCounts {
	if k <= 0 || k > len(fc) {
		return fc
	}
	return fc[:k]
}

// Total returns the sum of all counts.
func (fc FlowCounts) Total() int64 {
	var sum int64
	for _, f := range fc {
		sum += f.Count
	}
	return sum
}

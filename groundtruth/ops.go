package groundtruth

import "github.com/printqueue/analysis/analysis"

// Top counts packets per flow whose enqueue time falls in [ts, te] and
// returns the k heaviest. k <= 0 returns every flow.
func (st *Stream) Top(ts, te uint64, k int) analysis.FlowCounts {
	m := make(map[analysis.Fid]int64)
	for _, r := range st.records {
		if ts <= r.Enq64 && r.Enq64 <= te {
			m[r.Fid]++
		}
	}
	return analysis.SortedFlows(m).Top(k)
}

// Retrieve counts packets per flow whose dequeue time falls in [ts, te]
// and returns the k heaviest. k <= 0 returns every flow.
func (st *Stream) Retrieve(ts, te uint64, k int) analysis.FlowCounts {
	m := make(map[analysis.Fid]int64)
	for _, r := range st.records {
		if ts <= r.Deq64 && r.Deq64 <= te {
			m[r.Fid]++
		}
	}
	return analysis.SortedFlows(m).Top(k)
}

// Traces returns the flow ids of packets dequeued in [ts, te], in
// departure order.
func (st *Stream) Traces(ts, te uint64) []analysis.Fid {
	var out []analysis.Fid
	for _, r := range st.records {
		if ts <= r.Deq64 && r.Deq64 <= te {
			out = append(out, r.Fid)
		}
	}
	return out
}

// PacketsAboveThreshold returns the packets that saw a queue deeper
// than q.
func (st *Stream) PacketsAboveThreshold(q uint32) []Record {
	var out []Record
	for _, r := range st.records {
		if r.QLen > q {
			out = append(out, r)
		}
	}
	return out
}

// BucketizeByDepth partitions packets into len(bounds) queue depth
// buckets: [bounds[i], bounds[i+1]) for each interior bucket and
// everything at or above the last bound in the final one. Packets below
// bounds[0] are dropped.
func (st *Stream) BucketizeByDepth(bounds []uint32) [][]Record {
	out := make([][]Record, len(bounds))
	if len(bounds) == 0 {
		return out
	}
	for _, r := range st.records {
		if r.QLen < bounds[0] {
			continue
		}
		for j := range bounds {
			if j == len(bounds)-1 || r.QLen < bounds[j+1] {
				out[j] = append(out[j], r)
				break
			}
		}
	}
	return out
}

// PeriodCount is one bin of the traffic distribution.
type PeriodCount struct {
	Midpoint uint64
	Count    int
}

// TotalDistribution cuts the enqueue span into n equal periods and
// counts the packets enqueued in each. Records are assumed sorted by
// enqueue time, which holds after repair.
func (st *Stream) TotalDistribution(n int) []PeriodCount {
	s := st.Stats()
	if s.PacketCount == 0 || n <= 0 || s.EnqueueTotal == 0 {
		return nil
	}
	periodLen := s.EnqueueTotal / uint64(n)
	if periodLen == 0 {
		return nil
	}
	var out []PeriodCount
	idx := 0
	for t := s.FirstEnq + periodLen/2; t < s.LastEnq; t += periodLen {
		end := t + periodLen/2
		count := 0
		for idx < len(st.records) && st.records[idx].Enq64 < end {
			count++
			idx++
		}
		out = append(out, PeriodCount{Midpoint: t, Count: count})
	}
	return out
}

// Package eval compares the time window engine and the baseline
// sketches against ground truth, producing one result row per sampled
// packet.
package eval

import "github.com/printqueue/analysis/analysis"

// PrecisionRecall scores an estimated flow list against ground truth by
// packet number. The trailing entry of each list is excluded from the
// matching: it is the partially-covered flow at the interval edge.
// Precision is the matched packet mass over the estimate's mass; recall
// is the matched mass over the full ground truth mass.
func PrecisionRecall(gt, tw analysis.FlowCounts) (precision, recall float64) {
	if len(gt) == 0 || len(tw) == 0 {
		return 0, 0
	}
	gtFilter := gt[:len(gt)-1].Map()

	var hit, estTotal int64
	for _, f := range tw[:len(tw)-1] {
		estTotal += f.Count
		if n, ok := gtFilter[f.Fid]; ok {
			if f.Count < n {
				hit += f.Count
			} else {
				hit += n
			}
		}
	}
	gtTotal := gt.Total()
	if estTotal == 0 || gtTotal == 0 {
		return 0, 0
	}
	return float64(hit) / float64(estTotal), float64(hit) / float64(gtTotal)
}

package eval

import (
	"math/rand"
	"strconv"

	"github.com/printqueue/analysis/analysis"
	"github.com/printqueue/analysis/groundtruth"
	"github.com/printqueue/analysis/metrics"
	"github.com/printqueue/analysis/row"
	"github.com/printqueue/analysis/sketch"
	"github.com/printqueue/analysis/timewindow"
)

// Config tunes one harness run.
type Config struct {
	// DepthBounds partitions packets by the queue depth they saw.
	DepthBounds []uint32
	// SamplesPerBucket is the number of packets drawn per bucket.
	SamplesPerBucket int
	// Seed makes sampling reproducible.
	Seed int64
}

// ResultRow is one CSV row: the sampled packet and the precision/recall
// of every estimator over its queuing interval.
type ResultRow struct {
	Bucket    int
	Sample    int
	EnqueueTS uint64
	DequeueTS uint64
	QueueLen  uint32

	TimeWindowPrecision float64
	TimeWindowRecall    float64

	CountMinSmallPrecision float64
	CountMinSmallRecall    float64
	CountMinLargePrecision float64
	CountMinLargeRecall    float64

	HashPipeSmallPrecision float64
	HashPipeSmallRecall    float64
	HashPipeLargePrecision float64
	HashPipeLargeRecall    float64

	FlowRadarSmallPrecision float64
	FlowRadarSmallRecall    float64
	FlowRadarLargePrecision float64
	FlowRadarLargeRecall    float64
}

// Harness runs interval queries for sampled packets against the time
// window engine and the baseline sketches.
type Harness struct {
	tw   *timewindow.Decoder
	gt   *groundtruth.Stream
	hash *sketch.HashRows
}

// NewHarness wires a loaded decoder and ground truth stream.
func NewHarness(tw *timewindow.Decoder, gt *groundtruth.Stream) *Harness {
	return &Harness{tw: tw, gt: gt, hash: sketch.NewHashRows()}
}

// Run samples each depth bucket, evaluates every sample, and commits
// one ResultRow per sample to the sink. The sink is flushed but not
// closed.
func (h *Harness) Run(cfg Config, sink row.Sink) error {
	rnd := rand.New(rand.NewSource(cfg.Seed))
	base := row.NewBase("eval", sink, 64)
	buckets := h.gt.BucketizeByDepth(cfg.DepthBounds)
	for b, pkts := range buckets {
		idx := 0
		for _, pkt := range samplePackets(rnd, pkts, cfg.SamplesPerBucket) {
			r, ok := h.evaluate(pkt)
			if !ok {
				continue
			}
			r.Bucket = b
			r.Sample = idx
			idx++
			metrics.EvalSampleCount.WithLabelValues(strconv.Itoa(b)).Inc()
			if err := base.Put(r); err != nil {
				return err
			}
		}
	}
	return base.Flush()
}

// samplePackets draws up to n packets uniformly without replacement.
func samplePackets(rnd *rand.Rand, pkts []groundtruth.Record, n int) []groundtruth.Record {
	if n >= len(pkts) {
		return pkts
	}
	out := make([]groundtruth.Record, 0, n)
	for _, i := range rnd.Perm(len(pkts))[:n] {
		out = append(out, pkts[i])
	}
	return out
}

// evaluate scores one sampled packet's queuing interval. Samples the
// time window engine cannot answer are skipped, as are degenerate
// samples where both scores are zero.
func (h *Harness) evaluate(pkt groundtruth.Record) (*ResultRow, bool) {
	ts, te := pkt.Enq64, pkt.Deq64
	gtFlows := h.gt.Retrieve(ts, te, 0)
	twRes := h.tw.Retrieve(ts, te)
	if len(twRes.Flows) == 0 {
		return nil, false
	}
	p, r := PrecisionRecall(gtFlows, twRes.Flows)
	if p == 0 && r == 0 {
		return nil, false
	}

	res := &ResultRow{
		EnqueueTS:           ts,
		DequeueTS:           te,
		QueueLen:            pkt.QLen,
		TimeWindowPrecision: p,
		TimeWindowRecall:    r,
	}

	// Each covering set contributes its own baseline structures, scaled
	// by the share of the set's span the query actually touched.
	inputs := make([]setInput, len(twRes.Sets))
	for i, set := range twRes.Sets {
		in := setInput{proportion: 1}
		if set.LTS != set.STS {
			iv := twRes.SubIntervals[i]
			in.proportion = float64(iv.End-iv.Start) / float64(set.LTS-set.STS)
		}
		in.flows = h.gt.Retrieve(set.STS, set.LTS, 0)
		in.trace = h.gt.Traces(set.STS, set.LTS)
		inputs[i] = in
	}

	res.CountMinSmallPrecision, res.CountMinSmallRecall = scoreBaseline(gtFlows, inputs, func(in setInput) analysis.FlowCounts {
		cm, _ := sketch.NewCountMin(h.hash, 3, 1024)
		cm.InsertFlows(in.flows)
		return cm.Estimate(gtFlows)
	})
	res.CountMinLargePrecision, res.CountMinLargeRecall = scoreBaseline(gtFlows, inputs, func(in setInput) analysis.FlowCounts {
		cm, _ := sketch.NewCountMin(h.hash, 5, 4096)
		cm.InsertFlows(in.flows)
		return cm.Estimate(gtFlows)
	})
	res.HashPipeSmallPrecision, res.HashPipeSmallRecall = scoreBaseline(gtFlows, inputs, func(in setInput) analysis.FlowCounts {
		hp, _ := sketch.NewHashPipe(h.hash, 3, 1024)
		hp.InsertTrace(in.trace)
		return hp.Flows()
	})
	res.HashPipeLargePrecision, res.HashPipeLargeRecall = scoreBaseline(gtFlows, inputs, func(in setInput) analysis.FlowCounts {
		hp, _ := sketch.NewHashPipe(h.hash, 5, 4096)
		hp.InsertTrace(in.trace)
		return hp.Flows()
	})
	res.FlowRadarSmallPrecision, res.FlowRadarSmallRecall = scoreBaseline(gtFlows, inputs, func(in setInput) analysis.FlowCounts {
		fr, _ := sketch.NewFlowRadar(h.hash, 1024*3)
		fr.InsertFlows(in.flows)
		return fr.Decode()
	})
	res.FlowRadarLargePrecision, res.FlowRadarLargeRecall = scoreBaseline(gtFlows, inputs, func(in setInput) analysis.FlowCounts {
		fr, _ := sketch.NewFlowRadar(h.hash, 4096*5)
		fr.InsertFlows(in.flows)
		return fr.Decode()
	})
	return res, true
}

// setInput is one covering set's contribution to a baseline: the
// ground truth over the set's whole span, its packet trace, and the
// share of the span the query touched.
type setInput struct {
	proportion float64
	flows      analysis.FlowCounts
	trace      []analysis.Fid
}

// scoreBaseline runs one baseline over every covering set, sums the
// proportion-scaled estimates, and compares against ground truth.
func scoreBaseline(gtFlows analysis.FlowCounts, inputs []setInput, run func(setInput) analysis.FlowCounts) (float64, float64) {
	acc := make(map[analysis.Fid]int64)
	for _, in := range inputs {
		for _, f := range run(in) {
			acc[f.Fid] += int64(float64(f.Count) * in.proportion)
		}
	}
	return PrecisionRecall(gtFlows, analysis.SortedFlows(acc))
}

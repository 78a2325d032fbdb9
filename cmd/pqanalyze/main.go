// pqanalyze decodes a run's register dumps and scores the time window
// engine against ground truth and the baseline sketches.
//
// The data directory is expected to hold the controller's layout:
// tw_data/ with the time window snapshots, signal_data/ with the data
// plane signals, and gt_data/ with the INT tap records.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/printqueue/analysis/analysis"
	"github.com/printqueue/analysis/eval"
	"github.com/printqueue/analysis/groundtruth"
	"github.com/printqueue/analysis/timewindow"
)

var (
	dataDir   = flag.String("data", ".", "Parent directory of tw_data, signal_data and gt_data")
	alpha     = flag.Int("alpha", 1, "Compression factor of the window cascade")
	k         = flag.Int("k", 10, "log2 cells per window")
	windows   = flag.Int("windows", 3, "Number of time windows")
	tb0       = flag.Int("tb0", 7, "Trimmed bits of window 0")
	z         = flag.Float64("z", 1, "Cell write probability in window 0")
	samples   = flag.Int("samples", 20, "Packets sampled per queue depth bucket")
	seed      = flag.Int64("seed", 1, "Sampling seed")
	depths    = flag.String("depths", "1000,2000,5000,10000,15000,20000", "Comma-separated queue depth bucket bounds")
	outFile   = flag.String("output", "result.csv", "Comparison CSV output path")
	stateFile = flag.String("state", "", "Optional path to save the decoded state as JSON")
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

func parseDepths(s string) []uint32 {
	var out []uint32
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 32)
		rtx.Must(err, "Invalid -depths value %q", f)
		out = append(out, uint32(v))
	}
	return out
}

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "Could not get args from environment variables")

	srv := prometheusx.MustServeMetrics()
	defer srv.Close()

	params := analysis.Params{Alpha: *alpha, K: *k, T: *windows, TB0: *tb0, Z: *z}
	decoder, err := timewindow.NewDecoder(params)
	rtx.Must(err, "Invalid run parameters")

	rtx.Must(decoder.LoadDirectory(filepath.Join(*dataDir, "tw_data")), "Could not load time window snapshots")
	if sigDir := filepath.Join(*dataDir, "signal_data"); dirExists(sigDir) {
		rtx.Must(decoder.LoadSignals(sigDir), "Could not load signals")
		stats := decoder.SignalStats()
		log.Printf("Signals: %d matched, %d via previous set, %d dropped",
			stats.Matched, stats.Fallback, stats.Dropped)
	}

	gt := groundtruth.NewStream()
	rtx.Must(gt.LoadDirectory(filepath.Join(*dataDir, "gt_data")), "Could not load ground truth")

	if *stateFile != "" {
		rtx.Must(decoder.SaveStateFile(*stateFile), "Could not save decoded state")
	}

	out, err := os.Create(*outFile)
	rtx.Must(err, "Could not create %s", *outFile)
	sink := eval.NewCSVWriter(out)

	harness := eval.NewHarness(decoder, gt)
	cfg := eval.Config{
		DepthBounds:      parseDepths(*depths),
		SamplesPerBucket: *samples,
		Seed:             *seed,
	}
	rtx.Must(harness.Run(cfg, sink), "Comparison run failed")
	rtx.Must(sink.Close(), "Could not close %s", *outFile)
	log.Printf("Wrote comparison results to %s", *outFile)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

package timewindow

import (
	"errors"
	"log"
	"net/http"

	"github.com/printqueue/analysis/analysis"
	"github.com/printqueue/analysis/metrics"
	"github.com/printqueue/analysis/storage"
)

// Decoder ingests snapshot files and holds the decoded sets for the
// query phase. Ingest must complete before queries begin; the sets are
// read-only afterwards.
type Decoder struct {
	p       analysis.Params
	coeff   []float64
	tracker *WrapTracker
	sets    []*Set
	signals []Signal

	// signal correlation accounting
	signalMatched  int
	signalFallback int
	signalDropped  int
}

// NewDecoder validates the run parameters and returns an empty decoder.
func NewDecoder(p analysis.Params) (*Decoder, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Decoder{
		p:       p,
		coeff:   p.Coefficients(),
		tracker: NewWrapTracker(p),
	}, nil
}

// Params returns the run parameters the decoder was built with.
func (d *Decoder) Params() analysis.Params { return d.p }

// Sets returns the decoded sets in snapshot order.
func (d *Decoder) Sets() []*Set { return d.sets }

// Wrap returns the rollover count after the last ingested snapshot.
func (d *Decoder) Wrap() uint32 { return d.tracker.Wrap() }

// AddSnapshot runs wrap tracking and set filtering on one parsed
// snapshot and appends the resulting set.
func (d *Decoder) AddSnapshot(s *Snapshot) *Set {
	largest, idx, wrap, ok := d.tracker.Observe(s)
	if !ok {
		// Window 0 never filled: the set is empty and the rollover
		// counter holds.
		set := &Set{Seq: s.Seq, Sec: s.Sec, Usec: s.Usec}
		d.sets = append(d.sets, set)
		return set
	}
	set := filterSet(d.p, s, largest, idx, wrap)
	d.sets = append(d.sets, set)
	return set
}

// LoadDirectory reads every snapshot file under dir in timestamp order.
// Files with no used cells are skipped: the switch had not yet written
// when the controller dumped them. A malformed file aborts the ingest.
func (d *Decoder) LoadDirectory(dir string) error {
	files, err := storage.ListTimestamped(dir)
	if err != nil {
		return analysis.NewError("timewindow", "list", http.StatusInternalServerError, err)
	}
	for _, f := range files {
		data, err := storage.ReadAll(f.Path)
		if err != nil {
			metrics.FileCount.WithLabelValues("timewindow", "error").Inc()
			return analysis.NewError("timewindow", f.Name, http.StatusInternalServerError, err)
		}
		s, err := DecodeSnapshot(d.p, len(d.sets), f.Sec, f.Usec, data)
		if errors.Is(err, analysis.ErrEmptySnapshot) {
			metrics.FileCount.WithLabelValues("timewindow", "empty").Inc()
			continue
		}
		if err != nil {
			metrics.FileCount.WithLabelValues("timewindow", "error").Inc()
			return analysis.NewError("timewindow", f.Name, http.StatusBadRequest, err)
		}
		d.AddSnapshot(s)
		metrics.FileCount.WithLabelValues("timewindow", "ok").Inc()
	}
	log.Printf("Loaded %d time window sets from %s (wrap=%d)", len(d.sets), dir, d.tracker.Wrap())
	return nil
}

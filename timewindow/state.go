package timewindow

import (
	"encoding/json"
	"io"
	"os"

	"github.com/printqueue/analysis/analysis"
)

// State is the interchange form of a decoded run: the configuration and
// every filtered set, without the raw register grids. Loading a state
// restores the query phase exactly; ingest cannot continue from it.
type State struct {
	Params  analysis.Params `json:"config"`
	Wrap    uint32          `json:"wrap"`
	Sets    []*Set          `json:"sets"`
	Signals []Signal        `json:"signals,omitempty"`
}

// State captures the decoder for persistence.
func (d *Decoder) State() State {
	return State{Params: d.p, Wrap: d.tracker.Wrap(), Sets: d.sets, Signals: d.signals}
}

// SaveState writes the decoded state as an indented JSON document.
func (d *Decoder) SaveState(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(d.State())
}

// SaveStateFile writes the decoded state to path.
func (d *Decoder) SaveStateFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return d.SaveState(f)
}

// LoadState reconstructs a query-ready decoder from a stored state
// document.
func LoadState(data []byte) (*Decoder, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	d, err := NewDecoder(st.Params)
	if err != nil {
		return nil, err
	}
	d.sets = st.Sets
	d.signals = st.Signals
	d.tracker.wrap = st.Wrap
	return d, nil
}

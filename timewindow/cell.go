// Package timewindow decodes the time window register snapshots written
// by the data plane and answers interval queries against them.
//
// A snapshot holds T windows of 2^k cells. Each cell carries a trimmed
// dequeue timestamp and the flow id of one packet that visited the
// cell's slot during the recorded cycle. Window i halves (or
// 2^alpha-ths) the temporal resolution of window i-1, so the cascade
// covers exponentially more time at exponentially coarser grain.
package timewindow

import "github.com/printqueue/analysis/analysis"

// RawCell is one register slot as read from disk.
type RawCell struct {
	TTS uint32
	Fid analysis.Fid
}

// LiveCell is a cell that survived set filtering: it belongs to the most
// recent complete cycle of its window. Wrap counts the 32-bit rollovers
// of the dequeue clock observed up to the snapshot that produced it.
type LiveCell struct {
	TTS    uint32       `json:"tts"`
	Fid    analysis.Fid `json:"fid"`
	Window uint8        `json:"twid"`
	Wrap   uint32       `json:"wrap"`
}

// Span returns the smallest and largest 64-bit timestamps the cell may
// represent, before wrap adjustment. One tts tick of window w covers
// 2^TB(w) nanoseconds.
func (c LiveCell) Span(p analysis.Params) (lo, hi uint64) {
	tb := p.TB(int(c.Window))
	lo = uint64(c.TTS) << tb
	hi = lo + (uint64(1) << tb) - 1
	return lo, hi
}

// Midpoint returns the reconstructed midpoint timestamp of the cell on
// the global 64-bit timeline.
func (c LiveCell) Midpoint(p analysis.Params) uint64 {
	tb := p.TB(int(c.Window))
	return uint64(c.TTS)<<tb + uint64(1)<<(tb-1) + uint64(c.Wrap)<<32
}

package timewindow

import (
	"github.com/printqueue/analysis/analysis"
	"github.com/printqueue/analysis/metrics"
)

// Set is the controller's view of the most recent complete data plane
// cycle at snapshot time: the live cells of every window plus the
// smallest and largest reconstructed timestamps among them. Sets are
// immutable once built.
type Set struct {
	Seq  int   `json:"seq"`
	Sec  int64 `json:"sec"`
	Usec int64 `json:"usec"`

	Cells []LiveCell `json:"cells"`

	// STS and LTS are the reconstructed midpoints of the oldest and
	// newest live cells. Both are zero for an empty set.
	STS uint64 `json:"sts"`
	LTS uint64 `json:"lts"`

	Smallest LiveCell `json:"smallest_cell"`
	Largest  LiveCell `json:"largest_cell"`
}

// Empty reports whether filtering kept no cells.
func (s *Set) Empty() bool { return len(s.Cells) == 0 }

// Covers reports whether ts falls inside the set's span.
func (s *Set) Covers(ts uint64) bool { return !s.Empty() && s.STS <= ts && ts <= s.LTS }

// filterSet selects the cells of the latest complete cycle in every
// window of the snapshot. largest/largestIdx come from the wrap
// tracker's window 0 scan, wrap is the rollover count applying to this
// snapshot.
//
// The reference timestamp walks down the cascade: window i+1's latest
// cell is the one that absorbed the cell evicted from window i, so its
// trimmed timestamp is (latest - 2^k) >> alpha and its cycle id budget
// shrinks by alpha bits.
func filterSet(p analysis.Params, s *Snapshot, largest uint32, largestIdx int, wrap uint32) *Set {
	set := &Set{Seq: s.Seq, Sec: s.Sec, Usec: s.Usec}

	largestCell := LiveCell{TTS: largest, Fid: s.Windows[0][largestIdx].Fid, Window: 0, Wrap: wrap}

	latestTTS := int64(largest)
	latestIdx := largestIdx
	latestCID := int64(largest) >> p.K
	cidBits := p.CIDBits(0)
	indexCount := p.IndexCount()

	var smallest LiveCell
	haveSmallest := false

	for w := 0; w < p.T; w++ {
		mask := uint32(1)<<cidBits - 1
		cells := s.Windows[w]

		// Slots up to the latest index belong to the current cycle.
		regionFirst := true
		for j := 0; j <= latestIdx; j++ {
			c := cells[j]
			if c.Fid.IsZero() || c.TTS == 0 {
				metrics.CellCount.WithLabelValues("unused").Inc()
				continue
			}
			cid := c.TTS >> p.K
			if cid&mask != uint32(latestCID)&mask {
				metrics.CellCount.WithLabelValues("stale").Inc()
				continue
			}
			live := LiveCell{TTS: c.TTS, Fid: c.Fid, Window: uint8(w), Wrap: wrap}
			set.Cells = append(set.Cells, live)
			metrics.CellCount.WithLabelValues("live").Inc()
			if regionFirst {
				regionFirst = false
				smallest = live
				haveSmallest = true
			}
		}

		// Slots past the latest index were last written one cycle
		// earlier. A raw cycle id above the latest one means the cell
		// was written before the rollover that the latest cell sits
		// after.
		regionFirst = true
		for j := latestIdx + 1; j < indexCount; j++ {
			c := cells[j]
			if c.Fid.IsZero() {
				metrics.CellCount.WithLabelValues("unused").Inc()
				continue
			}
			cid := c.TTS >> p.K
			if (cid+1)&mask != uint32(latestCID)&mask {
				metrics.CellCount.WithLabelValues("stale").Inc()
				continue
			}
			live := LiveCell{TTS: c.TTS, Fid: c.Fid, Window: uint8(w), Wrap: wrap}
			if int64(cid) > latestCID {
				live.Wrap = wrap - 1
			}
			set.Cells = append(set.Cells, live)
			metrics.CellCount.WithLabelValues("live").Inc()
			if regionFirst {
				regionFirst = false
				smallest = live
				haveSmallest = true
			}
		}

		cidBits -= p.Alpha
		latestTTS = (latestTTS - int64(indexCount)) >> p.Alpha
		latestIdx = int(latestTTS & int64(indexCount-1))
		latestCID = latestTTS >> p.K
	}

	if !haveSmallest {
		return set
	}
	set.Smallest = smallest
	set.Largest = largestCell
	set.STS = smallest.Midpoint(p)
	set.LTS = largestCell.Midpoint(p)
	return set
}

package timewindow

import (
	"encoding/binary"
	"fmt"

	"github.com/printqueue/analysis/analysis"
)

// Snapshot is one register dump parsed into T windows of 2^k raw cells.
// Raw snapshots exist only between read and filter; the decoder drops
// them once the live cells are extracted.
type Snapshot struct {
	Seq  int   // monotonic sequence number in read order
	Sec  int64 // file write time from the file name
	Usec int64

	Windows [][]RawCell
}

// DecodeSnapshot parses one snapshot file body. The layout is, for each
// window, three consecutive blocks of 2^k little-endian 32-bit words:
// the tts array, the source address array, and the destination address
// array. A file whose cells all carry the zero fid predates the first
// data plane write and decodes to ErrEmptySnapshot.
func DecodeSnapshot(p analysis.Params, seq int, sec, usec int64, data []byte) (*Snapshot, error) {
	n := p.IndexCount()
	want := 3 * p.T * n * 4
	if len(data) != want {
		return nil, fmt.Errorf("%w: snapshot is %d bytes, want %d", analysis.ErrMalformedInput, len(data), want)
	}
	s := &Snapshot{Seq: seq, Sec: sec, Usec: usec, Windows: make([][]RawCell, p.T)}
	used := false
	off := 0
	for w := 0; w < p.T; w++ {
		cells := make([]RawCell, n)
		for j := 0; j < n; j++ {
			cells[j].TTS = binary.LittleEndian.Uint32(data[off+4*j:])
		}
		off += 4 * n
		for j := 0; j < n; j++ {
			src := binary.LittleEndian.Uint32(data[off+4*j:])
			dst := binary.LittleEndian.Uint32(data[off+4*n+4*j:])
			cells[j].Fid = analysis.FidFromWords(src, dst)
			if !cells[j].Fid.IsZero() {
				used = true
			}
		}
		off += 8 * n
		s.Windows[w] = cells
	}
	if !used {
		return nil, analysis.ErrEmptySnapshot
	}
	return s, nil
}

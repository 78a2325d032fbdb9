package timewindow_test

import (
	"encoding/binary"

	"github.com/printqueue/analysis/analysis"
)

// cellSpec places one populated cell in a synthetic snapshot file.
type cellSpec struct {
	window int
	slot   int
	tts    uint32
	fid    string
}

// testParams is the small cascade used throughout these tests: two
// windows of four cells, 2 ns per window-0 tick.
var testParams = analysis.Params{Alpha: 1, K: 2, T: 2, TB0: 2, Z: 1}

// buildSnapshot serializes cells into the on-disk layout: per window,
// 2^k little-endian tts words, then the source and destination address
// blocks.
func buildSnapshot(p analysis.Params, cells []cellSpec) []byte {
	n := p.IndexCount()
	data := make([]byte, 3*p.T*n*4)
	for _, c := range cells {
		fid, err := analysis.FidFromHex(c.fid)
		if err != nil {
			panic(err)
		}
		base := c.window * 3 * n * 4
		binary.LittleEndian.PutUint32(data[base+4*c.slot:], c.tts)
		binary.LittleEndian.PutUint32(data[base+4*n+4*c.slot:], binary.BigEndian.Uint32(fid[0:4]))
		binary.LittleEndian.PutUint32(data[base+8*n+4*c.slot:], binary.BigEndian.Uint32(fid[4:8]))
	}
	return data
}

func mustFid(s string) analysis.Fid {
	fid, err := analysis.FidFromHex(s)
	if err != nil {
		panic(err)
	}
	return fid
}

package groundtruth_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-test/deep"
	"github.com/m-lab/go/rtx"

	"github.com/printqueue/analysis/analysis"
	"github.com/printqueue/analysis/groundtruth"
)

type tapRecord struct {
	deq  uint32
	enq  uint32
	qlen uint32
	fid  string
}

func encodeRecords(t *testing.T, recs []tapRecord) []byte {
	t.Helper()
	data := make([]byte, 0, 20*len(recs))
	for _, r := range recs {
		b := make([]byte, 20)
		binary.BigEndian.PutUint32(b[0:], r.deq)
		binary.BigEndian.PutUint32(b[4:], r.enq)
		binary.BigEndian.PutUint32(b[8:], r.qlen)
		fid, err := analysis.FidFromHex(r.fid)
		rtx.Must(err, "bad fid %q", r.fid)
		copy(b[12:], fid[:])
		data = append(data, b...)
	}
	return data
}

// padStream wraps the usable records with the baseline record, the
// warm-up noise that ingest skips, and the cool-down tail that
// finalization trims.
func padStream(t *testing.T, usable []tapRecord) []byte {
	t.Helper()
	var recs []tapRecord
	// Baseline plus 10 warm-up records, all before the usable span.
	for i := uint32(0); i < 11; i++ {
		recs = append(recs, tapRecord{deq: 100 + i*10, enq: 50 + i*10, qlen: 1, fid: "0a0000630a000063"})
	}
	recs = append(recs, usable...)
	last := usable[len(usable)-1]
	// 10 cool-down records after the usable span.
	for i := uint32(1); i <= 10; i++ {
		recs = append(recs, tapRecord{deq: last.deq + i*10, enq: last.enq + i*10, qlen: 1, fid: "0a0000640a000064"})
	}
	return encodeRecords(t, recs)
}

func TestIngestTrimsAndRepairs(t *testing.T) {
	usable := []tapRecord{
		{deq: 2000, enq: 1500, qlen: 3, fid: "0a0000010a000001"},
		{deq: 2100, enq: 1600, qlen: 4, fid: "0a0000020a000002"},
		{deq: 2200, enq: 1700, qlen: 5, fid: "0a0000010a000001"},
	}
	st := groundtruth.NewStream()
	if err := st.Ingest(padStream(t, usable)); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	st.Finalize()

	want := []groundtruth.Record{
		{Enq64: 1500, Deq64: 2000, QLen: 3, Fid: mustFid(t, "0a0000010a000001")},
		{Enq64: 1600, Deq64: 2100, QLen: 4, Fid: mustFid(t, "0a0000020a000002")},
		{Enq64: 1700, Deq64: 2200, QLen: 5, Fid: mustFid(t, "0a0000010a000001")},
	}
	if diff := deep.Equal(want, st.Records()); diff != nil {
		t.Errorf("records mismatch: %v", diff)
	}
}

func TestIngestRolloverMonotonic(t *testing.T) {
	// The dequeue clock rolls over inside the usable span. After
	// repair both clocks must be non-decreasing and every record must
	// dequeue at or after its enqueue.
	usable := []tapRecord{
		{deq: 4294967000, enq: 4294966900, qlen: 1, fid: "0a0000010a000001"},
		{deq: 4294967200, enq: 4294967100, qlen: 1, fid: "0a0000020a000002"},
		{deq: 50, enq: 4294967290, qlen: 1, fid: "0a0000030a000003"}, // dequeue wrapped
		{deq: 200, enq: 60, qlen: 1, fid: "0a0000040a000004"},        // enqueue wrapped
	}
	st := groundtruth.NewStream()
	if err := st.Ingest(padStream(t, usable)); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	st.Finalize()

	recs := st.Records()
	if len(recs) != 4 {
		t.Fatalf("len(Records()) = %d, want 4", len(recs))
	}
	for i, r := range recs {
		if r.Deq64 < r.Enq64 {
			t.Errorf("record %d dequeues at %d before enqueue %d", i, r.Deq64, r.Enq64)
		}
		if i > 0 && (r.Deq64 < recs[i-1].Deq64 || r.Enq64 < recs[i-1].Enq64) {
			t.Errorf("record %d breaks monotonicity: %+v after %+v", i, r, recs[i-1])
		}
	}
	if recs[2].Deq64 != 50+1<<32 {
		t.Errorf("wrapped dequeue = %d, want %d", recs[2].Deq64, uint64(50)+1<<32)
	}
}

func TestIngestTruncatedFile(t *testing.T) {
	st := groundtruth.NewStream()
	if err := st.Ingest(make([]byte, 30)); err == nil {
		t.Error("Ingest() = nil, want truncated record error")
	}
}

func TestShortStreamEmpty(t *testing.T) {
	// Fewer records than the cool-down trim leaves nothing.
	st := groundtruth.NewStream()
	rtx.Must(st.Ingest(encodeRecords(t, []tapRecord{
		{deq: 100, enq: 50, qlen: 1, fid: "0a0000010a000001"},
		{deq: 200, enq: 150, qlen: 1, fid: "0a0000010a000001"},
	})), "ingest failed")
	st.Finalize()
	if len(st.Records()) != 0 {
		t.Errorf("len(Records()) = %d, want 0", len(st.Records()))
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	usable := []tapRecord{
		{deq: 2000, enq: 1500, qlen: 3, fid: "0a0000010a000001"},
		{deq: 2100, enq: 1600, qlen: 4, fid: "0a0000020a000002"},
	}
	rtx.Must(os.WriteFile(filepath.Join(dir, "1_0.bin"), padStream(t, usable), 0644), "failed to write tap file")

	st := groundtruth.NewStream()
	if err := st.LoadDirectory(dir); err != nil {
		t.Fatalf("LoadDirectory() error = %v", err)
	}
	if len(st.Records()) != 2 {
		t.Errorf("len(Records()) = %d, want 2", len(st.Records()))
	}
	stats := st.Stats()
	if stats.PacketCount != 2 || stats.FirstDeq != 2000 || stats.LastDeq != 2100 {
		t.Errorf("Stats() = %+v, want 2 packets spanning dequeue 2000..2100", stats)
	}
}

func mustFid(t *testing.T, s string) analysis.Fid {
	t.Helper()
	fid, err := analysis.FidFromHex(s)
	rtx.Must(err, "bad fid %q", s)
	return fid
}

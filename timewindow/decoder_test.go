package timewindow_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-lab/go/rtx"

	"github.com/printqueue/analysis/timewindow"
)

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, cells []cellSpec) {
		rtx.Must(os.WriteFile(filepath.Join(dir, name), buildSnapshot(testParams, cells), 0644), "failed to write %s", name)
	}

	// Out of lexical order on purpose: 2_99 sorts after 2_100 as a
	// string but before it numerically.
	write("2_100.bin", []cellSpec{{window: 0, slot: 3, tts: 11, fid: "0a0000020a000002"}})
	write("2_99.bin", []cellSpec{{window: 0, slot: 2, tts: 10, fid: "0a0000010a000001"}})
	// A dump from before the first data plane write: all cells unused.
	write("1_0.bin", nil)

	d, err := timewindow.NewDecoder(testParams)
	rtx.Must(err, "failed to create decoder")
	if err := d.LoadDirectory(dir); err != nil {
		t.Fatalf("LoadDirectory() error = %v", err)
	}

	sets := d.Sets()
	if len(sets) != 2 {
		t.Fatalf("len(Sets()) = %d, want 2 (empty dump skipped)", len(sets))
	}
	if sets[0].Usec != 99 || sets[1].Usec != 100 {
		t.Errorf("set order = %d_%d, %d_%d; want 2_99 then 2_100",
			sets[0].Sec, sets[0].Usec, sets[1].Sec, sets[1].Usec)
	}
	if sets[0].Seq != 0 || sets[1].Seq != 1 {
		t.Errorf("set seqs = %d, %d; want 0, 1", sets[0].Seq, sets[1].Seq)
	}
}

func TestLoadDirectoryMalformed(t *testing.T) {
	dir := t.TempDir()
	rtx.Must(os.WriteFile(filepath.Join(dir, "1_0.bin"), make([]byte, 13), 0644), "failed to write file")

	d, err := timewindow.NewDecoder(testParams)
	rtx.Must(err, "failed to create decoder")
	if err := d.LoadDirectory(dir); err == nil {
		t.Error("LoadDirectory() = nil, want malformed input error")
	}
}

func TestLoadDirectoryUnreadable(t *testing.T) {
	d, err := timewindow.NewDecoder(testParams)
	rtx.Must(err, "failed to create decoder")
	if err := d.LoadDirectory(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("LoadDirectory() = nil, want error for missing directory")
	}
}

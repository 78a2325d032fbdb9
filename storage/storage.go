// Package storage enumerates and reads the timestamp-named register dump
// files written by the controller, and provides a local JSONL sink for
// persisting decoded state.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/valyala/gozstd"

	"github.com/printqueue/analysis/analysis"
)

// ZstdSuffix marks register dumps that were compressed in place by the
// controller host after rotation. They decode to the same byte layout.
const ZstdSuffix = ".zst"

// TimestampedFile identifies one register dump in a data directory.
// Sec and Usec come from the file name; Flag is the optional third name
// field used by queue monitor dumps (sequence wrap marker).
type TimestampedFile struct {
	Path string
	Name string
	Sec  int64
	Usec int64
	Flag int
}

// parseName splits "<sec>_<usec>.bin" or "<sec>_<usec>_<flag>.bin",
// with an optional trailing ".zst".
func parseName(name string) (TimestampedFile, error) {
	base := strings.TrimSuffix(name, ZstdSuffix)
	if !strings.HasSuffix(base, ".bin") {
		return TimestampedFile{}, fmt.Errorf("%w: %q", analysis.ErrBadFileName, name)
	}
	fields := strings.Split(strings.TrimSuffix(base, ".bin"), "_")
	if len(fields) != 2 && len(fields) != 3 {
		return TimestampedFile{}, fmt.Errorf("%w: %q", analysis.ErrBadFileName, name)
	}
	sec, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return TimestampedFile{}, fmt.Errorf("%w: %q", analysis.ErrBadFileName, name)
	}
	usec, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return TimestampedFile{}, fmt.Errorf("%w: %q", analysis.ErrBadFileName, name)
	}
	tf := TimestampedFile{Name: name, Sec: sec, Usec: usec}
	if len(fields) == 3 {
		flag, err := strconv.Atoi(fields[2])
		if err != nil {
			return TimestampedFile{}, fmt.Errorf("%w: %q", analysis.ErrBadFileName, name)
		}
		tf.Flag = flag
	}
	return tf, nil
}

// ListTimestamped returns the register dumps under dir in ascending
// (sec, usec) order. Files that do not match the naming scheme are an
// error: the data directories contain nothing else.
func ListTimestamped(dir string) ([]TimestampedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]TimestampedFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		tf, err := parseName(e.Name())
		if err != nil {
			return nil, err
		}
		tf.Path = filepath.Join(dir, e.Name())
		files = append(files, tf)
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Sec != files[j].Sec {
			return files[i].Sec < files[j].Sec
		}
		return files[i].Usec < files[j].Usec
	})
	return files, nil
}

// ReadAll reads the contents of a register dump, transparently
// decompressing the zstd variant.
func ReadAll(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ZstdSuffix) {
		return gozstd.Decompress(nil, data)
	}
	return data, nil
}

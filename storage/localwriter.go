package storage

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/printqueue/analysis/row"
)

// LocalWriter provides a Sink interface for result producers to output
// to local JSONL files.
type LocalWriter struct {
	f    *os.File
	rows int
}

// NewLocalWriter creates a new LocalWriter for output to the given dir
// and path. On success, missing directories are created and a new file
// pointer is allocated. Callers must call Close() to release this file
// pointer.
func NewLocalWriter(dir string, path string) (row.Sink, error) {
	p := filepath.Join(dir, path)
	d := filepath.Dir(p) // path may include additional directory elements.
	err := os.MkdirAll(d, os.ModePerm)
	if err != nil {
		return nil, err
	}
	// All rows from a run are appended in a single session, so this
	// does not need O_APPEND.
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	l := &LocalWriter{
		f: f,
	}
	return l, nil
}

// Commit writes the given rows to the local writer file immediately.
func (lw *LocalWriter) Commit(rows []interface{}, label string) (int, error) {
	buf := bytes.NewBuffer(nil)

	for i := range rows {
		j, err := json.Marshal(rows[i])
		if err != nil {
			return 0, err
		}
		buf.Write(j)
		buf.WriteByte('\n')
	}
	_, err := buf.WriteTo(lw.f)
	if err != nil {
		return 0, err
	}
	lw.rows += len(rows)
	return len(rows), nil
}

// Close closes the underlying LocalWriter file object.
func (lw *LocalWriter) Close() error {
	err := lw.f.Close()
	if err != nil {
		return err
	}
	log.Printf("Successful LocalWriter.Close(); wrote %d rows to %s", lw.rows, lw.f.Name())
	return nil
}

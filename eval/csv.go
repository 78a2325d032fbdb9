package eval

import (
	"encoding/csv"
	"fmt"
	"io"
	"reflect"

	"github.com/iancoleman/strcase"
)

// CSVWriter is a row.Sink that renders homogeneous result structs as
// CSV. The header is derived from the first committed row's field
// names, converted to snake case.
type CSVWriter struct {
	w      *csv.Writer
	c      io.Closer
	wrote  bool
	fields int
}

// NewCSVWriter wraps an output stream. If the stream is an io.Closer it
// is closed along with the writer.
func NewCSVWriter(out io.Writer) *CSVWriter {
	cw := &CSVWriter{w: csv.NewWriter(out)}
	if c, ok := out.(io.Closer); ok {
		cw.c = c
	}
	return cw
}

func (cw *CSVWriter) header(v reflect.Type) []string {
	names := make([]string, v.NumField())
	for i := range names {
		names[i] = strcase.ToSnake(v.Field(i).Name)
	}
	return names
}

// Commit writes the given rows immediately.
func (cw *CSVWriter) Commit(rows []interface{}, label string) (int, error) {
	for i := range rows {
		v := reflect.Indirect(reflect.ValueOf(rows[i]))
		if v.Kind() != reflect.Struct {
			return i, fmt.Errorf("%s: CSV rows must be structs, got %T", label, rows[i])
		}
		if !cw.wrote {
			cw.wrote = true
			cw.fields = v.NumField()
			if err := cw.w.Write(cw.header(v.Type())); err != nil {
				return i, err
			}
		}
		record := make([]string, cw.fields)
		for f := 0; f < cw.fields; f++ {
			record[f] = fmt.Sprint(v.Field(f).Interface())
		}
		if err := cw.w.Write(record); err != nil {
			return i, err
		}
	}
	cw.w.Flush()
	return len(rows), cw.w.Error()
}

// Close flushes the CSV writer and closes the underlying stream when it
// is closable.
func (cw *CSVWriter) Close() error {
	cw.w.Flush()
	if err := cw.w.Error(); err != nil {
		return err
	}
	if cw.c != nil {
		return cw.c.Close()
	}
	return nil
}

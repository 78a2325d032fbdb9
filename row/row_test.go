package row_test

import (
	"errors"
	"testing"

	"github.com/printqueue/analysis/row"
)

// inMemorySink collects committed rows for inspection.
type inMemorySink struct {
	data []interface{}
	fail bool
}

func (s *inMemorySink) Commit(rows []interface{}, label string) (int, error) {
	if s.fail {
		return 0, errors.New("sink failure")
	}
	s.data = append(s.data, rows...)
	return len(rows), nil
}

func (s *inMemorySink) Close() error { return nil }

func TestBasePutAndFlush(t *testing.T) {
	sink := &inMemorySink{}
	b := row.NewBase("test", sink, 3)

	for i := 0; i < 5; i++ {
		if err := b.Put(i); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}
	// The buffer holds 3 rows, so one block of 3 has been committed.
	if len(sink.data) != 3 {
		t.Errorf("committed rows = %d, want 3 before Flush", len(sink.data))
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(sink.data) != 5 {
		t.Errorf("committed rows = %d, want 5 after Flush", len(sink.data))
	}

	stats := b.GetStats()
	if stats.Committed != 5 || stats.Buffered != 0 || stats.Pending != 0 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 5 committed and nothing outstanding", stats)
	}
	if stats.Total() != 5 {
		t.Errorf("Total() = %d, want 5", stats.Total())
	}
}

func TestBaseCommitError(t *testing.T) {
	sink := &inMemorySink{fail: true}
	b := row.NewBase("test", sink, 2)

	if err := b.Put("row"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	err := b.Flush()
	if err == nil {
		t.Fatal("Flush() = nil, want commit error")
	}
	var commitErr row.ErrCommitRow
	if !errors.As(err, &commitErr) {
		t.Errorf("Flush() error = %v, want ErrCommitRow", err)
	}
	if stats := b.GetStats(); stats.Failed != 1 {
		t.Errorf("stats = %+v, want 1 failed", stats)
	}
}

func TestBufferAppendAndReset(t *testing.T) {
	buf := row.NewBuffer(2)
	if got := buf.Append(1); got != nil {
		t.Errorf("Append(1) = %v, want nil", got)
	}
	if got := buf.Append(2); got != nil {
		t.Errorf("Append(2) = %v, want nil", got)
	}
	// The third append overflows and hands back the first block.
	got := buf.Append(3)
	if len(got) != 2 {
		t.Fatalf("Append(3) returned %d rows, want 2", len(got))
	}
	rest := buf.Reset()
	if len(rest) != 1 || rest[0] != 3 {
		t.Errorf("Reset() = %v, want [3]", rest)
	}
	if len(buf.Reset()) != 0 {
		t.Error("Reset() after Reset() returned rows, want none")
	}
}

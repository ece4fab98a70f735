package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/k8crawler/internal/database"
	"github.com/nao1215/k8crawler/internal/model"
)

func record(url string) *model.CandidateRecord {
	return &model.CandidateRecord{
		Name:        "Homework Help",
		Category:    model.CategoryTutoring,
		SourceURL:   url,
		ScrapedAt:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Fingerprint: model.RecordFingerprint(url, "body"),
	}
}

func countLines(t *testing.T, path string) int {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Count(string(data), "\n")
}

// TestJSONL tests the NDJSON sink.
func TestJSONL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("duplicate writes produce one line", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out", "records.jsonl")
		s, err := OpenJSONL(path)
		if err != nil {
			t.Fatalf("OpenJSONL: %v", err)
		}
		if err := s.Ping(ctx); err != nil {
			t.Fatalf("Ping: %v", err)
		}

		rec := record("https://example.org/a")
		for range 3 {
			if err := s.Write(ctx, rec); err != nil {
				t.Fatalf("Write: %v", err)
			}
		}
		if err := s.Write(ctx, record("https://example.org/b")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		if n := countLines(t, path); n != 2 {
			t.Errorf("expected 2 lines, got %d", n)
		}
	})

	t.Run("reopening skips records already in the file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "records.jsonl")
		rec := record("https://example.org/a")

		s, err := OpenJSONL(path)
		if err != nil {
			t.Fatalf("OpenJSONL: %v", err)
		}
		if err := s.Write(ctx, rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
		_ = s.Close()

		s, err = OpenJSONL(path)
		if err != nil {
			t.Fatalf("reopen: %v", err)
		}
		if err := s.Write(ctx, rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
		_ = s.Close()

		if n := countLines(t, path); n != 1 {
			t.Errorf("expected 1 line, got %d", n)
		}

		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Scan()
		var got model.CandidateRecord
		if err := json.Unmarshal(scanner.Bytes(), &got); err != nil {
			t.Fatalf("line is not JSON: %v", err)
		}
		if got.Fingerprint != rec.Fingerprint || got.Name != rec.Name {
			t.Errorf("unexpected line %+v", got)
		}
	})

	t.Run("write after close fails with a sink error", func(t *testing.T) {
		t.Parallel()

		s, err := OpenJSONL(filepath.Join(t.TempDir(), "records.jsonl"))
		if err != nil {
			t.Fatalf("OpenJSONL: %v", err)
		}
		_ = s.Close()

		err = s.Write(ctx, record("https://example.org/a"))
		var sinkErr *Error
		if !errors.As(err, &sinkErr) || !errors.Is(err, ErrClosed) {
			t.Errorf("expected sink Error wrapping ErrClosed, got %v", err)
		}
		if sinkErr != nil && sinkErr.Sink != "jsonl" {
			t.Errorf("sink = %q", sinkErr.Sink)
		}
		if !errors.Is(s.Ping(ctx), ErrClosed) {
			t.Error("Ping after Close must fail")
		}
	})
}

// TestDatabase tests the SQLite sink and dead-letter queue.
func TestDatabase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s := NewDatabase(db, "run-1")
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	rec := record("https://example.org/a")
	for range 2 {
		if err := s.Write(ctx, rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if n, _ := db.CountRecords(ctx); n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}

	if err := s.DeadLetter(ctx, &model.DeadLetter{Record: *rec, Error: "boom", Attempts: 2}); err != nil {
		t.Fatalf("DeadLetter: %v", err)
	}
	dls, err := db.ListDeadLetters(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListDeadLetters: %v", err)
	}
	if len(dls) != 1 || dls[0].RunID != "run-1" {
		t.Errorf("unexpected dead letters %+v", dls)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("close database: %v", err)
	}
	err = s.Write(ctx, record("https://example.org/b"))
	var sinkErr *Error
	if !errors.As(err, &sinkErr) || sinkErr.Sink != "sqlite" {
		t.Errorf("expected sqlite sink Error, got %v", err)
	}
}

type failingSink struct {
	err    error
	writes int
}

func (f *failingSink) Write(context.Context, *model.CandidateRecord) error {
	f.writes++
	return f.err
}

func (f *failingSink) Ping(context.Context) error { return f.err }

func (f *failingSink) Close() error { return nil }

// TestMulti tests fan-out to several sinks.
func TestMulti(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	errDown := errors.New("down")

	ok := &failingSink{}
	bad := &failingSink{err: errDown}
	after := &failingSink{}
	m := NewMulti(ok, bad, after)

	if err := m.Write(ctx, record("https://example.org/a")); !errors.Is(err, errDown) {
		t.Errorf("expected errDown, got %v", err)
	}
	if ok.writes != 1 || bad.writes != 1 || after.writes != 0 {
		t.Errorf("writes = %d/%d/%d, want 1/1/0", ok.writes, bad.writes, after.writes)
	}
	if err := m.Ping(ctx); !errors.Is(err, errDown) {
		t.Errorf("expected Ping to fail, got %v", err)
	}
	if err := NewMulti(ok, after).Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

// TestDeadLetterFile tests the NDJSON dead-letter queue.
func TestDeadLetterFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dead.jsonl")
	q, err := OpenDeadLetterFile(path)
	if err != nil {
		t.Fatalf("OpenDeadLetterFile: %v", err)
	}
	for _, u := range []string{"https://example.org/a", "https://example.org/b"} {
		dl := &model.DeadLetter{RunID: "run-1", Record: *record(u), Error: "disk full", Attempts: 2}
		if err := q.DeadLetter(context.Background(), dl); err != nil {
			t.Fatalf("DeadLetter: %v", err)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := countLines(t, path); n != 2 {
		t.Errorf("expected 2 lines, got %d", n)
	}
}

package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/k8crawler/internal/model"
)

// createTestRun creates a finished run with sample counters.
func createTestRun() *model.RunSummary {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &model.RunSummary{
		ID:         "3f1c2a9e-0000-4000-8000-000000000001",
		State:      model.StateStopped,
		ConfigPath: "k8crawler.yaml",
		Seeds:      3,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Stats: model.RunStats{
			Dispatched:   12,
			Fetched:      10,
			FetchFailed:  2,
			Extracted:    8,
			Accepted:     6,
			Rejected:     2,
			Written:      5,
			DeadLettered: 1,
			Categories: map[model.Category]int64{
				model.CategoryLibrary:  3,
				model.CategoryTutoring: 2,
			},
		},
	}
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes run header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"K8CRAWLER RUN REPORT", "3f1c2a9e-0000-4000-8000-000000000001", "k8crawler.yaml", "Completed", "1m30s"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes categories largest first", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		library := strings.Index(output, "Library")
		tutoring := strings.Index(output, "Tutoring")
		if library < 0 || tutoring < 0 || library > tutoring {
			t.Errorf("expected Library before Tutoring, got:\n%s", output)
		}
	})

	t.Run("hides empty categories unless asked", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		run.Stats.Categories = nil

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "RECORDS BY CATEGORY") {
			t.Error("expected no category section")
		}

		buf.Reset()
		if _, err := NewSimpleWriter(&buf, WithShowEmpty(true)).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No records written") {
			t.Error("expected empty category section")
		}
	})

	t.Run("verbose adds pipeline counters", func(t *testing.T) {
		t.Parallel()

		var plain, verbose bytes.Buffer
		run := createTestRun()
		if _, err := NewSimpleWriter(&plain).Write(run); err != nil {
			t.Fatal(err)
		}
		if _, err := NewSimpleWriter(&verbose, WithVerbose(true)).Write(run); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(plain.String(), "Rejected:") {
			t.Error("non-verbose output contains pipeline counters")
		}
		if !strings.Contains(verbose.String(), "Rejected:") {
			t.Error("verbose output lacks pipeline counters")
		}
	})

	t.Run("failed run shows the error", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		run.State = model.StateFailed
		run.Error = "sink unavailable: connection refused"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(run); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "Failed - sink unavailable") {
			t.Errorf("expected failure status, got:\n%s", buf.String())
		}
	})

	t.Run("history", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteHistory(nil); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "No crawl runs recorded") {
			t.Errorf("unexpected empty history: %q", buf.String())
		}

		buf.Reset()
		if _, err := NewSimpleWriter(&buf).WriteHistory([]*model.RunSummary{createTestRun()}); err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("history lines = %d, want 2", len(lines))
		}
		if !strings.HasPrefix(lines[1], "3f1c2a9e") || !strings.Contains(lines[1], "stopped") {
			t.Errorf("unexpected history row: %q", lines[1])
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestRun()); err != nil {
			t.Fatal(err)
		}
		out := strings.TrimSuffix(buf.String(), "\n")
		if strings.Contains(out, "\n") {
			t.Error("compact output spans multiple lines")
		}

		var got model.RunSummary
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.State != model.StateStopped || got.Stats.Written != 5 {
			t.Errorf("decoded = %+v", got)
		}
		if got.Stats.Categories[model.CategoryLibrary] != 3 {
			t.Errorf("categories = %v", got.Stats.Categories)
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestRun()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "\n  \"state\": \"stopped\"") {
			t.Errorf("expected indented output, got:\n%s", buf.String())
		}
	})

	t.Run("empty history is an array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteHistory(nil); err != nil {
			t.Fatal(err)
		}
		if got := buf.String(); got != "[]\n" {
			t.Errorf("WriteHistory(nil) = %q, want []", got)
		}
	})

	t.Run("versioned", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteVersioned(createTestRun(), "v1.2.3"); err != nil {
			t.Fatal(err)
		}
		var got JSONReport
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if got.Version != "v1.2.3" || got.Run == nil || got.Run.Seeds != 3 {
			t.Errorf("decoded = %+v", got)
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestRun()); err != nil {
			t.Fatal(err)
		}
		output := buf.String()
		for _, want := range []string{
			"# k8crawler Run Report",
			"## Totals",
			"## Records by Category",
			"```mermaid",
			"Written Records by Category",
			"Library",
			"dead-lettered",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("no chart without records", func(t *testing.T) {
		t.Parallel()

		run := createTestRun()
		run.Stats = model.RunStats{}

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(run); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(buf.String(), "mermaid") {
			t.Error("expected no chart")
		}
		if !strings.Contains(buf.String(), "No records were written.") {
			t.Error("expected a note about no records")
		}
	})

	t.Run("history table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteHistory([]*model.RunSummary{createTestRun()}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "# Crawl History") || !strings.Contains(buf.String(), "3f1c2a9e") {
			t.Errorf("unexpected history:\n%s", buf.String())
		}
	})
}

type failingWriter struct{}

func (failingWriter) Write(*model.RunSummary) (int, error)          { return 0, errors.New("broken") }
func (failingWriter) WriteHistory([]*model.RunSummary) (int, error) { return 0, errors.New("broken") }

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		m := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))
		n, err := m.Write(createTestRun())
		if err != nil {
			t.Fatal(err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("n = %d, want %d", n, text.Len()+js.Len())
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		m := NewMultiWriter(failingWriter{}, NewSimpleWriter(&after))
		if _, err := m.WriteHistory(nil); err == nil {
			t.Error("expected error")
		}
		if after.Len() != 0 {
			t.Error("writer after the failure was called")
		}
	})
}

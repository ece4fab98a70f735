package report

import (
	"cmp"
	"io"
	"maps"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/k8crawler/internal/model"
)

// Writer outputs run summaries.
type Writer interface {
	// Write outputs the summary of a single run.
	// Returns the number of bytes written and any error encountered.
	Write(run *model.RunSummary) (int, error)

	// WriteHistory outputs a list of runs, newest first.
	WriteHistory(runs []*model.RunSummary) (int, error)
}

// MultiWriter writes to multiple Writers. It stops on the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all Writers and returns the total bytes written.
func (m *MultiWriter) Write(run *model.RunSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteHistory outputs the runs to all Writers.
func (m *MultiWriter) WriteHistory(runs []*model.RunSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteHistory(runs)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// categoryCount is one row of the category breakdown.
type categoryCount struct {
	label string
	count int64
}

// categoryCounts returns the written categories, largest first and then by
// name. Records without a category are labelled "Uncategorized".
func categoryCounts(stats model.RunStats) []categoryCount {
	title := cases.Title(language.English)
	out := make([]categoryCount, 0, len(stats.Categories))
	for _, c := range slices.Sorted(maps.Keys(stats.Categories)) {
		label := "Uncategorized"
		if c != "" {
			label = title.String(string(c))
		}
		out = append(out, categoryCount{label: label, count: stats.Categories[c]})
	}
	slices.SortStableFunc(out, func(a, b categoryCount) int {
		return cmp.Compare(b.count, a.count)
	})
	return out
}

// statusText describes how a run ended.
func statusText(run *model.RunSummary) string {
	switch run.State {
	case model.StateStopped:
		return "Completed"
	case model.StateFailed:
		if run.Error != "" {
			return "Failed - " + run.Error
		}
		return "Failed"
	default:
		return "In progress (" + string(run.State) + ")"
	}
}

const timeLayout = "2006-01-02 15:04:05 MST"

package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/k8crawler/internal/model"
)

// SimpleWriter outputs human-readable text reports for the terminal.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints the category section even when nothing was written.
	showEmpty bool

	// verbose adds the pipeline counters.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables the detailed pipeline counters.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run summary.
func (w *SimpleWriter) Write(run *model.RunSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, run)
	w.writeTotals(&sb, run.Stats)
	w.writeCategories(&sb, run.Stats)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// WriteHistory outputs one line per run.
func (w *SimpleWriter) WriteHistory(runs []*model.RunSummary) (int, error) {
	var sb strings.Builder
	if len(runs) == 0 {
		sb.WriteString("No crawl runs recorded.\n")
		return io.WriteString(w.output, sb.String())
	}

	fmt.Fprintf(&sb, "%-36s  %-8s  %-23s  %10s  %8s  %8s\n",
		"RUN", "STATE", "STARTED", "DURATION", "FETCHED", "WRITTEN")
	for _, run := range runs {
		fmt.Fprintf(&sb, "%-36s  %-8s  %-23s  %10s  %8d  %8d\n",
			run.ID,
			run.State,
			run.StartedAt.Format(timeLayout),
			run.Duration().Round(time.Second),
			run.Stats.Fetched,
			run.Stats.Written,
		)
	}
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *model.RunSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        K8CRAWLER RUN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run:            %s\n", run.ID)
	if run.ConfigPath != "" {
		fmt.Fprintf(sb, "Config:         %s\n", run.ConfigPath)
	}
	fmt.Fprintf(sb, "Started:        %s\n", run.StartedAt.Format(timeLayout))
	fmt.Fprintf(sb, "Duration:       %s\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Seeds:          %d\n", run.Seeds)
	fmt.Fprintf(sb, "Status:         %s\n", statusText(run))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeTotals(sb *strings.Builder, st model.RunStats) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("TOTALS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  FETCHED:        %d\n", st.Fetched)
	fmt.Fprintf(sb, "  FAILED:         %d\n", st.FetchFailed)
	fmt.Fprintf(sb, "  WRITTEN:        %d\n", st.Written)
	fmt.Fprintf(sb, "  DEAD LETTERED:  %d\n", st.DeadLettered)

	if w.verbose {
		sb.WriteString("\n")
		fmt.Fprintf(sb, "  Dispatched:     %d\n", st.Dispatched)
		fmt.Fprintf(sb, "  Robots denied:  %d\n", st.RobotsDenied)
		fmt.Fprintf(sb, "  Requeued:       %d\n", st.Requeued)
		fmt.Fprintf(sb, "  Links queued:   %d\n", st.Links)
		fmt.Fprintf(sb, "  Feeds:          %d\n", st.Feeds)
		fmt.Fprintf(sb, "  Extracted:      %d\n", st.Extracted)
		fmt.Fprintf(sb, "  Accepted:       %d\n", st.Accepted)
		fmt.Fprintf(sb, "  Rejected:       %d\n", st.Rejected)
		fmt.Fprintf(sb, "  Duplicates:     %d\n", st.Duplicates)
		fmt.Fprintf(sb, "  Sink retries:   %d\n", st.SinkRetried)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCategories(sb *strings.Builder, st model.RunStats) {
	counts := categoryCounts(st)
	if len(counts) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RECORDS BY CATEGORY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(counts) == 0 {
		sb.WriteString("  No records written\n\n")
		return
	}
	for _, c := range counts {
		fmt.Fprintf(sb, "  [+] %-16s %d\n", c.label, c.count)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by k8crawler\n")
	sb.WriteString("https://github.com/nao1215/k8crawler\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

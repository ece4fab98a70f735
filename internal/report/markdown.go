package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/k8crawler/internal/model"
)

// MarkdownWriter outputs reports in Markdown format, built with
// nao1215/markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the run summary.
func (w *MarkdownWriter) Write(run *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeTotals(md, run.Stats)
	w.writeCategories(md, run.Stats)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteHistory outputs a table of runs.
func (w *MarkdownWriter) WriteHistory(runs []*model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Crawl History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No crawl runs recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			"`" + run.ID + "`",
			string(run.State),
			run.StartedAt.Format(timeLayout),
			run.Duration().Round(time.Second).String(),
			strconv.FormatInt(run.Stats.Fetched, 10),
			strconv.FormatInt(run.Stats.Written, 10),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Run", "State", "Started", "Duration", "Fetched", "Written"},
		Rows:   rows,
	})
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.RunSummary) {
	md.H1("k8crawler Run Report")
	md.PlainText("")

	rows := [][]string{
		{"Run", "`" + run.ID + "`"},
		{"Started", run.StartedAt.Format(timeLayout)},
		{"Duration", run.Duration().Round(time.Millisecond).String()},
		{"Seeds", strconv.Itoa(run.Seeds)},
		{"Status", statusText(run)},
	}
	if run.ConfigPath != "" {
		rows = append(rows, []string{"Config", "`" + run.ConfigPath + "`"})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if run.State == model.StateFailed {
		md.Cautionf("The crawl could not start: %s", run.Error)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeTotals(md *markdown.Markdown, st model.RunStats) {
	md.H2("Totals")
	md.PlainText("")

	count := func(n int64) string { return strconv.FormatInt(n, 10) }
	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Dispatched", count(st.Dispatched)},
			{"Fetched", count(st.Fetched)},
			{"Fetch failures", count(st.FetchFailed)},
			{"Robots denied", count(st.RobotsDenied)},
			{"Requeued", count(st.Requeued)},
			{"Extracted", count(st.Extracted)},
			{"Rejected", count(st.Rejected)},
			{"Duplicates", count(st.Duplicates)},
			{"**Written**", "**" + count(st.Written) + "**"},
			{"Dead lettered", count(st.DeadLettered)},
		},
	})
	md.PlainText("")

	switch {
	case st.DeadLettered > 0:
		md.Warningf("%d record(s) could not be written and were dead-lettered.", st.DeadLettered)
	case st.Written == 0:
		md.Note("No records were written.")
	default:
		md.Tip("All accepted records were written.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, st model.RunStats) {
	counts := categoryCounts(st)
	if len(counts) == 0 {
		return
	}

	md.H2("Records by Category")
	md.PlainText("")

	rows := make([][]string, len(counts))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Written Records by Category"),
		piechart.WithShowData(true),
	)
	for i, c := range counts {
		rows[i] = []string{c.label, strconv.FormatInt(c.count, 10)}
		chart.LabelAndIntValue(c.label, uint64(c.count))
	}
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Records"},
		Rows:   rows,
	})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [k8crawler](https://github.com/nao1215/k8crawler)*")
}

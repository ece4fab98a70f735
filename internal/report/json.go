package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/k8crawler/internal/model"
)

// JSONWriter outputs summaries as JSON.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport wraps a run summary with the crawler version.
type JSONReport struct {
	Version string            `json:"version,omitempty"`
	Run     *model.RunSummary `json:"run"`
}

// Write outputs the summary as a JSON object.
func (w *JSONWriter) Write(run *model.RunSummary) (int, error) {
	return w.writeJSON(run)
}

// WriteHistory outputs the runs as a JSON array. A nil slice is written
// as an empty array.
func (w *JSONWriter) WriteHistory(runs []*model.RunSummary) (int, error) {
	if runs == nil {
		runs = []*model.RunSummary{}
	}
	return w.writeJSON(runs)
}

// WriteVersioned outputs the summary wrapped in a JSONReport.
func (w *JSONWriter) WriteVersioned(run *model.RunSummary, version string) (int, error) {
	return w.writeJSON(&JSONReport{Version: version, Run: run})
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

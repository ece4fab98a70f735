// Package report renders crawl run summaries.
//
// Three writers are provided:
//   - SimpleWriter: human-readable text for the terminal
//   - JSONWriter: structured JSON for scripts
//   - MarkdownWriter: Markdown with a category chart, for sharing
//
// All writers implement Writer and can be combined with MultiWriter.
package report

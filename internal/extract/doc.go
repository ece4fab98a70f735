// Package extract turns fetched pages into candidate records and new
// frontier entries.
//
// A Pipeline runs an ordered list of FieldExtractors over a parsed
// Document. Each extractor fills some fields of a partial record; the first
// non-empty value per field wins. An extractor that fails or panics is
// reported as an *ExtractionError and its fields stay unknown.
//
// Link discovery runs next to field extraction: anchors whose URL or text
// contains a configured keyword become frontier entries, and RSS or Atom
// feeds are expanded into their item links.
package extract

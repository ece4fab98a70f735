// Package model defines the data types shared across the crawl pipeline.
//
// Data flows through the crawler as explicit typed messages:
//
//	FrontierEntry -> FetchResult -> CandidateRecord
//
// A FrontierEntry is owned by the frontier, a FetchResult lives only until
// the extractor pipeline has consumed it, and a CandidateRecord is immutable
// once the pipeline has produced it.
package model

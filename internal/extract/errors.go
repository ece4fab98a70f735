package extract

import "fmt"

// ExtractionError reports a failed field extractor.
type ExtractionError struct {
	// Extractor is the Name of the failing extractor.
	Extractor string
	// URL is the page being extracted.
	URL string
	// Err is the cause.
	Err error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extractor %s failed on %s: %v", e.Extractor, e.URL, e.Err)
}

// Unwrap returns the cause.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

package extract

import "fmt"

// ExtractionError wraps a failure in one stage of PDF parsing so callers can
// tell opening failures apart from page-level ones.
type ExtractionError struct {
	Stage string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

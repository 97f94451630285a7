// errors.go - Error taxonomy for the extraction pipeline.
//
// Only structurally fatal conditions become errors: unreadable input, no
// OCR engine, or no tier producing totals. Everything recoverable is
// downgraded to a warning on the result instead.

package invoice

import "fmt"

// DecodeError means the input bytes could not be decoded as an image.
// Fatal and not transient: retrying with the same bytes cannot help.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode document: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode document: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// OcrEngineError means the recognition engine failed or produced nothing.
// Fatal for this request; the whole request is safe to retry later.
type OcrEngineError struct {
	Reason string
	Err    error
}

func (e *OcrEngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ocr engine: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("ocr engine: %s", e.Reason)
}

func (e *OcrEngineError) Unwrap() error { return e.Err }

// ExtractionFailed means a strategy produced no usable totals. For Tier 1
// it triggers fallthrough; for the last tier it is fatal.
type ExtractionFailed struct {
	Strategy string
	Reason   string
	Err      error
}

func (e *ExtractionFailed) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed (%s): %s: %v", e.Strategy, e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed (%s): %s", e.Strategy, e.Reason)
}

func (e *ExtractionFailed) Unwrap() error { return e.Err }

package detect

import (
    "errors"
    "fmt"
)

// ErrNoTOC means the document carries no usable embedded table of contents.
// Callers typically fall back to AI or manual detection.
var ErrNoTOC = errors.New("document has no usable table of contents")

// AIRequestError wraps a provider/transport failure during AI detection,
// after the failover chain is exhausted.
type AIRequestError struct {
    Err error
}

func (e *AIRequestError) Error() string { return fmt.Sprintf("AI request failed: %v", e.Err) }
func (e *AIRequestError) Unwrap() error { return e.Err }

// AIParseError means a provider answered but the reply was not the expected
// JSON chapter list. Raw keeps a truncated copy of the reply for diagnosis.
type AIParseError struct {
    Raw string
    Err error
}

func (e *AIParseError) Error() string { return fmt.Sprintf("AI response unparseable: %v", e.Err) }
func (e *AIParseError) Unwrap() error { return e.Err }

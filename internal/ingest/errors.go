package ingest

import "fmt"

// FailureClass names the pipeline stage that rejected a record.
type FailureClass string

const (
	FailNormalization FailureClass = "normalization"
	FailEncryption    FailureClass = "encryption"
	FailStorage       FailureClass = "storage"
)

// IngestError is a record-level failure tagged with its class. The class
// decides the caller's handling: normalization and encryption failures are
// record-isolated, storage failures usually mean the whole run should stop.
type IngestError struct {
	Class FailureClass
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest: %s: %v", e.Class, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

package engine

import (
	"errors"
	"fmt"
)

var (
	ErrMissingQuery         = errors.New("missing query")
	ErrMissingDocument      = errors.New("missing document")
	ErrDocumentNotFound     = fmt.Errorf("%w: file not found", ErrMissingDocument)
	ErrStorage              = errors.New("storage failed")
	ErrExtraction           = errors.New("extraction failed")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrIndex                = errors.New("index failed")
	ErrMetadata             = errors.New("metadata failed")
)

// StageError reports which ingestion or fetch stage failed.
// errors.Is matches both the stage sentinel and the cause.
type StageError struct {
	Stage error
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%v: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Stage, e.Err}
}

var stageDetails = map[error]string{
	ErrStorage:    "File save failed: ",
	ErrExtraction: "PDF text extraction failed: ",
	ErrIndex:      "Vector index storage failed: ",
	ErrMetadata:   "DB save failed: ",
}

// Detail is the client-facing description of an ingestion failure.
func (e *StageError) Detail() string {
	return stageDetails[e.Stage] + e.Err.Error()
}

// Failure is a workflow resolution failure with its client-facing message.
type Failure struct {
	Kind    error
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Err}
}

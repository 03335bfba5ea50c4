package models

import "time"

// DocumentRecord is the metadata row written once per successful ingestion.
type DocumentRecord struct {
	ID          int64
	Filename    string
	UploadTime  *time.Time
	Description *string
}

// IngestResult is returned by a fully successful ingestion.
// EmbeddingPreview is nil when no usable embedding was produced.
type IngestResult struct {
	DocumentID       int64
	EmbeddingPreview []float32
}


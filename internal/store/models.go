package store

import (
	"time"

	"clipmark/internal/gateway"
)

// Annotation is a stored record with server-side metadata.
type Annotation struct {
	ID          int64                    `json:"id"`
	AnnotatorID string                   `json:"annotatorId"`
	BatchID     string                   `json:"batchId,omitempty"`
	Record      gateway.AnnotationRecord `json:"record"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	AnnotatorID string
	ClipFolder  string
	// Limit caps the number of rows; zero means no limit.
	Limit int
}

// Stats summarizes the database contents.
type Stats struct {
	Annotations int        `json:"annotations"`
	Annotators  int        `json:"annotators"`
	Clips       int        `json:"clips"`
	Batches     int        `json:"batches"`
	LastCreated *time.Time `json:"lastCreated,omitempty"`
}

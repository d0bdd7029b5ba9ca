package models

import "time"

// ArtifactState tracks an artifact through Created -> Served -> Deleted.
type ArtifactState string

const (
	ArtifactCreated ArtifactState = "created"
	ArtifactServed  ArtifactState = "served"
	ArtifactDeleted ArtifactState = "deleted"
)

// Artifact is a finished file in the downloads directory.
type Artifact struct {
	Filename   string
	Path       string
	Format     string // requested output format
	SlideCount int
	Size       int64
}

// ArtifactRecord is the persisted history of an artifact.
type ArtifactRecord struct {
	Filename   string        `json:"filename"`
	Format     string        `json:"format"`
	Title      string        `json:"title"`
	SlideCount int           `json:"slide_count"`
	Size       int64         `json:"size"`
	State      ArtifactState `json:"state"`
	CreatedAt  time.Time     `json:"created_at"`
	ServedAt   *time.Time    `json:"served_at,omitempty"`
	DeletedAt  *time.Time    `json:"deleted_at,omitempty"`
}

// FailureRecord is a persisted generation failure.
type FailureRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
	Request   string    `json:"request"` // JSON of the generate request
}

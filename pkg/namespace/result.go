package namespace

import "bucketfs/pkg/models"

// Result carries the record affected by a mutation and the events it produced.
type Result[T any] struct {
	Record T
	Events []models.Event
}

// MoveState is the stage a move request reached.
type MoveState string

const (
	MoveRequested MoveState = "requested"
	MoveValidated MoveState = "validated"
	MoveApplied   MoveState = "applied"
	MoveRejected  MoveState = "rejected"
)

// MoveResult reports the outcome of MoveFile. On rejection File is nil and the
// error says why.
type MoveResult struct {
	File      *models.File
	State     MoveState
	Unchanged bool
	From      string
	To        string
	Events    []models.Event
}

// DeleteSummary counts what a bucket or folder delete removed.
type DeleteSummary struct {
	Bucket  string `json:"bucket"`
	Path    string `json:"path,omitempty"`
	Folders int64  `json:"folders"`
	Files   int64  `json:"files"`
	Purged  int    `json:"purged"`
}

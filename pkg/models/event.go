package models

import "time"

// EventKind names a side effect produced by a namespace mutation.
type EventKind string

const (
	EventBucketCreated   EventKind = "bucket.created"
	EventBucketUpdated   EventKind = "bucket.updated"
	EventBucketDeleted   EventKind = "bucket.deleted"
	EventFolderCreated   EventKind = "folder.created"
	EventFolderDeleted   EventKind = "folder.deleted"
	EventFileCreated     EventKind = "file.created"
	EventFileDeleted     EventKind = "file.deleted"
	EventFileMoved       EventKind = "file.moved"
	EventTreeInvalidated EventKind = "tree.invalidated"
	EventPurgeQueued     EventKind = "blob.purge_queued"
)

// Event is returned to callers so they can refresh views or notify users.
type Event struct {
	Kind     EventKind `json:"kind"`
	BucketID int64     `json:"bucket_id"`
	Path     string    `json:"path,omitempty"`
	FileID   string    `json:"file_id,omitempty"`
	At       time.Time `json:"at"`
}

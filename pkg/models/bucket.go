package models

import "time"

// Bucket represents a named container for files and folders within a project.
type Bucket struct {
	ID               int64     `json:"id"`
	ProjectID        string    `json:"project_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	IsPublic         bool      `json:"is_public"`
	MaxFileSize      int64     `json:"max_file_size"`
	AllowedMimeTypes []string  `json:"allowed_mime_types"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Computed fields (not stored in database).
	FileCount    int64     `json:"file_count"`
	TotalSize    int64     `json:"total_size"`
	LastModified time.Time `json:"last_modified"`
}

// AllowsAnyMimeType reports whether the bucket accepts every content type.
func (b *Bucket) AllowsAnyMimeType() bool {
	return len(b.AllowedMimeTypes) == 0
}

// BucketListResponse represents a list of buckets.
type BucketListResponse struct {
	Buckets []Bucket `json:"buckets"`
}

package models

import "time"

// File is the metadata record of an uploaded file. The bytes live in the blob store
// and are addressed by Locator.
type File struct {
	ID           string    `json:"id"`
	BucketID     int64     `json:"-"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	FolderPath   string    `json:"folder_path"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	Checksum     string    `json:"checksum,omitempty"`
	IsPublic     bool      `json:"is_public"`
	Author       string    `json:"author,omitempty"`
	Locator      string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// PublicURL is derived from the blob store for public files.
	PublicURL string `json:"public_url,omitempty"`
}

// FileMeta describes a file about to be created.
type FileMeta struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

package models

import "time"

// Folder is a materialized path marker inside a bucket. It may hold no files.
type Folder struct {
	BucketID  int64     `json:"-"`
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

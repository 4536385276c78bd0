// Package metadata persists bucket, folder and file records.
package metadata

import (
	"context"
	"time"

	"bucketfs/pkg/models"
)

// Queries are the record operations available both on the store and inside a
// transaction. Not-found lookups return the matching models sentinel; engine
// failures wrap ErrDatabase.
type Queries interface {
	GetBucket(ctx context.Context, id int64) (*models.Bucket, error)
	GetBucketByName(ctx context.Context, projectID, name string) (*models.Bucket, error)
	ListBuckets(ctx context.Context, projectID string) ([]models.Bucket, error)
	PutBucket(ctx context.Context, bucket *models.Bucket) error
	UpdateBucket(ctx context.Context, bucket *models.Bucket) error
	DeleteBucket(ctx context.Context, id int64) error

	GetFolder(ctx context.Context, bucketID int64, path string) (*models.Folder, error)
	// ListFolders returns every folder at or below prefix; "" lists the whole bucket.
	ListFolders(ctx context.Context, bucketID int64, prefix string) ([]models.Folder, error)
	ListChildFolders(ctx context.Context, bucketID int64, parent string) ([]models.Folder, error)
	PutFolder(ctx context.Context, folder *models.Folder) error
	DeleteFolder(ctx context.Context, bucketID int64, path string) error
	// DeleteFolderTree removes the folder at path and all its descendants.
	DeleteFolderTree(ctx context.Context, bucketID int64, path string) (int64, error)

	GetFile(ctx context.Context, bucketID int64, id string) (*models.File, error)
	ListFiles(ctx context.Context, bucketID int64, folderPath string) ([]models.File, error)
	// ListAllFiles returns every file at or below prefix; "" lists the whole bucket.
	ListAllFiles(ctx context.Context, bucketID int64, prefix string) ([]models.File, error)
	PutFile(ctx context.Context, file *models.File) error
	DeleteFile(ctx context.Context, bucketID int64, id string) error
	// DeleteFilesUnder removes every file at or below prefix.
	DeleteFilesUnder(ctx context.Context, bucketID int64, prefix string) (int64, error)
	UpdateFilePath(ctx context.Context, bucketID int64, id, folderPath string, at time.Time) error

	// CountEntries returns the number of folders and files in a bucket.
	CountEntries(ctx context.Context, bucketID int64) (folders, files int64, err error)
	// CountBelow returns the number of folders strictly below path and of files at or
	// below it.
	CountBelow(ctx context.Context, bucketID int64, path string) (folders, files int64, err error)

	AddPendingPurge(ctx context.Context, purge *PendingPurge) error
	ListPendingPurges(ctx context.Context, limit int) ([]PendingPurge, error)
	DeletePendingPurge(ctx context.Context, id int64) error
	MarkPurgeAttempt(ctx context.Context, id int64, lastErr string) error
}

// Store is a metadata store with transactions.
type Store interface {
	Queries

	// InTx runs fn in one serializable transaction. A returned error or a canceled
	// context rolls everything back.
	InTx(ctx context.Context, fn func(q Queries) error) error

	Close() error
}

// PendingPurge is a blob delete that has not succeeded yet.
type PendingPurge struct {
	ID        int64
	BucketID  int64
	Locator   string
	Attempts  int
	LastError string
	CreatedAt time.Time
}

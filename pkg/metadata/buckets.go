package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"bucketfs/pkg/models"
)

const bucketColumns = `b.id, b.project_id, b.name, b.description, b.is_public, b.max_file_size,
	b.allowed_mime_types, b.created_at, b.updated_at,
	(SELECT COUNT(*) FROM files f WHERE f.bucket_id = b.id),
	(SELECT COALESCE(SUM(f.size), 0) FROM files f WHERE f.bucket_id = b.id),
	(SELECT MAX(f.updated_at) FROM files f WHERE f.bucket_id = b.id)`

type scanner interface {
	Scan(dest ...any) error
}

func scanBucket(row scanner) (*models.Bucket, error) {
	var (
		bucket       models.Bucket
		mimeJSON     string
		created      int64
		updated      int64
		lastModified sql.NullInt64
	)
	err := row.Scan(&bucket.ID, &bucket.ProjectID, &bucket.Name, &bucket.Description, &bucket.IsPublic,
		&bucket.MaxFileSize, &mimeJSON, &created, &updated,
		&bucket.FileCount, &bucket.TotalSize, &lastModified)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(mimeJSON), &bucket.AllowedMimeTypes); err != nil {
		return nil, fmt.Errorf("%w: failed to parse mime types: %w", ErrDatabase, err)
	}
	if bucket.AllowedMimeTypes == nil {
		bucket.AllowedMimeTypes = []string{}
	}

	bucket.CreatedAt = fromNanos(created)
	bucket.UpdatedAt = fromNanos(updated)
	bucket.LastModified = bucket.UpdatedAt
	if lastModified.Valid && lastModified.Int64 > updated {
		bucket.LastModified = fromNanos(lastModified.Int64)
	}
	return &bucket, nil
}

func (q queries) getBucketWhere(ctx context.Context, where string, args ...any) (*models.Bucket, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+bucketColumns+` FROM buckets b WHERE `+where, args...)
	bucket, err := scanBucket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrBucketNotFound
	}
	if err != nil {
		return nil, dbError(err)
	}
	return bucket, nil
}

// GetBucket retrieves a bucket by ID with its computed statistics.
func (q queries) GetBucket(ctx context.Context, id int64) (*models.Bucket, error) {
	return q.getBucketWhere(ctx, `b.id = ?`, id)
}

// GetBucketByName retrieves a bucket by project and name.
func (q queries) GetBucketByName(ctx context.Context, projectID, name string) (*models.Bucket, error) {
	return q.getBucketWhere(ctx, `b.project_id = ? AND b.name = ?`, projectID, name)
}

// ListBuckets lists the buckets of a project sorted by name.
func (q queries) ListBuckets(ctx context.Context, projectID string) ([]models.Bucket, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+bucketColumns+` FROM buckets b WHERE b.project_id = ? ORDER BY b.name, b.id`,
		projectID,
	)
	if err != nil {
		return nil, dbError(err)
	}
	defer func() { _ = rows.Close() }()

	buckets := []models.Bucket{}
	for rows.Next() {
		bucket, scanErr := scanBucket(rows)
		if scanErr != nil {
			return nil, dbError(scanErr)
		}
		buckets = append(buckets, *bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return buckets, nil
}

// PutBucket inserts a new bucket and sets its ID.
func (q queries) PutBucket(ctx context.Context, bucket *models.Bucket) error {
	mimeJSON, err := marshalMimeTypes(bucket.AllowedMimeTypes)
	if err != nil {
		return err
	}

	result, err := q.q.ExecContext(ctx,
		`INSERT INTO buckets (project_id, name, description, is_public, max_file_size, allowed_mime_types, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		bucket.ProjectID, bucket.Name, bucket.Description, bucket.IsPublic, bucket.MaxFileSize, mimeJSON,
		nanos(bucket.CreatedAt), nanos(bucket.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return models.ErrDuplicateName
	}
	if err != nil {
		return dbError(err)
	}

	bucket.ID, err = result.LastInsertId()
	if err != nil {
		return dbError(err)
	}
	return nil
}

// UpdateBucket writes the mutable fields of a bucket.
func (q queries) UpdateBucket(ctx context.Context, bucket *models.Bucket) error {
	mimeJSON, err := marshalMimeTypes(bucket.AllowedMimeTypes)
	if err != nil {
		return err
	}

	result, err := q.q.ExecContext(ctx,
		`UPDATE buckets SET description = ?, is_public = ?, max_file_size = ?, allowed_mime_types = ?, updated_at = ?
		 WHERE id = ?`,
		bucket.Description, bucket.IsPublic, bucket.MaxFileSize, mimeJSON, nanos(bucket.UpdatedAt), bucket.ID,
	)
	if err != nil {
		return dbError(err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrBucketNotFound
	}
	return nil
}

// DeleteBucket removes the bucket row. Callers delete folders and files first.
func (q queries) DeleteBucket(ctx context.Context, id int64) error {
	result, err := q.q.ExecContext(ctx, `DELETE FROM buckets WHERE id = ?`, id)
	if err != nil {
		return dbError(err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrBucketNotFound
	}
	return nil
}

func marshalMimeTypes(types []string) (string, error) {
	if types == nil {
		types = []string{}
	}
	data, err := json.Marshal(types)
	if err != nil {
		return "", fmt.Errorf("%w: failed to serialize mime types: %w", ErrDatabase, err)
	}
	return string(data), nil
}

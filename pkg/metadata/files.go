package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bucketfs/pkg/models"
	"bucketfs/pkg/paths"
)

const fileColumns = `id, bucket_id, original_name, stored_name, folder_path, mime_type, size, checksum,
	is_public, author, locator, created_at, updated_at`

func scanFile(row scanner) (*models.File, error) {
	var (
		file             models.File
		created, updated int64
	)
	err := row.Scan(&file.ID, &file.BucketID, &file.OriginalName, &file.StoredName, &file.FolderPath,
		&file.MimeType, &file.Size, &file.Checksum, &file.IsPublic, &file.Author, &file.Locator,
		&created, &updated)
	if err != nil {
		return nil, err
	}
	file.CreatedAt = fromNanos(created)
	file.UpdatedAt = fromNanos(updated)
	return &file, nil
}

func (q queries) queryFiles(ctx context.Context, query string, args ...any) ([]models.File, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err)
	}
	defer func() { _ = rows.Close() }()

	files := []models.File{}
	for rows.Next() {
		file, scanErr := scanFile(rows)
		if scanErr != nil {
			return nil, dbError(scanErr)
		}
		files = append(files, *file)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return files, nil
}

// GetFile retrieves a file record of a bucket.
func (q queries) GetFile(ctx context.Context, bucketID int64, id string) (*models.File, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE bucket_id = ? AND id = ?`, bucketID, id)
	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrFileNotFound
	}
	if err != nil {
		return nil, dbError(err)
	}
	return file, nil
}

// ListFiles returns the files directly inside folderPath ordered by id.
func (q queries) ListFiles(ctx context.Context, bucketID int64, folderPath string) ([]models.File, error) {
	return q.queryFiles(ctx,
		`SELECT `+fileColumns+` FROM files WHERE bucket_id = ? AND folder_path = ? ORDER BY id`,
		bucketID, folderPath,
	)
}

// ListAllFiles returns the files at or below prefix ordered by folder and id.
func (q queries) ListAllFiles(ctx context.Context, bucketID int64, prefix string) ([]models.File, error) {
	if prefix == paths.Root {
		return q.queryFiles(ctx,
			`SELECT `+fileColumns+` FROM files WHERE bucket_id = ? ORDER BY folder_path, id`,
			bucketID,
		)
	}
	sub := below(prefix)
	return q.queryFiles(ctx,
		`SELECT `+fileColumns+` FROM files
		 WHERE bucket_id = ? AND (folder_path = ? OR substr(folder_path, 1, length(?)) = ?)
		 ORDER BY folder_path, id`,
		bucketID, prefix, sub, sub,
	)
}

// PutFile inserts a new file record.
func (q queries) PutFile(ctx context.Context, file *models.File) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO files (`+fileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		file.ID, file.BucketID, file.OriginalName, file.StoredName, file.FolderPath, file.MimeType,
		file.Size, file.Checksum, file.IsPublic, file.Author, file.Locator,
		nanos(file.CreatedAt), nanos(file.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: stored name %q already used", models.ErrConflict, file.StoredName)
	}
	if err != nil {
		return dbError(err)
	}
	return nil
}

// DeleteFile removes one file record.
func (q queries) DeleteFile(ctx context.Context, bucketID int64, id string) error {
	result, err := q.q.ExecContext(ctx, `DELETE FROM files WHERE bucket_id = ? AND id = ?`, bucketID, id)
	if err != nil {
		return dbError(err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrFileNotFound
	}
	return nil
}

// DeleteFilesUnder removes every file at or below prefix. The root prefix empties the bucket.
func (q queries) DeleteFilesUnder(ctx context.Context, bucketID int64, prefix string) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if prefix == paths.Root {
		result, err = q.q.ExecContext(ctx, `DELETE FROM files WHERE bucket_id = ?`, bucketID)
	} else {
		sub := below(prefix)
		result, err = q.q.ExecContext(ctx,
			`DELETE FROM files WHERE bucket_id = ? AND (folder_path = ? OR substr(folder_path, 1, length(?)) = ?)`,
			bucketID, prefix, sub, sub,
		)
	}
	if err != nil {
		return 0, dbError(err)
	}
	return rowsAffected(result)
}

// UpdateFilePath rewrites the folder of a file. The locator is left untouched.
func (q queries) UpdateFilePath(ctx context.Context, bucketID int64, id, folderPath string, at time.Time) error {
	result, err := q.q.ExecContext(ctx,
		`UPDATE files SET folder_path = ?, updated_at = ? WHERE bucket_id = ? AND id = ?`,
		folderPath, nanos(at), bucketID, id,
	)
	if err != nil {
		return dbError(err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrFileNotFound
	}
	return nil
}

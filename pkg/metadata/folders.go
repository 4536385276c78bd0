package metadata

import (
	"context"
	"database/sql"
	"errors"

	"bucketfs/pkg/models"
	"bucketfs/pkg/paths"
)

func (q queries) queryFolders(ctx context.Context, query string, args ...any) ([]models.Folder, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err)
	}
	defer func() { _ = rows.Close() }()

	folders := []models.Folder{}
	for rows.Next() {
		var (
			folder  models.Folder
			created int64
		)
		if err := rows.Scan(&folder.BucketID, &folder.Path, &folder.Name, &created); err != nil {
			return nil, dbError(err)
		}
		folder.CreatedAt = fromNanos(created)
		folders = append(folders, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return folders, nil
}

// GetFolder retrieves one folder by its normalized path.
func (q queries) GetFolder(ctx context.Context, bucketID int64, path string) (*models.Folder, error) {
	folder := &models.Folder{}
	var created int64
	err := q.q.QueryRowContext(ctx,
		`SELECT bucket_id, path, name, created_at FROM folders WHERE bucket_id = ? AND path = ?`,
		bucketID, path,
	).Scan(&folder.BucketID, &folder.Path, &folder.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrFolderNotFound
	}
	if err != nil {
		return nil, dbError(err)
	}
	folder.CreatedAt = fromNanos(created)
	return folder, nil
}

// ListFolders returns all folders at or below prefix ordered by path.
func (q queries) ListFolders(ctx context.Context, bucketID int64, prefix string) ([]models.Folder, error) {
	if prefix == paths.Root {
		return q.queryFolders(ctx,
			`SELECT bucket_id, path, name, created_at FROM folders WHERE bucket_id = ? ORDER BY path`,
			bucketID,
		)
	}
	sub := below(prefix)
	return q.queryFolders(ctx,
		`SELECT bucket_id, path, name, created_at FROM folders
		 WHERE bucket_id = ? AND (path = ? OR substr(path, 1, length(?)) = ?)
		 ORDER BY path`,
		bucketID, prefix, sub, sub,
	)
}

// ListChildFolders returns the direct children of parent ordered by path.
func (q queries) ListChildFolders(ctx context.Context, bucketID int64, parent string) ([]models.Folder, error) {
	return q.queryFolders(ctx,
		`SELECT bucket_id, path, name, created_at FROM folders WHERE bucket_id = ? AND parent = ? ORDER BY path`,
		bucketID, parent,
	)
}

// PutFolder inserts a folder. The parent column is derived from the path.
func (q queries) PutFolder(ctx context.Context, folder *models.Folder) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO folders (bucket_id, path, name, parent, created_at) VALUES (?, ?, ?, ?, ?)`,
		folder.BucketID, folder.Path, folder.Name, paths.Parent(folder.Path), nanos(folder.CreatedAt),
	)
	if isUniqueViolation(err) {
		return models.ErrDuplicateFolder
	}
	if err != nil {
		return dbError(err)
	}
	return nil
}

// DeleteFolder removes exactly one folder.
func (q queries) DeleteFolder(ctx context.Context, bucketID int64, path string) error {
	result, err := q.q.ExecContext(ctx, `DELETE FROM folders WHERE bucket_id = ? AND path = ?`, bucketID, path)
	if err != nil {
		return dbError(err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrFolderNotFound
	}
	return nil
}

// DeleteFolderTree removes path and every folder below it. The root path removes all
// folders of the bucket.
func (q queries) DeleteFolderTree(ctx context.Context, bucketID int64, path string) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if path == paths.Root {
		result, err = q.q.ExecContext(ctx, `DELETE FROM folders WHERE bucket_id = ?`, bucketID)
	} else {
		sub := below(path)
		result, err = q.q.ExecContext(ctx,
			`DELETE FROM folders WHERE bucket_id = ? AND (path = ? OR substr(path, 1, length(?)) = ?)`,
			bucketID, path, sub, sub,
		)
	}
	if err != nil {
		return 0, dbError(err)
	}
	return rowsAffected(result)
}

// CountEntries returns the number of folders and files in a bucket.
func (q queries) CountEntries(ctx context.Context, bucketID int64) (int64, int64, error) {
	var folders, files int64
	err := q.q.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM folders WHERE bucket_id = ?), (SELECT COUNT(*) FROM files WHERE bucket_id = ?)`,
		bucketID, bucketID,
	).Scan(&folders, &files)
	if err != nil {
		return 0, 0, dbError(err)
	}
	return folders, files, nil
}

// CountBelow counts folders strictly below path and files at or below it.
func (q queries) CountBelow(ctx context.Context, bucketID int64, path string) (int64, int64, error) {
	if path == paths.Root {
		return q.CountEntries(ctx, bucketID)
	}

	sub := below(path)
	var folders, files int64
	err := q.q.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM folders WHERE bucket_id = ? AND substr(path, 1, length(?)) = ?),
		   (SELECT COUNT(*) FROM files WHERE bucket_id = ? AND (folder_path = ? OR substr(folder_path, 1, length(?)) = ?))`,
		bucketID, sub, sub,
		bucketID, path, sub, sub,
	).Scan(&folders, &files)
	if err != nil {
		return 0, 0, dbError(err)
	}
	return folders, files, nil
}

package metadata

import (
	"context"
)

// AddPendingPurge records a failed blob delete. Recording the same locator twice
// keeps one row.
func (q queries) AddPendingPurge(ctx context.Context, purge *PendingPurge) error {
	err := q.q.QueryRowContext(ctx,
		`INSERT INTO pending_purges (bucket_id, locator, attempts, last_error, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(locator) DO UPDATE SET
		 attempts = pending_purges.attempts + 1,
		 last_error = excluded.last_error
		 RETURNING id`,
		purge.BucketID, purge.Locator, purge.Attempts, purge.LastError, nanos(purge.CreatedAt),
	).Scan(&purge.ID)
	if err != nil {
		return dbError(err)
	}
	return nil
}

// ListPendingPurges returns the oldest pending purges first. limit <= 0 returns all.
func (q queries) ListPendingPurges(ctx context.Context, limit int) ([]PendingPurge, error) {
	query := `SELECT id, bucket_id, locator, attempts, last_error, created_at FROM pending_purges ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err)
	}
	defer func() { _ = rows.Close() }()

	purges := []PendingPurge{}
	for rows.Next() {
		var (
			purge   PendingPurge
			created int64
		)
		if err := rows.Scan(&purge.ID, &purge.BucketID, &purge.Locator, &purge.Attempts, &purge.LastError, &created); err != nil {
			return nil, dbError(err)
		}
		purge.CreatedAt = fromNanos(created)
		purges = append(purges, purge)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return purges, nil
}

// DeletePendingPurge drops a purge record once the blob is gone.
func (q queries) DeletePendingPurge(ctx context.Context, id int64) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM pending_purges WHERE id = ?`, id); err != nil {
		return dbError(err)
	}
	return nil
}

// MarkPurgeAttempt bumps the attempt counter after another failed delete.
func (q queries) MarkPurgeAttempt(ctx context.Context, id int64, lastErr string) error {
	_, err := q.q.ExecContext(ctx,
		`UPDATE pending_purges SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		lastErr, id,
	)
	if err != nil {
		return dbError(err)
	}
	return nil
}

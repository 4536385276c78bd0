package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Connection parameters: foreign keys on, WAL for concurrent readers, writers wait
// for the lock instead of failing, and write transactions take the lock up front.
const dsnParams = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements Queries over either the pool or a transaction.
type queries struct {
	q querier
}

// SQLiteStore keeps metadata in a SQLite database file.
type SQLiteStore struct {
	queries
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath and applies the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	database, err := sql.Open("sqlite", dbPath+"?"+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrDatabase, err)
	}

	if err := database.PingContext(context.Background()); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to connect: %w", ErrDatabase, err)
	}

	store := &SQLiteStore{queries: queries{q: database}, db: database}
	if err := store.Initialize(context.Background()); err != nil {
		_ = database.Close()
		return nil, err
	}

	return store, nil
}

// Initialize creates the database schema.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("%w: failed to initialize schema: %w", ErrDatabase, err)
	}
	return nil
}

// InTx runs fn inside a transaction, committing only if fn and the context succeed.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", ErrDatabase, err)
	}

	if err := fn(queries{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := ctx.Err(); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit: %w", ErrDatabase, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func dbError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDatabase, err)
}

func nanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// below returns the prefix every descendant of path starts with. Queries compare it
// with substr(column, 1, length(?)) so that LIKE wildcards in names need no escaping.
func below(path string) string {
	return path + "/"
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbError(err)
	}
	return n, nil
}

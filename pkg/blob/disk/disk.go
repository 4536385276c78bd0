// Package disk stores blobs as plain files in a sharded directory tree.
package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"bucketfs/pkg/blob"
	"bucketfs/pkg/log"
)

const (
	dirPerm   = 0750
	shardSize = 2
	// Keys need enough characters for two shard levels.
	minKeyLength = 2 * shardSize
	tempDirName  = ".tmp"
)

// Store implements blob.Store on a local directory. A key "abcdef_x" lands in
// root/ab/cd/abcdef_x.
type Store struct {
	root          string
	publicBaseURL string
}

var _ blob.Store = (*Store)(nil)

// New creates the root directory if needed. publicBaseURL may be empty, in which case
// no public URLs are handed out.
func New(root, publicBaseURL string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, tempDirName), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Store{root: root, publicBaseURL: publicBaseURL}, nil
}

// filePath maps a key to its sharded location.
func (s *Store) filePath(key string) (string, error) {
	if err := blob.ValidateKey(key); err != nil {
		return "", err
	}
	if len(key) < minKeyLength {
		return "", fmt.Errorf("%w: key shorter than %d characters", blob.ErrInvalidKey, minKeyLength)
	}
	return filepath.Join(s.root, key[:shardSize], key[shardSize:2*shardSize], key), nil
}

// Put streams r into a temp file, hashing it on the way, then renames it into place.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, _ blob.Meta) (*blob.Object, error) {
	target, err := s.filePath(key)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(target); statErr == nil {
		return nil, blob.ErrExists
	}

	tempFile, err := os.CreateTemp(filepath.Join(s.root, tempDirName), "put-*")
	if err != nil {
		log.Error().Err(err).Msg("Failed to create temporary blob file")
		return nil, err
	}
	defer s.cleanupTempFile(tempFile)

	digest := blob.NewDigestReader(r)
	if _, err := io.Copy(tempFile, contextReader{ctx: ctx, r: digest}); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to write blob")
		return nil, err
	}
	if err := tempFile.Sync(); err != nil {
		return nil, err
	}
	if err := tempFile.Close(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		log.Error().Err(err).Str("target_dir", filepath.Dir(target)).Msg("Failed to create shard directory")
		return nil, err
	}
	if err := os.Rename(tempFile.Name(), target); err != nil {
		log.Error().Err(err).Str("target_path", target).Msg("Failed to move blob into place")
		return nil, err
	}

	log.Debug().Str("key", key).Int64("size", digest.Size()).Msg("Blob stored")
	return &blob.Object{
		Locator:  blob.Locator(key),
		Size:     digest.Size(),
		Checksum: digest.Checksum(),
	}, nil
}

// Get opens the blob file.
func (s *Store) Get(_ context.Context, loc blob.Locator) (io.ReadCloser, error) {
	target, err := s.filePath(string(loc))
	if err != nil {
		return nil, err
	}

	file, err := os.Open(target) //nolint:gosec // target is built from a validated key
	if errors.Is(err, os.ErrNotExist) {
		return nil, blob.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

// Delete removes the blob file and prunes empty shard directories.
func (s *Store) Delete(_ context.Context, loc blob.Locator) error {
	target, err := s.filePath(string(loc))
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return blob.ErrNotFound
		}
		log.Error().Err(err).Str("file_path", target).Msg("Failed to delete blob")
		return err
	}

	// Removing a non-empty directory fails, which is the desired outcome.
	shard := filepath.Dir(target)
	if os.Remove(shard) == nil {
		_ = os.Remove(filepath.Dir(shard))
	}
	return nil
}

// PublicURL joins the configured base URL with the locator.
func (s *Store) PublicURL(loc blob.Locator) (string, bool) {
	if s.publicBaseURL == "" {
		return "", false
	}
	u, err := url.JoinPath(s.publicBaseURL, string(loc))
	if err != nil {
		return "", false
	}
	return u, true
}

func (s *Store) cleanupTempFile(f *os.File) {
	_ = f.Close()
	if err := os.Remove(f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("temp_file", f.Name()).Msg("Failed to remove temporary blob file")
	}
}

// contextReader stops a copy once the context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

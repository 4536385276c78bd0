// Package blob defines the raw byte store used for file contents.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
	"io"
	"strings"
)

var (
	// ErrNotFound is returned when no blob exists for a locator.
	ErrNotFound = errors.New("blob not found")

	// ErrExists is returned when a key is written twice.
	ErrExists = errors.New("blob already exists")

	// ErrInvalidKey is returned for keys that cannot be stored.
	ErrInvalidKey = errors.New("invalid blob key")

	// ErrUnavailable is returned when the backing service cannot be reached.
	ErrUnavailable = errors.New("blob store unavailable")
)

// Locator is the opaque reference to stored bytes.
type Locator string

// Meta describes the bytes handed to Put.
type Meta struct {
	ContentType string
	// Size is the declared length, or -1 when unknown.
	Size int64
}

// Object is the result of a successful Put.
type Object struct {
	Locator  Locator
	Size     int64
	Checksum string
}

// Store keeps file bytes. Implementations must be safe for concurrent use.
type Store interface {
	// Put stores r under key. The returned Object carries the byte count and sha256.
	Put(ctx context.Context, key string, r io.Reader, meta Meta) (*Object, error)

	// Get opens the bytes behind a locator. The caller closes the reader.
	Get(ctx context.Context, loc Locator) (io.ReadCloser, error)

	// Delete removes the bytes behind a locator.
	Delete(ctx context.Context, loc Locator) error

	// PublicURL returns a URL for public access when the store can serve one.
	PublicURL(loc Locator) (string, bool)
}

// ValidateKey rejects keys that are empty, contain separators or would traverse.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, "/\\\x00") {
		return ErrInvalidKey
	}
	return nil
}

// DigestReader counts and hashes everything read through it.
type DigestReader struct {
	r io.Reader
	h hash.Hash
	n int64
}

// NewDigestReader wraps r.
func NewDigestReader(r io.Reader) *DigestReader {
	return &DigestReader{r: r, h: sha256.New()}
}

func (d *DigestReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if n > 0 {
		d.h.Write(p[:n])
		d.n += int64(n)
	}
	return n, err
}

// Size is the number of bytes read so far.
func (d *DigestReader) Size() int64 {
	return d.n
}

// Checksum is the hex sha256 of the bytes read so far.
func (d *DigestReader) Checksum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

package models

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the namespace wraps exactly one of them.
var (
	// ErrValidation is returned for malformed input or limits.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a bucket, folder, file or path does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a name or path is already taken or the target is not empty.
	ErrConflict = errors.New("conflict")

	// ErrLimitExceeded is returned when an upload violates the bucket's size or type limits.
	ErrLimitExceeded = errors.New("limit exceeded")

	// ErrDependency is returned when the blob store is unavailable.
	ErrDependency = errors.New("dependency unavailable")
)

var (
	ErrInvalidPath       = fmt.Errorf("%w: invalid path", ErrValidation)
	ErrInvalidBucketName = fmt.Errorf("%w: invalid bucket name", ErrValidation)
	ErrInvalidLimit      = fmt.Errorf("%w: invalid bucket limit", ErrValidation)
	ErrInvalidName       = fmt.Errorf("%w: invalid name", ErrValidation)

	ErrBucketNotFound = fmt.Errorf("%w: bucket", ErrNotFound)
	ErrFolderNotFound = fmt.Errorf("%w: folder", ErrNotFound)
	ErrFileNotFound   = fmt.Errorf("%w: file", ErrNotFound)
	ErrParentNotFound = fmt.Errorf("%w: parent folder", ErrNotFound)
	ErrPathNotFound   = fmt.Errorf("%w: path", ErrNotFound)
	ErrTargetNotFound = fmt.Errorf("%w: move target", ErrNotFound)
	ErrSourceNotFound = fmt.Errorf("%w: move source", ErrNotFound)

	ErrDuplicateName   = fmt.Errorf("%w: bucket name already exists", ErrConflict)
	ErrDuplicateFolder = fmt.Errorf("%w: folder already exists", ErrConflict)
	ErrNotEmpty        = fmt.Errorf("%w: bucket is not empty", ErrConflict)
	ErrHasChildren     = fmt.Errorf("%w: folder has children", ErrConflict)

	ErrSizeLimitExceeded = fmt.Errorf("%w: file too large", ErrLimitExceeded)
	ErrMimeTypeRejected  = fmt.Errorf("%w: mime type not allowed", ErrLimitExceeded)
)

// Category names the error class of err for metrics and logs.
func Category(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, ErrDependency):
		return "dependency"
	}
	return "internal"
}

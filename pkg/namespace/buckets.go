package namespace

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"bucketfs/pkg/log"
	"bucketfs/pkg/metadata"
	"bucketfs/pkg/models"
	"bucketfs/pkg/paths"
)

// bucketNamePattern allows 1-63 letters, digits and hyphens, starting and ending
// with a letter or digit.
var bucketNamePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)

// BucketSpec describes a bucket to create. A nil MaxFileSize selects the default.
type BucketSpec struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	IsPublic         bool     `json:"is_public"`
	MaxFileSize      *int64   `json:"max_file_size"`
	AllowedMimeTypes []string `json:"allowed_mime_types"`
}

// BucketPatch changes bucket settings. Nil fields are left alone.
type BucketPatch struct {
	Description      *string   `json:"description"`
	IsPublic         *bool     `json:"is_public"`
	MaxFileSize      *int64    `json:"max_file_size"`
	AllowedMimeTypes *[]string `json:"allowed_mime_types"`
}

// ValidateBucketName checks the naming rules.
func ValidateBucketName(name string) error {
	if !bucketNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q must be 1-63 letters, digits or hyphens and start and end alphanumeric",
			models.ErrInvalidBucketName, name)
	}
	return nil
}

func validateMaxFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("%w: max_file_size must be positive, got %d", models.ErrInvalidLimit, size)
	}
	return nil
}

// normalizeMimeTypes lowercases, trims and deduplicates an allow-list. Entries must
// look like "type/subtype" or "type/*".
func normalizeMimeTypes(types []string) ([]string, error) {
	out := make([]string, 0, len(types))
	seen := make(map[string]struct{}, len(types))
	for _, raw := range types {
		t := normalizeMimeType(raw)
		major, minor, ok := strings.Cut(t, "/")
		if !ok || major == "" || minor == "" || strings.Contains(minor, "/") {
			return nil, fmt.Errorf("%w: malformed mime type %q", models.ErrInvalidLimit, raw)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// CreateBucket creates a bucket in the caller's project.
func (s *Service) CreateBucket(ctx context.Context, scope models.Scope, spec BucketSpec) (res *Result[*models.Bucket], err error) {
	defer s.observe("create_bucket", time.Now(), &err)

	if err := ValidateBucketName(spec.Name); err != nil {
		return nil, err
	}
	maxSize := s.opts.DefaultMaxFileSize
	if spec.MaxFileSize != nil {
		maxSize = *spec.MaxFileSize
	}
	if err := validateMaxFileSize(maxSize); err != nil {
		return nil, err
	}
	mimeTypes, err := normalizeMimeTypes(spec.AllowedMimeTypes)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.writeBucket(bucketKey(scope, spec.Name))
	defer unlock()

	now := s.now()
	bucket := &models.Bucket{
		ProjectID:        projectOf(scope),
		Name:             spec.Name,
		Description:      spec.Description,
		IsPublic:         spec.IsPublic,
		MaxFileSize:      maxSize,
		AllowedMimeTypes: mimeTypes,
		CreatedAt:        now,
		UpdatedAt:        now,
		LastModified:     now,
	}

	err = s.meta.InTx(ctx, func(q metadata.Queries) error {
		return q.PutBucket(ctx, bucket)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("project", bucket.ProjectID).Str("bucket", bucket.Name).
		Str("max_file_size", humanize.IBytes(uint64(maxSize))).Msg("Bucket created")

	return &Result[*models.Bucket]{
		Record: bucket,
		Events: []models.Event{s.event(models.EventBucketCreated, bucket.ID, "", "")},
	}, nil
}

// GetBucket returns a bucket with computed statistics.
func (s *Service) GetBucket(ctx context.Context, scope models.Scope, name string) (bucket *models.Bucket, err error) {
	defer s.observe("get_bucket", time.Now(), &err)
	return s.resolveBucket(ctx, s.meta, scope, name)
}

// ListBuckets returns the project's buckets sorted by name.
func (s *Service) ListBuckets(ctx context.Context, scope models.Scope) (buckets []models.Bucket, err error) {
	defer s.observe("list_buckets", time.Now(), &err)
	return s.meta.ListBuckets(ctx, projectOf(scope))
}

// UpdateBucket applies a patch. New limits only affect future uploads.
func (s *Service) UpdateBucket(ctx context.Context, scope models.Scope, name string, patch BucketPatch) (res *Result[*models.Bucket], err error) {
	defer s.observe("update_bucket", time.Now(), &err)

	var mimeTypes []string
	if patch.AllowedMimeTypes != nil {
		if mimeTypes, err = normalizeMimeTypes(*patch.AllowedMimeTypes); err != nil {
			return nil, err
		}
	}
	if patch.MaxFileSize != nil {
		if err := validateMaxFileSize(*patch.MaxFileSize); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.writeBucket(bucketKey(scope, name))
	defer unlock()

	var bucket *models.Bucket
	err = s.meta.InTx(ctx, func(q metadata.Queries) error {
		current, err := s.resolveBucket(ctx, q, scope, name)
		if err != nil {
			return err
		}

		if patch.Description != nil {
			current.Description = *patch.Description
		}
		if patch.IsPublic != nil {
			current.IsPublic = *patch.IsPublic
		}
		if patch.MaxFileSize != nil {
			current.MaxFileSize = *patch.MaxFileSize
		}
		if patch.AllowedMimeTypes != nil {
			current.AllowedMimeTypes = mimeTypes
		}
		current.UpdatedAt = s.now()

		if err := q.UpdateBucket(ctx, current); err != nil {
			return err
		}
		bucket, err = q.GetBucket(ctx, current.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("project", bucket.ProjectID).Str("bucket", bucket.Name).Msg("Bucket updated")
	return &Result[*models.Bucket]{
		Record: bucket,
		Events: []models.Event{s.event(models.EventBucketUpdated, bucket.ID, "", "")},
	}, nil
}

// DeleteBucket removes a bucket. Without force a bucket holding folders or files is
// refused. With force every record goes in one transaction and the blobs are
// purged afterwards.
func (s *Service) DeleteBucket(ctx context.Context, scope models.Scope, name string, force bool) (res *Result[*DeleteSummary], err error) {
	defer s.observe("delete_bucket", time.Now(), &err)

	unlock := s.locks.writeBucket(bucketKey(scope, name))
	defer unlock()

	var (
		bucket  *models.Bucket
		files   []models.File
		summary = &DeleteSummary{Bucket: name}
	)
	err = s.meta.InTx(ctx, func(q metadata.Queries) error {
		var err error
		if bucket, err = s.resolveBucket(ctx, q, scope, name); err != nil {
			return err
		}

		nFolders, nFiles, err := q.CountEntries(ctx, bucket.ID)
		if err != nil {
			return err
		}
		if nFolders+nFiles > 0 && !force {
			return fmt.Errorf("%w: %q holds %d folders and %d files", models.ErrNotEmpty, name, nFolders, nFiles)
		}

		if files, err = q.ListAllFiles(ctx, bucket.ID, paths.Root); err != nil {
			return err
		}
		if summary.Files, err = q.DeleteFilesUnder(ctx, bucket.ID, paths.Root); err != nil {
			return err
		}
		if summary.Folders, err = q.DeleteFolderTree(ctx, bucket.ID, paths.Root); err != nil {
			return err
		}
		return q.DeleteBucket(ctx, bucket.ID)
	})
	if err != nil {
		return nil, err
	}

	events := []models.Event{s.event(models.EventBucketDeleted, bucket.ID, "", "")}
	events = append(events, s.purgeBlobs(bucket.ID, files)...)
	events = append(events, s.invalidateTree(bucket.ID))
	s.forgetTree(bucket.ID)
	summary.Purged = len(files)

	log.Info().Str("project", bucket.ProjectID).Str("bucket", name).Bool("force", force).
		Int64("folders", summary.Folders).Int64("files", summary.Files).Msg("Bucket deleted")

	return &Result[*DeleteSummary]{Record: summary, Events: events}, nil
}

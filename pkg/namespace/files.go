package namespace

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"bucketfs/pkg/blob"
	"bucketfs/pkg/log"
	"bucketfs/pkg/metadata"
	"bucketfs/pkg/models"
	"bucketfs/pkg/paths"
)

// Sort keys and orders accepted by ListFiles.
const (
	SortName      = "name"
	SortSize      = "size"
	SortCreatedAt = "created_at"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

const (
	// sniffLen is how much of an upload is inspected when no type is declared.
	sniffLen = 3072
	// maxStoredNameLen bounds the sanitized part of a stored name.
	maxStoredNameLen = 200
	defaultMimeType  = "application/octet-stream"
)

// errNeedsStructure signals that an upload must retry under the bucket write lock
// because its folder chain has to be created.
var errNeedsStructure = errors.New("upload needs folder creation")

// ListOptions select ordering and a page of a file listing. Limit 0 means no limit.
type ListOptions struct {
	Sort   string `query:"sort"`
	Order  string `query:"order"`
	Limit  int    `query:"limit"`
	Offset int    `query:"offset"`
}

func (o *ListOptions) normalize() error {
	o.Sort = strings.ToLower(o.Sort)
	o.Order = strings.ToLower(o.Order)
	if o.Sort == "" {
		o.Sort = SortName
	}
	if o.Order == "" {
		o.Order = OrderAsc
	}

	switch o.Sort {
	case SortName, SortSize, SortCreatedAt:
	default:
		return fmt.Errorf("%w: unknown sort key %q", models.ErrValidation, o.Sort)
	}
	switch o.Order {
	case OrderAsc, OrderDesc:
	default:
		return fmt.Errorf("%w: unknown order %q", models.ErrValidation, o.Order)
	}
	if o.Limit < 0 || o.Offset < 0 {
		return fmt.Errorf("%w: limit and offset must not be negative", models.ErrValidation)
	}
	return nil
}

// sortFiles orders by the selected key and direction; ties always fall back to id
// ascending.
func sortFiles(files []models.File, sortKey, order string) {
	folded := make(map[string]string, len(files))
	if sortKey == SortName {
		for i := range files {
			folded[files[i].ID] = paths.FoldKey(files[i].OriginalName)
		}
	}

	slices.SortFunc(files, func(a, b models.File) int {
		var c int
		switch sortKey {
		case SortSize:
			c = compareInt(a.Size, b.Size)
		case SortCreatedAt:
			c = a.CreatedAt.Compare(b.CreatedAt)
		default:
			c = strings.Compare(folded[a.ID], folded[b.ID])
			if c == 0 {
				c = strings.Compare(a.OriginalName, b.OriginalName)
			}
		}
		if order == OrderDesc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func paginate(files []models.File, limit, offset int) []models.File {
	if offset >= len(files) {
		return []models.File{}
	}
	files = files[offset:]
	if limit > 0 && limit < len(files) {
		files = files[:limit]
	}
	return files
}

// normalizeMimeType lowercases and strips parameters: "Text/Plain; charset=utf-8"
// becomes "text/plain".
func normalizeMimeType(t string) string {
	t, _, _ = strings.Cut(t, ";")
	return strings.ToLower(strings.TrimSpace(t))
}

// mimeAllowed reports whether t passes the allow-list. Entries ending in "/*" match
// a whole major type.
func mimeAllowed(allowed []string, t string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == t || a == "*/*" {
			return true
		}
		if prefix, ok := strings.CutSuffix(a, "*"); ok && strings.HasSuffix(prefix, "/") && strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

// checkLimits enforces the bucket's size and type limits.
func checkLimits(bucket *models.Bucket, size int64, mimeType string) error {
	if size > bucket.MaxFileSize {
		return fmt.Errorf("%w: %s exceeds the %s limit of bucket %q", models.ErrSizeLimitExceeded,
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(bucket.MaxFileSize)), bucket.Name)
	}
	if !mimeAllowed(bucket.AllowedMimeTypes, mimeType) {
		return fmt.Errorf("%w: %q is not accepted by bucket %q", models.ErrMimeTypeRejected, mimeType, bucket.Name)
	}
	return nil
}

// sanitizeFileName makes a name safe for use inside a blob key.
func sanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == ' ' || r == '/' || r == '\\':
			b.WriteRune('_')
		case r < 0x20 || r == 0x7f:
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > maxStoredNameLen {
		cut := len(out) - maxStoredNameLen
		for cut < len(out) && !utf8.RuneStart(out[cut]) {
			cut++
		}
		out = out[cut:]
	}
	return strings.TrimLeft(out, ".")
}

func storedName(id, originalName string) string {
	return id + "_" + sanitizeFileName(originalName)
}

func validateFileName(name string) error {
	if err := paths.ValidateSegment(name); err != nil {
		return fmt.Errorf("%w: file name %q: %w", models.ErrInvalidName, name, err)
	}
	return nil
}

// ListFiles returns the files directly inside path.
func (s *Service) ListFiles(ctx context.Context, scope models.Scope, bucketName, path string, opts ListOptions) (files []models.File, err error) {
	defer s.observe("list_files", time.Now(), &err)

	if path, err = paths.Normalize(path); err != nil {
		return nil, err
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	bucket, err := s.resolveBucket(ctx, s.meta, scope, bucketName)
	if err != nil {
		return nil, err
	}
	if err := requirePath(ctx, s.meta, bucket.ID, path); err != nil {
		return nil, err
	}
	return s.directFiles(ctx, bucket.ID, path, opts)
}

func (s *Service) directFiles(ctx context.Context, bucketID int64, path string, opts ListOptions) ([]models.File, error) {
	files, err := s.meta.ListFiles(ctx, bucketID, path)
	if err != nil {
		return nil, err
	}
	sortFiles(files, opts.Sort, opts.Order)
	files = paginate(files, opts.Limit, opts.Offset)
	for i := range files {
		s.decorate(&files[i])
	}
	return files, nil
}

// GetFile returns one file record.
func (s *Service) GetFile(ctx context.Context, scope models.Scope, bucketName, fileID string) (file *models.File, err error) {
	defer s.observe("get_file", time.Now(), &err)

	bucket, err := s.resolveBucket(ctx, s.meta, scope, bucketName)
	if err != nil {
		return nil, err
	}
	if file, err = s.meta.GetFile(ctx, bucket.ID, fileID); err != nil {
		return nil, err
	}
	s.decorate(file)
	return file, nil
}

// OpenFile returns the record and a reader over its bytes. The caller closes the reader.
func (s *Service) OpenFile(ctx context.Context, scope models.Scope, bucketName, fileID string) (rc io.ReadCloser, file *models.File, err error) {
	defer s.observe("open_file", time.Now(), &err)

	bucket, err := s.resolveBucket(ctx, s.meta, scope, bucketName)
	if err != nil {
		return nil, nil, err
	}
	if file, err = s.meta.GetFile(ctx, bucket.ID, fileID); err != nil {
		return nil, nil, err
	}

	rc, err = s.blobs.Get(ctx, blob.Locator(file.Locator))
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, fmt.Errorf("%w: reading %s: %w", models.ErrDependency, file.ID, err)
	}
	s.decorate(file)
	return rc, file, nil
}

// CreateFile records a file whose bytes are already stored under loc.
func (s *Service) CreateFile(ctx context.Context, scope models.Scope, bucketName, path string, meta models.FileMeta, loc blob.Locator) (res *Result[*models.File], err error) {
	defer s.observe("create_file", time.Now(), &err)

	if path, err = paths.Normalize(path); err != nil {
		return nil, err
	}
	if err := validateFileName(meta.Name); err != nil {
		return nil, err
	}
	if loc == "" {
		return nil, fmt.Errorf("%w: empty locator", models.ErrValidation)
	}
	if meta.Size < 0 {
		return nil, fmt.Errorf("%w: size must not be negative", models.ErrValidation)
	}

	id := uuid.NewString()
	draft := &models.File{
		ID:           id,
		OriginalName: meta.Name,
		StoredName:   storedName(id, meta.Name),
		FolderPath:   path,
		MimeType:     normalizeMimeType(meta.MimeType),
		Size:         meta.Size,
		Author:       scope.Principal,
		Locator:      string(loc),
	}
	if draft.MimeType == "" {
		draft.MimeType = defaultMimeType
	}
	return s.createRecord(ctx, scope, bucketName, draft)
}

// createRecord validates draft against the bucket and inserts it. It first runs
// under the bucket read lock and retries under the write lock when folders must be
// created.
func (s *Service) createRecord(ctx context.Context, scope models.Scope, bucketName string, draft *models.File) (*Result[*models.File], error) {
	res, err := s.insertFile(ctx, scope, bucketName, draft, false)
	if errors.Is(err, errNeedsStructure) {
		res, err = s.insertFile(ctx, scope, bucketName, draft, true)
	}
	return res, err
}

func (s *Service) insertFile(ctx context.Context, scope models.Scope, bucketName string, draft *models.File, structural bool) (*Result[*models.File], error) {
	var unlock func()
	if structural {
		unlock = s.locks.writeBucket(bucketKey(scope, bucketName))
	} else {
		unlock = s.locks.readBucket(bucketKey(scope, bucketName))
	}
	defer unlock()

	var (
		bucket  *models.Bucket
		created []models.Folder
	)
	err := s.meta.InTx(ctx, func(q metadata.Queries) error {
		var err error
		if bucket, err = s.resolveBucket(ctx, q, scope, bucketName); err != nil {
			return err
		}

		if err := requirePath(ctx, q, bucket.ID, draft.FolderPath); err != nil {
			if !errors.Is(err, models.ErrPathNotFound) || !s.opts.AutoCreateFolders {
				return err
			}
			if !structural {
				return errNeedsStructure
			}
			if created, err = s.ensureFolders(ctx, q, bucket.ID, draft.FolderPath); err != nil {
				return err
			}
		}

		if err := checkLimits(bucket, draft.Size, draft.MimeType); err != nil {
			return err
		}

		now := s.now()
		draft.BucketID = bucket.ID
		draft.IsPublic = bucket.IsPublic
		draft.CreatedAt = now
		draft.UpdatedAt = now
		return q.PutFile(ctx, draft)
	})
	if err != nil {
		return nil, err
	}

	file := *draft
	s.decorate(&file)

	events := make([]models.Event, 0, len(created)+2)
	for _, folder := range created {
		events = append(events, s.event(models.EventFolderCreated, bucket.ID, folder.Path, ""))
	}
	events = append(events,
		s.event(models.EventFileCreated, bucket.ID, file.FolderPath, file.ID),
		s.invalidateTree(bucket.ID),
	)

	log.Info().Str("bucket", bucketName).Str("path", file.FolderPath).Str("file_id", file.ID).
		Str("name", file.OriginalName).Int64("size", file.Size).Msg("File created")
	return &Result[*models.File]{Record: &file, Events: events}, nil
}

// Upload validates the request, streams r to the blob store and records the file.
// A blob whose record cannot be written is queued for purge.
func (s *Service) Upload(ctx context.Context, scope models.Scope, bucketName, path string, meta models.FileMeta, r io.Reader) (res *Result[*models.File], err error) {
	defer s.observe("upload", time.Now(), &err)

	if path, err = paths.Normalize(path); err != nil {
		return nil, err
	}
	if err := validateFileName(meta.Name); err != nil {
		return nil, err
	}

	bucket, err := s.resolveBucket(ctx, s.meta, scope, bucketName)
	if err != nil {
		return nil, err
	}
	if !s.opts.AutoCreateFolders {
		if err := requirePath(ctx, s.meta, bucket.ID, path); err != nil {
			return nil, err
		}
	}

	mimeType := normalizeMimeType(meta.MimeType)
	if mimeType == "" {
		buffered := bufio.NewReaderSize(r, sniffLen)
		head, peekErr := buffered.Peek(sniffLen)
		if peekErr != nil && !errors.Is(peekErr, io.EOF) && !errors.Is(peekErr, bufio.ErrBufferFull) {
			return nil, fmt.Errorf("%w: reading upload: %w", models.ErrValidation, peekErr)
		}
		mimeType = normalizeMimeType(mimetype.Detect(head).String())
		r = buffered
	}

	declared := meta.Size
	if declared < 0 {
		declared = 0
	}
	if err := checkLimits(bucket, declared, mimeType); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	key := storedName(id, meta.Name)
	obj, err := s.blobs.Put(ctx, key, io.LimitReader(r, bucket.MaxFileSize+1), blob.Meta{ContentType: mimeType, Size: declaredOrUnknown(meta.Size)})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error().Err(err).Str("bucket", bucketName).Str("key", key).Msg("Blob write failed")
		return nil, fmt.Errorf("%w: storing %q: %w", models.ErrDependency, meta.Name, err)
	}

	draft := &models.File{
		ID:           id,
		OriginalName: meta.Name,
		StoredName:   key,
		FolderPath:   path,
		MimeType:     mimeType,
		Size:         obj.Size,
		Checksum:     obj.Checksum,
		Author:       scope.Principal,
		Locator:      string(obj.Locator),
	}

	if obj.Size > bucket.MaxFileSize {
		s.purgeBlobs(bucket.ID, []models.File{*draft})
		return nil, checkLimits(bucket, obj.Size, mimeType)
	}

	res, err = s.createRecord(ctx, scope, bucketName, draft)
	if err != nil {
		log.Warn().Err(err).Str("bucket", bucketName).Str("key", key).Msg("Upload record failed, purging blob")
		s.purgeBlobs(bucket.ID, []models.File{*draft})
		return nil, err
	}

	s.metrics.UploadedBytes.Add(float64(obj.Size))
	return res, nil
}

// DeleteFile removes a file record and queues its blob for purge.
func (s *Service) DeleteFile(ctx context.Context, scope models.Scope, bucketName, fileID string) (res *Result[*models.File], err error) {
	defer s.observe("delete_file", time.Now(), &err)

	unlockBucket := s.locks.readBucket(bucketKey(scope, bucketName))
	defer unlockBucket()
	unlockFile := s.locks.lockFile(fileKey(scope, bucketName, fileID))
	defer unlockFile()

	var file *models.File
	err = s.meta.InTx(ctx, func(q metadata.Queries) error {
		bucket, err := s.resolveBucket(ctx, q, scope, bucketName)
		if err != nil {
			return err
		}
		if file, err = q.GetFile(ctx, bucket.ID, fileID); err != nil {
			return err
		}
		return q.DeleteFile(ctx, bucket.ID, fileID)
	})
	if err != nil {
		return nil, err
	}

	events := []models.Event{s.event(models.EventFileDeleted, file.BucketID, file.FolderPath, file.ID)}
	events = append(events, s.purgeBlobs(file.BucketID, []models.File{*file})...)
	events = append(events, s.invalidateTree(file.BucketID))

	log.Info().Str("bucket", bucketName).Str("path", file.FolderPath).Str("file_id", file.ID).Msg("File deleted")
	return &Result[*models.File]{Record: file, Events: events}, nil
}

func declaredOrUnknown(size int64) int64 {
	if size <= 0 {
		return -1
	}
	return size
}

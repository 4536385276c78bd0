// Package namespace implements buckets, folders and files on top of a metadata store
// and a blob store: listing, placement of uploads, moves and tree views.
package namespace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"

	"bucketfs/pkg/blob"
	"bucketfs/pkg/metadata"
	"bucketfs/pkg/metrics"
	"bucketfs/pkg/models"
	"bucketfs/pkg/purge"
)

const (
	// DefaultMaxFileSize applies to buckets created without a limit.
	DefaultMaxFileSize int64 = 50 << 20

	defaultTreeMaxEntries = 5000
	defaultTreeCacheSize  = 128
)

// Purger accepts blobs to delete in the background.
type Purger interface {
	Enqueue(jobs ...purge.Job)
	Reconcile(ctx context.Context, limit int) (*purge.ReconcileResult, error)
}

// Options tune service policy.
type Options struct {
	// AutoCreateParents lets CreateFolder create missing ancestors.
	AutoCreateParents bool
	// AutoCreateFolders lets uploads create the target folder chain.
	AutoCreateFolders bool
	// DefaultMaxFileSize is used when a bucket is created without a limit.
	DefaultMaxFileSize int64
	// TreeMaxEntries caps full tree materialization. Zero uses the default;
	// negative disables the cap.
	TreeMaxEntries int
	TreeCacheSize  int
	Metrics        *metrics.Metrics
	Now            func() time.Time
}

// Service is the namespace core. All methods are safe for concurrent use.
type Service struct {
	meta    metadata.Store
	blobs   blob.Store
	purger  Purger
	opts    Options
	metrics *metrics.Metrics
	locks   *lockTable

	trees   *lru.Cache[int64, *models.Tree]
	genMu   sync.Mutex
	treeGen map[int64]uint64
}

// New builds a service.
func New(meta metadata.Store, blobs blob.Store, purger Purger, opts Options) (*Service, error) {
	if opts.DefaultMaxFileSize <= 0 {
		opts.DefaultMaxFileSize = DefaultMaxFileSize
	}
	if opts.TreeMaxEntries == 0 {
		opts.TreeMaxEntries = defaultTreeMaxEntries
	}
	if opts.TreeCacheSize <= 0 {
		opts.TreeCacheSize = defaultTreeCacheSize
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(prometheus.NewRegistry())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if purger == nil {
		return nil, errors.New("purger is required")
	}

	cache, err := lru.New[int64, *models.Tree](opts.TreeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create tree cache: %w", err)
	}

	return &Service{
		meta:    meta,
		blobs:   blobs,
		purger:  purger,
		opts:    opts,
		metrics: opts.Metrics,
		locks:   newLockTable(),
		trees:   cache,
		treeGen: make(map[int64]uint64),
	}, nil
}

// Reconcile retries blob deletes that failed earlier.
func (s *Service) Reconcile(ctx context.Context, limit int) (result *purge.ReconcileResult, err error) {
	defer s.observe("reconcile", time.Now(), &err)
	return s.purger.Reconcile(ctx, limit)
}

func (s *Service) now() time.Time {
	return s.opts.Now().UTC()
}

func (s *Service) observe(op string, start time.Time, errp *error) {
	s.metrics.Observe(op, start, *errp)
}

func projectOf(scope models.Scope) string {
	if scope.ProjectID == "" {
		return models.DefaultProject
	}
	return scope.ProjectID
}

func bucketKey(scope models.Scope, name string) string {
	return projectOf(scope) + "\x00" + name
}

func fileKey(scope models.Scope, bucket, id string) string {
	return bucketKey(scope, bucket) + "\x00" + id
}

func (s *Service) resolveBucket(ctx context.Context, q metadata.Queries, scope models.Scope, name string) (*models.Bucket, error) {
	bucket, err := q.GetBucketByName(ctx, projectOf(scope), name)
	if errors.Is(err, models.ErrBucketNotFound) {
		return nil, fmt.Errorf("%w: %q", models.ErrBucketNotFound, name)
	}
	return bucket, err
}

func (s *Service) event(kind models.EventKind, bucketID int64, path, fileID string) models.Event {
	return models.Event{Kind: kind, BucketID: bucketID, Path: path, FileID: fileID, At: s.now()}
}

// invalidateTree drops the cached tree and bumps the generation so a tree being
// built concurrently is not cached.
func (s *Service) invalidateTree(bucketID int64) models.Event {
	s.genMu.Lock()
	s.treeGen[bucketID]++
	s.genMu.Unlock()
	s.trees.Remove(bucketID)
	return s.event(models.EventTreeInvalidated, bucketID, "", "")
}

// forgetTree drops the generation of a deleted bucket. Bucket ids are never reused.
func (s *Service) forgetTree(bucketID int64) {
	s.genMu.Lock()
	delete(s.treeGen, bucketID)
	s.genMu.Unlock()
}

func (s *Service) treeGeneration(bucketID int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.treeGen[bucketID]
}

// purgeBlobs hands locators to the purger and reports one event per blob.
func (s *Service) purgeBlobs(bucketID int64, files []models.File) []models.Event {
	if len(files) == 0 {
		return nil
	}
	jobs := make([]purge.Job, 0, len(files))
	events := make([]models.Event, 0, len(files))
	for i := range files {
		jobs = append(jobs, purge.Job{BucketID: bucketID, Locator: blob.Locator(files[i].Locator)})
		events = append(events, s.event(models.EventPurgeQueued, bucketID, files[i].FolderPath, files[i].ID))
	}
	s.purger.Enqueue(jobs...)
	return events
}

func (s *Service) decorate(file *models.File) {
	if !file.IsPublic {
		return
	}
	if u, ok := s.blobs.PublicURL(blob.Locator(file.Locator)); ok {
		file.PublicURL = u
	}
}

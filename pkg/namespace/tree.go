package namespace

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"bucketfs/pkg/log"
	"bucketfs/pkg/models"
	"bucketfs/pkg/paths"
	"bucketfs/pkg/tree"
)

// Tree returns the hierarchy of a bucket. Buckets with more entries than
// TreeMaxEntries get a lazy tree holding only the root level.
func (s *Service) Tree(ctx context.Context, scope models.Scope, bucketName string) (result *models.Tree, err error) {
	defer s.observe("tree", time.Now(), &err)

	bucket, err := s.resolveBucket(ctx, s.meta, scope, bucketName)
	if err != nil {
		return nil, err
	}

	if cached, ok := s.trees.Get(bucket.ID); ok {
		s.metrics.TreeCacheHits.Inc()
		return cached, nil
	}
	s.metrics.TreeCacheMisses.Inc()

	gen := s.treeGeneration(bucket.ID)

	folderCount, fileCount, err := s.meta.CountEntries(ctx, bucket.ID)
	if err != nil {
		return nil, err
	}
	if limit := s.opts.TreeMaxEntries; limit > 0 && folderCount+fileCount > int64(limit) {
		root, err := s.level(ctx, bucket, paths.Root)
		if err != nil {
			return nil, err
		}
		s.metrics.TreesTruncated.Inc()
		log.Debug().Str("bucket", bucket.Name).Int64("folders", folderCount).Int64("files", fileCount).
			Msg("Tree too large, returning root level")
		return &models.Tree{
			Root:      root,
			Truncated: true,
			Folders:   int(folderCount),
			Files:     int(fileCount),
		}, nil
	}

	var (
		folders []models.Folder
		files   []models.File
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		folders, err = s.meta.ListFolders(gctx, bucket.ID, paths.Root)
		return err
	})
	g.Go(func() error {
		var err error
		files, err = s.meta.ListAllFiles(gctx, bucket.ID, paths.Root)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range files {
		s.decorate(&files[i])
	}
	result = tree.Build(bucket.Name, folders, files)
	if result.Orphans > 0 {
		log.Warn().Str("bucket", bucket.Name).Int("orphans", result.Orphans).Msg("Tree has orphaned entries")
	}

	if s.treeGeneration(bucket.ID) == gen {
		s.trees.Add(bucket.ID, result)
	}
	return result, nil
}

// Expand returns the node at path with its direct children; child folders are lazy.
func (s *Service) Expand(ctx context.Context, scope models.Scope, bucketName, path string) (node *models.TreeNode, err error) {
	defer s.observe("expand", time.Now(), &err)

	if path, err = paths.Normalize(path); err != nil {
		return nil, err
	}
	bucket, err := s.resolveBucket(ctx, s.meta, scope, bucketName)
	if err != nil {
		return nil, err
	}
	if err := requirePath(ctx, s.meta, bucket.ID, path); err != nil {
		return nil, err
	}
	return s.level(ctx, bucket, path)
}

func (s *Service) level(ctx context.Context, bucket *models.Bucket, path string) (*models.TreeNode, error) {
	var (
		folders []models.Folder
		files   []models.File
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		folders, err = s.meta.ListChildFolders(gctx, bucket.ID, path)
		return err
	})
	g.Go(func() error {
		var err error
		files, err = s.meta.ListFiles(gctx, bucket.ID, path)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range files {
		s.decorate(&files[i])
	}
	name := bucket.Name
	if path != paths.Root {
		name = paths.Base(path)
	}
	return tree.Level(name, path, folders, files), nil
}

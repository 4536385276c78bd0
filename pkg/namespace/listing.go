package namespace

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"bucketfs/pkg/models"
	"bucketfs/pkg/paths"
)

// List returns the folders and files directly inside path together with the
// breadcrumb trail from the bucket root.
func (s *Service) List(ctx context.Context, scope models.Scope, bucketName, path string, opts ListOptions) (listing *models.Listing, err error) {
	defer s.observe("list", time.Now(), &err)

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

	var (
		folders []models.Folder
		files   []models.File
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		folders, err = s.meta.ListChildFolders(gctx, bucket.ID, path)
		sortFolders(folders)
		return err
	})
	g.Go(func() error {
		var err error
		files, err = s.directFiles(gctx, bucket.ID, path, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.Listing{
		Bucket:      bucket.Name,
		Path:        path,
		Folders:     folders,
		Files:       files,
		Breadcrumbs: paths.Breadcrumbs(bucket.Name, path),
	}, nil
}

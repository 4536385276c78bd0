package namespace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"bucketfs/pkg/log"
	"bucketfs/pkg/metadata"
	"bucketfs/pkg/models"
	"bucketfs/pkg/paths"
)

func sortFolders(folders []models.Folder) {
	slices.SortFunc(folders, func(a, b models.Folder) int {
		if c := paths.CompareNames(a.Name, b.Name); c != 0 {
			return c
		}
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
}

// requirePath fails with ErrPathNotFound when path is neither the root nor a folder.
func requirePath(ctx context.Context, q metadata.Queries, bucketID int64, path string) error {
	if path == paths.Root {
		return nil
	}
	_, err := q.GetFolder(ctx, bucketID, path)
	if errors.Is(err, models.ErrFolderNotFound) {
		return fmt.Errorf("%w: %q", models.ErrPathNotFound, path)
	}
	return err
}

// ensureFolders creates path and every missing ancestor, outermost first.
func (s *Service) ensureFolders(ctx context.Context, q metadata.Queries, bucketID int64, path string) ([]models.Folder, error) {
	if path == paths.Root {
		return nil, nil
	}

	var created []models.Folder
	for _, p := range append(paths.Ancestors(path), path) {
		_, err := q.GetFolder(ctx, bucketID, p)
		if err == nil {
			continue
		}
		if !errors.Is(err, models.ErrFolderNotFound) {
			return nil, err
		}

		folder := models.Folder{BucketID: bucketID, Path: p, Name: paths.Base(p), CreatedAt: s.now()}
		if err := q.PutFolder(ctx, &folder); err != nil {
			return nil, err
		}
		created = append(created, folder)
	}
	return created, nil
}

// ListFolders returns the direct child folders of path, ordered case-insensitively.
func (s *Service) ListFolders(ctx context.Context, scope models.Scope, bucketName, path string) (folders []models.Folder, err error) {
	defer s.observe("list_folders", time.Now(), &err)

	if path, err = paths.Normalize(path); err != nil {
		return nil, err
	}
	bucket, err := s.resolveBucket(ctx, s.meta, scope, bucketName)
	if err != nil {
		return nil, err
	}
	return s.childFolders(ctx, bucket.ID, path)
}

func (s *Service) childFolders(ctx context.Context, bucketID int64, path string) ([]models.Folder, error) {
	if err := requirePath(ctx, s.meta, bucketID, path); err != nil {
		return nil, err
	}
	folders, err := s.meta.ListChildFolders(ctx, bucketID, path)
	if err != nil {
		return nil, err
	}
	sortFolders(folders)
	return folders, nil
}

// CreateFolder creates the folder name inside path. The parent must exist unless
// AutoCreateParents is set.
func (s *Service) CreateFolder(ctx context.Context, scope models.Scope, bucketName, path, name string) (res *Result[*models.Folder], err error) {
	defer s.observe("create_folder", time.Now(), &err)

	if path, err = paths.Normalize(path); err != nil {
		return nil, err
	}
	if err := paths.ValidateSegment(name); err != nil {
		return nil, err
	}
	fullPath := paths.Join(path, name)

	unlock := s.locks.writeBucket(bucketKey(scope, bucketName))
	defer unlock()

	var (
		bucket  *models.Bucket
		created []models.Folder
	)
	err = s.meta.InTx(ctx, func(q metadata.Queries) error {
		var err error
		if bucket, err = s.resolveBucket(ctx, q, scope, bucketName); err != nil {
			return err
		}

		if _, err := q.GetFolder(ctx, bucket.ID, fullPath); err == nil {
			return fmt.Errorf("%w: %q", models.ErrDuplicateFolder, fullPath)
		} else if !errors.Is(err, models.ErrFolderNotFound) {
			return err
		}

		if !s.opts.AutoCreateParents {
			if err := requirePath(ctx, q, bucket.ID, path); err != nil {
				if errors.Is(err, models.ErrPathNotFound) {
					return fmt.Errorf("%w: %q", models.ErrParentNotFound, path)
				}
				return err
			}
		}

		created, err = s.ensureFolders(ctx, q, bucket.ID, fullPath)
		return err
	})
	if err != nil {
		return nil, err
	}

	events := make([]models.Event, 0, len(created)+1)
	for _, folder := range created {
		events = append(events, s.event(models.EventFolderCreated, bucket.ID, folder.Path, ""))
	}
	events = append(events, s.invalidateTree(bucket.ID))

	log.Info().Str("bucket", bucketName).Str("path", fullPath).Int("created", len(created)).Msg("Folder created")
	return &Result[*models.Folder]{Record: &created[len(created)-1], Events: events}, nil
}

// DeleteFolder removes a folder. A folder with descendants is refused unless
// cascade is set, in which case descendant folders and all files at or below the
// path are deleted together and their blobs purged.
func (s *Service) DeleteFolder(ctx context.Context, scope models.Scope, bucketName, path string, cascade bool) (res *Result[*DeleteSummary], err error) {
	defer s.observe("delete_folder", time.Now(), &err)

	if path, err = paths.Normalize(path); err != nil {
		return nil, err
	}
	if path == paths.Root {
		return nil, fmt.Errorf("%w: the bucket root cannot be deleted", models.ErrInvalidPath)
	}

	unlock := s.locks.writeBucket(bucketKey(scope, bucketName))
	defer unlock()

	var (
		bucket  *models.Bucket
		folders []models.Folder
		files   []models.File
		summary = &DeleteSummary{Bucket: bucketName, Path: path}
	)
	err = s.meta.InTx(ctx, func(q metadata.Queries) error {
		var err error
		if bucket, err = s.resolveBucket(ctx, q, scope, bucketName); err != nil {
			return err
		}
		if _, err := q.GetFolder(ctx, bucket.ID, path); err != nil {
			if errors.Is(err, models.ErrFolderNotFound) {
				return fmt.Errorf("%w: %q", models.ErrFolderNotFound, path)
			}
			return err
		}

		nFolders, nFiles, err := q.CountBelow(ctx, bucket.ID, path)
		if err != nil {
			return err
		}
		if nFolders+nFiles > 0 && !cascade {
			return fmt.Errorf("%w: %q holds %d folders and %d files", models.ErrHasChildren, path, nFolders, nFiles)
		}

		if folders, err = q.ListFolders(ctx, bucket.ID, path); err != nil {
			return err
		}
		if files, err = q.ListAllFiles(ctx, bucket.ID, path); err != nil {
			return err
		}
		if summary.Files, err = q.DeleteFilesUnder(ctx, bucket.ID, path); err != nil {
			return err
		}
		summary.Folders, err = q.DeleteFolderTree(ctx, bucket.ID, path)
		return err
	})
	if err != nil {
		return nil, err
	}

	events := make([]models.Event, 0, len(folders)+2*len(files)+1)
	for i := range files {
		events = append(events, s.event(models.EventFileDeleted, bucket.ID, files[i].FolderPath, files[i].ID))
	}
	for i := range folders {
		events = append(events, s.event(models.EventFolderDeleted, bucket.ID, folders[i].Path, ""))
	}
	events = append(events, s.purgeBlobs(bucket.ID, files)...)
	events = append(events, s.invalidateTree(bucket.ID))
	summary.Purged = len(files)

	log.Info().Str("bucket", bucketName).Str("path", path).Bool("cascade", cascade).
		Int64("folders", summary.Folders).Int64("files", summary.Files).Msg("Folder deleted")
	return &Result[*DeleteSummary]{Record: summary, Events: events}, nil
}

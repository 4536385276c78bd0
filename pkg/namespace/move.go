package namespace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bucketfs/pkg/log"
	"bucketfs/pkg/metadata"
	"bucketfs/pkg/models"
	"bucketfs/pkg/paths"
)

// MoveFile changes the folder of a file. The blob is never touched. Moving a file to
// the folder it is already in is a no-op reported with Unchanged set.
func (s *Service) MoveFile(ctx context.Context, scope models.Scope, bucketName, fileID, targetPath string) (res *MoveResult, err error) {
	defer s.observe("move_file", time.Now(), &err)

	res = &MoveResult{State: MoveRequested, To: targetPath}

	target, err := paths.Normalize(targetPath)
	if err != nil {
		res.State = MoveRejected
		return res, err
	}
	res.To = target

	unlockBucket := s.locks.readBucket(bucketKey(scope, bucketName))
	defer unlockBucket()
	unlockFile := s.locks.lockFile(fileKey(scope, bucketName, fileID))
	defer unlockFile()

	var (
		file    *models.File
		applied bool
	)
	err = s.meta.InTx(ctx, func(q metadata.Queries) error {
		bucket, err := s.resolveBucket(ctx, q, scope, bucketName)
		if err != nil {
			return err
		}

		file, err = q.GetFile(ctx, bucket.ID, fileID)
		if errors.Is(err, models.ErrFileNotFound) {
			return fmt.Errorf("%w: %s", models.ErrSourceNotFound, fileID)
		}
		if err != nil {
			return err
		}
		res.From = file.FolderPath

		if target == file.FolderPath {
			return nil
		}

		if target != paths.Root {
			if _, err := q.GetFolder(ctx, bucket.ID, target); err != nil {
				if errors.Is(err, models.ErrFolderNotFound) {
					return fmt.Errorf("%w: %q", models.ErrTargetNotFound, target)
				}
				return err
			}
		}

		at := s.now()
		if err := q.UpdateFilePath(ctx, bucket.ID, file.ID, target, at); err != nil {
			return err
		}
		file.FolderPath = target
		file.UpdatedAt = at
		applied = true
		return nil
	})
	if err != nil {
		res.State = MoveRejected
		return res, err
	}

	s.decorate(file)
	res.File = file
	res.State = MoveValidated
	if !applied {
		res.Unchanged = true
		return res, nil
	}

	res.State = MoveApplied
	res.Events = []models.Event{
		s.event(models.EventFileMoved, file.BucketID, file.FolderPath, file.ID),
		s.invalidateTree(file.BucketID),
	}

	log.Info().Str("bucket", bucketName).Str("file_id", file.ID).
		Str("from", res.From).Str("to", res.To).Msg("File moved")
	return res, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bucketfs/pkg/blob"
	"bucketfs/pkg/blob/disk"
	"bucketfs/pkg/blob/remote"
	"bucketfs/pkg/config"
	"bucketfs/pkg/log"
	"bucketfs/pkg/metadata"
	"bucketfs/pkg/metrics"
	"bucketfs/pkg/namespace"
	"bucketfs/pkg/purge"
)

const (
	dataDirPerm       = 0750
	purgeDrainTimeout = 30 * time.Second
)

// app holds the wired components behind every command.
type app struct {
	cfg     *config.Config
	meta    *metadata.SQLiteStore
	queue   *purge.Queue
	service *namespace.Service
}

func openBlobStore(cfg *config.Config) (blob.Store, error) {
	switch cfg.Blob.Driver {
	case config.DriverRemote:
		return remote.New(remote.Options{
			Endpoint:      cfg.Blob.Remote.Endpoint,
			PublicBaseURL: cfg.Blob.PublicBaseURL,
			RetryMax:      cfg.Blob.Remote.RetryMax,
			RetryWaitMin:  cfg.Blob.Remote.RetryWaitMinDuration(),
			RetryWaitMax:  cfg.Blob.Remote.RetryWaitMaxDuration(),
			Timeout:       cfg.Blob.Remote.TimeoutDuration(),
		})
	default:
		return disk.New(cfg.Blob.Dir, cfg.Blob.PublicBaseURL)
	}
}

// openApp wires the metadata store, blob store, purge queue and namespace service.
// A nil m records metrics into a private registry.
func openApp(cfg *config.Config, m *metrics.Metrics) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, dataDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	meta, err := metadata.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	blobs, err := openBlobStore(cfg)
	if err != nil {
		_ = meta.Close()
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}

	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}

	queue := purge.New(blobs, meta, purge.Options{
		Workers:   cfg.Purge.Workers,
		QueueSize: cfg.Purge.QueueSize,
		Metrics:   m,
	})

	service, err := namespace.New(meta, blobs, queue, namespace.Options{
		AutoCreateParents:  cfg.Folders.AutoCreateParents,
		AutoCreateFolders:  cfg.Uploads.AutoCreateFolders,
		DefaultMaxFileSize: cfg.Uploads.DefaultMaxFileSizeBytes(),
		TreeMaxEntries:     cfg.Tree.MaxEntries,
		TreeCacheSize:      cfg.Tree.CacheSize,
		Metrics:            m,
	})
	if err != nil {
		_ = queue.Close(context.Background())
		_ = meta.Close()
		return nil, err
	}

	log.Debug().
		Str("database", cfg.Database.Path).
		Str("blob_driver", cfg.Blob.Driver).
		Int("purge_workers", cfg.Purge.Workers).
		Msg("Components ready")

	return &app{cfg: cfg, meta: meta, queue: queue, service: service}, nil
}

// Close drains the purge queue, then closes the database.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), purgeDrainTimeout)
	defer cancel()

	queueErr := a.queue.Close(ctx)
	if queueErr != nil {
		log.Warn().Err(queueErr).Msg("Purge queue did not drain, remaining purges were recorded")
	}
	return errors.Join(queueErr, a.meta.Close())
}

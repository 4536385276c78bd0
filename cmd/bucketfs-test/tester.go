package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type tester struct {
	cfg     config
	out     io.Writer
	client  *apiClient
	metrics *metricsCollector
}

type testStep struct {
	number int
	name   string
	run    func(context.Context) error
}

func newTester(cfg config, out io.Writer) *tester {
	return &tester{
		cfg:     cfg,
		out:     out,
		client:  newAPIClient(cfg.serverURL, cfg.project, cfg.httpTimeout),
		metrics: newMetricsCollector(cfg.showSummary),
	}
}

func (t *tester) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(t.out, format, args...)
}

func (t *tester) run(ctx context.Context) error {
	steps := []testStep{
		{1, "Single pass", func(ctx context.Context) error { return t.performPass(ctx) }},
		{2, fmt.Sprintf("%d sequential passes", t.cfg.passCount), t.runSequential},
		{3, fmt.Sprintf("%d parallel moves", t.cfg.parallelMoves), t.runParallelMoves},
		{4, fmt.Sprintf("%d full passes in parallel", t.cfg.parallelPass), t.runParallelPasses},
	}

	ran := 0
	for _, step := range steps {
		if len(t.cfg.steps) > 0 && !slices.Contains(t.cfg.steps, step.number) {
			continue
		}
		t.printf("\nStep %d: %s\n", step.number, step.name)
		t.metrics.startStep(fmt.Sprintf("Step %d: %s", step.number, step.name))
		err := step.run(ctx)
		t.metrics.endStep(err)
		if err != nil {
			return fmt.Errorf("step %d failed: %w", step.number, err)
		}
		t.printf("Step %d completed successfully\n", step.number)
		ran++
	}

	if ran == 0 {
		return errNoSteps
	}
	return nil
}

func (t *tester) runSequential(ctx context.Context) error {
	for i := 1; i <= t.cfg.passCount; i++ {
		t.printf("  Pass %d/%d...\n", i, t.cfg.passCount)
		if err := t.performPass(ctx); err != nil {
			return fmt.Errorf("sequential pass %d: %w", i, err)
		}
	}
	return nil
}

func (t *tester) runParallelPasses(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for range t.cfg.parallelPass {
		g.Go(func() error { return t.performPass(gctx) })
	}
	return g.Wait()
}

// runParallelMoves uploads files into one folder and moves them all to another
// concurrently; every move must be applied exactly once.
func (t *tester) runParallelMoves(ctx context.Context) error {
	bucket, cleanup, err := t.setupBucket(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := t.timed("folder", 0, func() error { return t.client.createFolder(ctx, bucket, "", "dst") }); err != nil {
		return err
	}

	ids := make([]string, 0, t.cfg.parallelMoves)
	for i := range t.cfg.parallelMoves {
		data, _, err := t.randomData()
		if err != nil {
			return err
		}
		file, err := t.uploadFile(ctx, bucket, "src", fmt.Sprintf("file-%03d.bin", i), data)
		if err != nil {
			return err
		}
		ids = append(ids, file.ID)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			res, err := t.moveFile(gctx, bucket, id, "dst")
			if err != nil {
				return err
			}
			if res.State != "applied" {
				return fmt.Errorf("move of %s ended in state %q", id, res.State)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, id := range ids {
		info, err := t.fetchInfo(ctx, bucket, id)
		if err != nil {
			return err
		}
		if info.FolderPath != "dst" {
			return fmt.Errorf("file %s is in %q after move", id, info.FolderPath)
		}
	}
	return nil
}

// performPass runs the whole lifecycle in a fresh bucket.
func (t *tester) performPass(ctx context.Context) error {
	bucket, cleanup, err := t.setupBucket(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	data, expected, err := t.randomData()
	if err != nil {
		return err
	}

	file, err := t.uploadFile(ctx, bucket, "src", "payload.bin", data)
	if err != nil {
		return err
	}
	if file.Checksum != expected {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, file.Checksum)
	}

	if _, err := t.fetchInfo(ctx, bucket, file.ID); err != nil {
		return err
	}
	if err := t.verifyDownload(ctx, bucket, file.ID, data); err != nil {
		return err
	}

	res, err := t.moveFile(ctx, bucket, file.ID, "src")
	if err != nil {
		return err
	}
	if !res.Unchanged {
		return errors.New("move to the current folder was not a no-op")
	}
	if _, err := t.moveFile(ctx, bucket, file.ID, ""); err != nil {
		return err
	}

	return t.timed("delete", 0, func() error { return t.client.deleteFile(ctx, bucket, file.ID) })
}

// setupBucket creates a uniquely named bucket with a "src" folder. The returned
// cleanup force-deletes it.
func (t *tester) setupBucket(ctx context.Context) (string, func(), error) {
	name := "test-" + uuid.NewString()[:8]
	if err := t.timed("bucket", 0, func() error { return t.client.createBucket(ctx, name) }); err != nil {
		return "", nil, err
	}

	cleanup := func() {
		if err := t.client.deleteBucket(context.WithoutCancel(ctx), name); err != nil {
			t.printf("failed to cleanup bucket %s: %v\n", name, err)
		}
	}
	if err := t.timed("folder", 0, func() error { return t.client.createFolder(ctx, name, "", "src") }); err != nil {
		cleanup()
		return "", nil, err
	}
	return name, cleanup, nil
}

func (t *tester) randomData() ([]byte, string, error) {
	data := make([]byte, t.cfg.fileSize)
	if _, err := rand.Read(data); err != nil {
		return nil, "", fmt.Errorf("generate random data: %w", err)
	}
	sum := sha256.Sum256(data)
	return data, hex.EncodeToString(sum[:]), nil
}

func (t *tester) uploadFile(ctx context.Context, bucket, path, name string, data []byte) (*fileResponse, error) {
	var file *fileResponse
	err := t.timed("upload", int64(len(data)), func() error {
		var err error
		file, err = t.client.upload(ctx, bucket, path, name, data)
		return err
	})
	return file, err
}

func (t *tester) fetchInfo(ctx context.Context, bucket, id string) (*fileResponse, error) {
	var file *fileResponse
	err := t.timed("info", 0, func() error {
		var err error
		file, err = t.client.info(ctx, bucket, id)
		return err
	})
	return file, err
}

func (t *tester) moveFile(ctx context.Context, bucket, id, target string) (*moveResponse, error) {
	var res *moveResponse
	err := t.timed("move", 0, func() error {
		var err error
		res, err = t.client.move(ctx, bucket, id, target)
		return err
	})
	return res, err
}

func (t *tester) verifyDownload(ctx context.Context, bucket, id string, expected []byte) error {
	return t.timed("download", int64(len(expected)), func() error {
		body, err := t.client.download(ctx, bucket, id)
		if err != nil {
			return err
		}
		if !bytes.Equal(body, expected) {
			return errors.New("downloaded data mismatch")
		}
		return nil
	})
}

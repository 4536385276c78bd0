package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/suite"

	"bucketfs/pkg/config"
	"bucketfs/pkg/models"
	"bucketfs/pkg/namespace"
)

type CLITestSuite struct {
	suite.Suite
	dir        string
	configPath string
}

func (s *CLITestSuite) SetupSuite() {
	color.NoColor = true
}

func (s *CLITestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.configPath = filepath.Join(s.dir, "bucketfs.yaml")
	cfg := "data_dir: " + s.dir + "\nlog:\n  level: error\n"
	s.Require().NoError(os.WriteFile(s.configPath, []byte(cfg), 0600))
}

// seed creates a bucket with a small hierarchy through the service.
func (s *CLITestSuite) seed() {
	cfg, err := config.Load(s.configPath)
	s.Require().NoError(err)
	s.Require().NoError(cfg.Validate())

	a, err := openApp(cfg, nil)
	s.Require().NoError(err)
	defer func() { s.Require().NoError(a.Close()) }()

	ctx := context.Background()
	scope := models.Scope{ProjectID: models.DefaultProject, Principal: "test"}
	_, err = a.service.CreateBucket(ctx, scope, namespace.BucketSpec{Name: "media"})
	s.Require().NoError(err)
	_, err = a.service.CreateFolder(ctx, scope, "media", "", "docs")
	s.Require().NoError(err)
	_, err = a.service.Upload(ctx, scope, "media", "docs", models.FileMeta{Name: "notes.txt", MimeType: "text/plain"},
		strings.NewReader(strings.Repeat("x", 2048)))
	s.Require().NoError(err)
	_, err = a.service.Upload(ctx, scope, "media", "", models.FileMeta{Name: "a.txt", MimeType: "text/plain"},
		strings.NewReader("a"))
	s.Require().NoError(err)
}

func (s *CLITestSuite) run(args ...string) (string, error) {
	cmd := newRootCmd("test")
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--config", s.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (s *CLITestSuite) TestTree() {
	s.seed()

	out, err := s.run("tree", "media")
	s.Require().NoError(err)
	s.Equal("media/\n  docs/\n    notes.txt (2.0 KiB)\n  a.txt (1 B)\n", out)

	out, err = s.run("tree", "media", "docs")
	s.Require().NoError(err)
	s.Equal("docs/\n  notes.txt (2.0 KiB)\n", out)
}

func (s *CLITestSuite) TestLs() {
	s.seed()

	out, err := s.run("ls", "media")
	s.Require().NoError(err)
	s.Contains(out, "media\n")
	s.Contains(out, "  docs/\n")
	s.Contains(out, "a.txt")

	out, err = s.run("ls", "media", "docs")
	s.Require().NoError(err)
	s.Contains(out, "media / docs\n")
	s.Contains(out, "notes.txt")
	s.Contains(out, "2.0 KiB")
}

func (s *CLITestSuite) TestUnknownBucket() {
	_, err := s.run("ls", "nope")
	s.ErrorIs(err, models.ErrBucketNotFound)
}

func (s *CLITestSuite) TestReconcile() {
	out, err := s.run("reconcile")
	s.Require().NoError(err)
	s.Equal("attempted 0, purged 0, failed 0\n", out)
}

func (s *CLITestSuite) TestInvalidConfig() {
	s.Require().NoError(os.WriteFile(s.configPath, []byte("blob:\n  driver: tape\n"), 0600))
	_, err := s.run("ls", "media")
	s.ErrorContains(err, "unknown blob.driver")
}

func TestCLITestSuite(t *testing.T) {
	suite.Run(t, new(CLITestSuite))
}

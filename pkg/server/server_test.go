package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"bucketfs/pkg/blob"
	"bucketfs/pkg/blob/disk"
	"bucketfs/pkg/metadata"
	"bucketfs/pkg/metrics"
	"bucketfs/pkg/models"
	"bucketfs/pkg/namespace"
	"bucketfs/pkg/purge"
)

// ServerTestSuite drives the HTTP routes against a real namespace service.
type ServerTestSuite struct {
	suite.Suite
	dir      string
	meta     *metadata.SQLiteStore
	queue    *purge.Queue
	registry *prometheus.Registry
	server   *Server
}

func (s *ServerTestSuite) SetupTest() {
	s.dir = s.T().TempDir()

	var err error
	s.meta, err = metadata.NewSQLiteStore(filepath.Join(s.dir, "meta.db"))
	s.Require().NoError(err)

	blobs, err := disk.New(filepath.Join(s.dir, "blobs"), "")
	s.Require().NoError(err)
	s.server = s.newServer(blobs)
}

func (s *ServerTestSuite) TearDownTest() {
	s.Require().NoError(s.queue.Close(context.Background()))
	s.Require().NoError(s.meta.Close())
}

func (s *ServerTestSuite) newServer(blobs blob.Store) *Server {
	if s.queue != nil {
		s.Require().NoError(s.queue.Close(context.Background()))
	}
	s.registry = prometheus.NewRegistry()
	m := metrics.New(s.registry)
	s.queue = purge.New(blobs, s.meta, purge.Options{Workers: 1, Metrics: m})

	service, err := namespace.New(s.meta, blobs, s.queue, namespace.Options{Metrics: m})
	s.Require().NoError(err)
	return New(service, Options{Version: "test-v1.0.0", DataDir: s.dir, Gatherer: s.registry})
}

func (s *ServerTestSuite) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set(HeaderProject, "proj")
	req.Header.Set(HeaderPrincipal, "alice")

	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (s *ServerTestSuite) doJSON(method, target string, payload any) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		s.Require().NoError(err)
		body = bytes.NewReader(data)
	}
	return s.do(method, target, body, "application/json")
}

func (s *ServerTestSuite) upload(bucket, path, name, contentType, content string) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if path != "" {
		s.Require().NoError(writer.WriteField("path", path))
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	s.Require().NoError(err)
	_, err = part.Write([]byte(content))
	s.Require().NoError(err)
	s.Require().NoError(writer.Close())

	return s.do(http.MethodPost, "/api/v1/buckets/"+bucket+"/files", body, writer.FormDataContentType())
}

func (s *ServerTestSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (s *ServerTestSuite) createBucket(name string, maxSize int64) {
	spec := map[string]any{"name": name}
	if maxSize > 0 {
		spec["max_file_size"] = maxSize
	}
	rec := s.doJSON(http.MethodPost, "/api/v1/buckets", spec)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *ServerTestSuite) TestBucketLifecycle() {
	s.createBucket("media", 0)

	rec := s.doJSON(http.MethodPost, "/api/v1/buckets", map[string]any{"name": "media"})
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.doJSON(http.MethodPost, "/api/v1/buckets", map[string]any{"name": "bad name"})
	s.Equal(http.StatusBadRequest, rec.Code)
	var errBody map[string]string
	s.decode(rec, &errBody)
	s.Equal("validation", errBody["category"])

	rec = s.doJSON(http.MethodPatch, "/api/v1/buckets/media", map[string]any{"description": "photos", "is_public": true})
	s.Require().Equal(http.StatusOK, rec.Code)
	var bucket models.Bucket
	s.decode(rec, &bucket)
	s.Equal("photos", bucket.Description)
	s.True(bucket.IsPublic)

	rec = s.do(http.MethodGet, "/api/v1/buckets", nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var list models.BucketListResponse
	s.decode(rec, &list)
	s.Require().Len(list.Buckets, 1)
	s.Equal("media", list.Buckets[0].Name)

	rec = s.do(http.MethodDelete, "/api/v1/buckets/media", nil, "")
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/buckets/media", nil, "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerTestSuite) TestUploadListDownload() {
	s.createBucket("media", 0)
	rec := s.doJSON(http.MethodPost, "/api/v1/buckets/media/folders", map[string]string{"name": "docs"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.upload("media", "docs", "notes.txt", "text/plain", "hello world")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var file models.File
	s.decode(rec, &file)
	s.Equal("notes.txt", file.OriginalName)
	s.Equal("docs", file.FolderPath)
	s.Equal("alice", file.Author)

	rec = s.do(http.MethodGet, "/api/v1/buckets/media/list?path=docs", nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var listing models.Listing
	s.decode(rec, &listing)
	s.Require().Len(listing.Files, 1)
	s.Equal(file.ID, listing.Files[0].ID)
	s.Len(listing.Breadcrumbs, 2)

	rec = s.do(http.MethodGet, "/api/v1/buckets/media/files/"+file.ID+"/download", nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("hello world", rec.Body.String())
	s.Equal("text/plain", rec.Header().Get("Content-Type"))
	s.Contains(rec.Header().Get("Content-Disposition"), "notes.txt")

	rec = s.do(http.MethodGet, "/api/v1/buckets/media/files/"+file.ID, nil, "")
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/buckets/media/files/missing/download", nil, "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerTestSuite) TestUploadErrors() {
	s.createBucket("small", 1000)

	rec := s.upload("small", "", "ok.bin", "application/zip", strings.Repeat("x", 1000))
	s.Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.upload("small", "", "big.bin", "application/zip", strings.Repeat("x", 1001))
	s.Equal(http.StatusRequestEntityTooLarge, rec.Code)

	rec = s.upload("small", "missing", "a.txt", "text/plain", "x")
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.upload("nope", "", "a.txt", "text/plain", "x")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerTestSuite) TestUploadMissingFile() {
	s.createBucket("media", 0)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	s.Require().NoError(writer.WriteField("notfile", "some data"))
	s.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/buckets/media/files", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := s.server.echo.NewContext(req, rec)
	c.SetParamNames("bucket")
	c.SetParamValues("media")

	s.NoError(s.server.uploadFile(c))
	s.Equal(http.StatusBadRequest, rec.Code)

	var response map[string]string
	s.decode(rec, &response)
	s.Equal("file parameter is required", response["error"])
}

func (s *ServerTestSuite) TestUploadBlobUnavailable() {
	s.server = s.newServer(unavailableBlobs{})
	s.createBucket("media", 0)

	rec := s.upload("media", "", "a.txt", "text/plain", "x")
	s.Equal(http.StatusBadGateway, rec.Code)
}

func (s *ServerTestSuite) TestMoveFile() {
	s.createBucket("media", 0)
	rec := s.doJSON(http.MethodPost, "/api/v1/buckets/media/folders", map[string]string{"name": "docs"})
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.upload("media", "docs", "a.txt", "text/plain", "x")
	s.Require().Equal(http.StatusCreated, rec.Code)
	var file models.File
	s.decode(rec, &file)

	rec = s.doJSON(http.MethodPost, "/api/v1/buckets/media/files/"+file.ID+"/move", map[string]string{"target": "missing"})
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.doJSON(http.MethodPost, "/api/v1/buckets/media/files/"+file.ID+"/move", map[string]string{"target": "docs"})
	s.Require().Equal(http.StatusOK, rec.Code)
	var noop moveResponse
	s.decode(rec, &noop)
	s.True(noop.Unchanged)
	s.Equal(namespace.MoveValidated, noop.State)

	rec = s.doJSON(http.MethodPost, "/api/v1/buckets/media/files/"+file.ID+"/move", map[string]string{"target": ""})
	s.Require().Equal(http.StatusOK, rec.Code)
	var moved moveResponse
	s.decode(rec, &moved)
	s.Equal(namespace.MoveApplied, moved.State)
	s.Equal("docs", moved.From)
	s.Equal("", moved.File.FolderPath)
}

func (s *ServerTestSuite) TestFolderDelete() {
	s.createBucket("media", 0)
	rec := s.doJSON(http.MethodPost, "/api/v1/buckets/media/folders", map[string]string{"name": "docs"})
	s.Require().Equal(http.StatusCreated, rec.Code)
	rec = s.upload("media", "docs", "a.txt", "text/plain", "x")
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodDelete, "/api/v1/buckets/media/folders?path=docs", nil, "")
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodDelete, "/api/v1/buckets/media/folders?path=docs&cascade=maybe", nil, "")
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodDelete, "/api/v1/buckets/media/folders?path=docs&cascade=true", nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var summary namespace.DeleteSummary
	s.decode(rec, &summary)
	s.Equal(int64(1), summary.Files)

	rec = s.do(http.MethodGet, "/api/v1/buckets/media/folders", nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"folders":[]}`, rec.Body.String())
}

func (s *ServerTestSuite) TestNonForcedBucketDelete() {
	s.createBucket("media", 0)
	rec := s.upload("media", "", "a.txt", "text/plain", "x")
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodDelete, "/api/v1/buckets/media", nil, "")
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/buckets/media", nil, "")
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodDelete, "/api/v1/buckets/media?force=true", nil, "")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *ServerTestSuite) TestTreeAndExpand() {
	s.createBucket("media", 0)
	s.Require().Equal(http.StatusCreated,
		s.doJSON(http.MethodPost, "/api/v1/buckets/media/folders", map[string]string{"name": "b"}).Code)
	s.Require().Equal(http.StatusCreated,
		s.doJSON(http.MethodPost, "/api/v1/buckets/media/folders", map[string]string{"name": "a"}).Code)
	s.Require().Equal(http.StatusCreated, s.upload("media", "", "z.txt", "text/plain", "z").Code)
	s.Require().Equal(http.StatusCreated, s.upload("media", "", "a.txt", "text/plain", "a").Code)

	rec := s.do(http.MethodGet, "/api/v1/buckets/media/tree", nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var result models.Tree
	s.decode(rec, &result)

	names := make([]string, 0, len(result.Root.Children))
	for _, child := range result.Root.Children {
		names = append(names, child.Name)
	}
	s.Equal([]string{"a", "b", "a.txt", "z.txt"}, names)

	rec = s.do(http.MethodGet, "/api/v1/buckets/media/tree/expand?path=a", nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/buckets/media/tree/expand?path=..", nil, "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerTestSuite) TestListFilesPagination() {
	s.createBucket("media", 0)
	for _, name := range []string{"c.txt", "a.txt", "b.txt"} {
		s.Require().Equal(http.StatusCreated, s.upload("media", "", name, "text/plain", name).Code)
	}

	rec := s.do(http.MethodGet, "/api/v1/buckets/media/files?limit=2&offset=1", nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var body struct {
		Files []models.File `json:"files"`
	}
	s.decode(rec, &body)
	s.Require().Len(body.Files, 2)
	s.Equal("b.txt", body.Files[0].OriginalName)
	s.Equal("c.txt", body.Files[1].OriginalName)

	rec = s.do(http.MethodGet, "/api/v1/buckets/media/files?limit=abc", nil, "")
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/buckets/media/files?sort=color", nil, "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerTestSuite) TestDeleteFile() {
	s.createBucket("media", 0)
	rec := s.upload("media", "", "a.txt", "text/plain", "x")
	var file models.File
	s.decode(rec, &file)

	rec = s.do(http.MethodDelete, "/api/v1/buckets/media/files/"+file.ID, nil, "")
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodDelete, "/api/v1/buckets/media/files/"+file.ID, nil, "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerTestSuite) TestReconcile() {
	rec := s.do(http.MethodPost, "/api/v1/admin/reconcile?limit=10", nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var result purge.ReconcileResult
	s.decode(rec, &result)
	s.Zero(result.Attempted)
}

func (s *ServerTestSuite) TestMetricsAndStatus() {
	s.createBucket("media", 0)

	rec := s.do(http.MethodGet, "/metrics", nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "bucketfs_operations_total")

	rec = s.do(http.MethodGet, "/status", nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var status Status
	s.decode(rec, &status)
	s.Equal("test-v1.0.0", status.Version)
	s.Require().NotNil(status.Storage)
	s.Positive(status.Storage.Total)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrInvalidPath, http.StatusBadRequest},
		{models.ErrFileNotFound, http.StatusNotFound},
		{models.ErrHasChildren, http.StatusConflict},
		{models.ErrMimeTypeRejected, http.StatusRequestEntityTooLarge},
		{models.ErrDependency, http.StatusBadGateway},
		{metadata.ErrDatabase, http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0m", formatUptime(59))
	assert.Equal(t, "1h 1m", formatUptime(3660))
	assert.Equal(t, "1d 1h 0m", formatUptime(90000))
}

// unavailableBlobs fails every call.
type unavailableBlobs struct{}

func (unavailableBlobs) Put(context.Context, string, io.Reader, blob.Meta) (*blob.Object, error) {
	return nil, blob.ErrUnavailable
}

func (unavailableBlobs) Get(context.Context, blob.Locator) (io.ReadCloser, error) {
	return nil, blob.ErrUnavailable
}

func (unavailableBlobs) Delete(context.Context, blob.Locator) error { return blob.ErrUnavailable }

func (unavailableBlobs) PublicURL(blob.Locator) (string, bool) { return "", false }

package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bucketfs/pkg/blob"
)

// objectServer is an in-memory blob service.
type objectServer struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	failures atomic.Int32
}

func (o *objectServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if o.failures.Load() > 0 {
		o.failures.Add(-1)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/blobs/")
	o.mu.Lock()
	defer o.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		if _, ok := o.objects[key]; ok {
			w.WriteHeader(http.StatusConflict)
			return
		}
		data, _ := io.ReadAll(r.Body)
		o.objects[key] = data
		o.types[key] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		data, ok := o.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	case http.MethodDelete:
		if _, ok := o.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(o.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type RemoteStoreTestSuite struct {
	suite.Suite
	backend *objectServer
	server  *httptest.Server
	store   *Store
	ctx     context.Context
}

func (s *RemoteStoreTestSuite) SetupTest() {
	s.backend = &objectServer{objects: map[string][]byte{}, types: map[string]string{}}
	s.server = httptest.NewServer(s.backend)

	var err error
	s.store, err = New(Options{
		Endpoint:      s.server.URL,
		PublicBaseURL: "https://cdn.example.com",
		RetryMax:      2,
		RetryWaitMin:  time.Millisecond,
		RetryWaitMax:  5 * time.Millisecond,
		Timeout:       5 * time.Second,
	})
	s.Require().NoError(err)
	s.ctx = context.Background()
}

func (s *RemoteStoreTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *RemoteStoreTestSuite) TestNewRejectsBadEndpoint() {
	_, err := New(Options{Endpoint: "not a url"})
	s.Error(err)
}

func (s *RemoteStoreTestSuite) TestPutGetDelete() {
	obj, err := s.store.Put(s.ctx, "abcd_file.txt", strings.NewReader("hello world"), blob.Meta{ContentType: "text/plain", Size: 11})
	s.Require().NoError(err)
	s.Equal(blob.Locator("abcd_file.txt"), obj.Locator)
	s.Equal(int64(11), obj.Size)
	s.Equal("b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", obj.Checksum)
	s.Equal("text/plain", s.backend.types["abcd_file.txt"])

	rc, err := s.store.Get(s.ctx, obj.Locator)
	s.Require().NoError(err)
	data, err := io.ReadAll(rc)
	s.Require().NoError(err)
	s.Require().NoError(rc.Close())
	s.Equal("hello world", string(data))

	s.Require().NoError(s.store.Delete(s.ctx, obj.Locator))
	s.ErrorIs(s.store.Delete(s.ctx, obj.Locator), blob.ErrNotFound)

	_, err = s.store.Get(s.ctx, obj.Locator)
	s.ErrorIs(err, blob.ErrNotFound)
}

func (s *RemoteStoreTestSuite) TestPutConflict() {
	_, err := s.store.Put(s.ctx, "dup_key", strings.NewReader("1"), blob.Meta{})
	s.Require().NoError(err)

	_, err = s.store.Put(s.ctx, "dup_key", strings.NewReader("2"), blob.Meta{})
	s.ErrorIs(err, blob.ErrExists)
}

func (s *RemoteStoreTestSuite) TestServerErrorsAreNotRetried() {
	s.backend.failures.Store(1)

	_, err := s.store.Put(s.ctx, "k_one", strings.NewReader("x"), blob.Meta{})
	s.ErrorIs(err, blob.ErrUnavailable)
	s.Zero(s.backend.failures.Load())
	s.NotContains(s.backend.objects, "k_one")
}

func (s *RemoteStoreTestSuite) TestUnreachableService() {
	s.server.Close()

	_, err := s.store.Put(s.ctx, "k_two", strings.NewReader("x"), blob.Meta{})
	s.ErrorIs(err, blob.ErrUnavailable)
}

func (s *RemoteStoreTestSuite) TestInvalidKey() {
	_, err := s.store.Put(s.ctx, "a/b", strings.NewReader("x"), blob.Meta{})
	s.ErrorIs(err, blob.ErrInvalidKey)
}

func (s *RemoteStoreTestSuite) TestPublicURL() {
	u, ok := s.store.PublicURL("abcd_pic.jpg")
	s.True(ok)
	s.Equal("https://cdn.example.com/abcd_pic.jpg", u)
}

func (s *RemoteStoreTestSuite) TestRetryPolicy() {
	ctx := context.Background()

	retry, err := connectionRetryPolicy(ctx, nil, io.ErrUnexpectedEOF)
	s.NoError(err)
	s.True(retry)

	retry, err = connectionRetryPolicy(ctx, &http.Response{StatusCode: http.StatusBadGateway}, nil)
	s.NoError(err)
	s.False(retry)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	retry, err = connectionRetryPolicy(canceled, nil, io.ErrUnexpectedEOF)
	s.ErrorIs(err, context.Canceled)
	s.False(retry)
}

func TestRemoteStoreTestSuite(t *testing.T) {
	suite.Run(t, new(RemoteStoreTestSuite))
}

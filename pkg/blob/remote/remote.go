// Package remote stores blobs on an HTTP object service exposing
// PUT, GET and DELETE on {endpoint}/blobs/{key}.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"bucketfs/pkg/blob"
	"bucketfs/pkg/log"
)

// Options configure the HTTP client.
type Options struct {
	Endpoint      string
	PublicBaseURL string
	RetryMax      int
	RetryWaitMin  time.Duration
	RetryWaitMax  time.Duration
	Timeout       time.Duration
}

// Store implements blob.Store against a remote service.
type Store struct {
	endpoint      string
	publicBaseURL string
	client        *retryablehttp.Client
	timeout       time.Duration
}

var _ blob.Store = (*Store)(nil)

// New validates the endpoint and builds the retrying client.
func New(opts Options) (*Store, error) {
	if _, err := url.ParseRequestURI(opts.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid blob endpoint %q: %w", opts.Endpoint, err)
	}
	return &Store{
		endpoint:      opts.Endpoint,
		publicBaseURL: opts.PublicBaseURL,
		client:        CreateRetryableClient(opts.RetryMax, opts.RetryWaitMin, opts.RetryWaitMax),
		timeout:       opts.Timeout,
	}, nil
}

// CreateRetryableClient builds a client that retries only when no response arrived.
func CreateRetryableClient(retryMax int, retryWaitMin, retryWaitMax time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = retryWaitMin
	client.RetryWaitMax = retryWaitMax
	client.Logger = nil
	client.CheckRetry = connectionRetryPolicy
	return client
}

// connectionRetryPolicy retries transport failures but hands every HTTP response,
// including 5xx, back to the caller.
func connectionRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if resp != nil {
		return false, nil
	}
	return err != nil, nil
}

func (s *Store) blobURL(key string) (string, error) {
	return url.JoinPath(s.endpoint, "blobs", key)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) do(ctx context.Context, method, key string, body io.Reader, contentType string) (*http.Response, error) {
	if err := blob.ValidateKey(key); err != nil {
		return nil, err
	}
	target, err := s.blobURL(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", blob.ErrInvalidKey, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("method", method).Str("key", key).Msg("Blob service request failed")
		return nil, fmt.Errorf("%w: %w", blob.ErrUnavailable, err)
	}
	return resp, nil
}

// Put uploads the bytes. The body is buffered by the retrying client so it can be
// replayed; the digest is complete once the request is built.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, meta blob.Meta) (*blob.Object, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	digest := blob.NewDigestReader(r)
	resp, err := s.do(ctx, http.MethodPut, key, digest, meta.ContentType)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
	case http.StatusConflict:
		return nil, blob.ErrExists
	default:
		return nil, statusError(resp)
	}

	return &blob.Object{
		Locator:  blob.Locator(key),
		Size:     digest.Size(),
		Checksum: digest.Checksum(),
	}, nil
}

// Get streams the blob. The timeout, if any, only bounds the request headers.
func (s *Store) Get(ctx context.Context, loc blob.Locator) (io.ReadCloser, error) {
	resp, err := s.do(ctx, http.MethodGet, string(loc), nil, "")
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		drain(resp)
		return nil, blob.ErrNotFound
	default:
		defer drain(resp)
		return nil, statusError(resp)
	}
}

// Delete removes the blob.
func (s *Store) Delete(ctx context.Context, loc blob.Locator) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.do(ctx, http.MethodDelete, string(loc), nil, "")
	if err != nil {
		return err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return blob.ErrNotFound
	default:
		return statusError(resp)
	}
}

// PublicURL joins the configured base URL with the locator.
func (s *Store) PublicURL(loc blob.Locator) (string, bool) {
	if s.publicBaseURL == "" {
		return "", false
	}
	u, err := url.JoinPath(s.publicBaseURL, string(loc))
	if err != nil {
		return "", false
	}
	return u, true
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", blob.ErrUnavailable, resp.StatusCode)
	}
	return fmt.Errorf("blob service returned status %d", resp.StatusCode)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

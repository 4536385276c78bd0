package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// apiClient talks to a bucketfs server.
type apiClient struct {
	baseURL    string
	project    string
	httpClient *http.Client
}

type fileResponse struct {
	ID         string `json:"id"`
	FolderPath string `json:"folder_path"`
	Size       int64  `json:"size"`
	Checksum   string `json:"checksum"`
}

type moveResponse struct {
	State     string `json:"state"`
	Unchanged bool   `json:"unchanged"`
}

func newAPIClient(baseURL, project string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api/v1",
		project:    project,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// doRequest performs an HTTP request and returns the body of a 2xx response.
func (c *apiClient) doRequest(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Project-ID", c.project)
	req.Header.Set("X-Principal", "bucketfs-test")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return respBody, fmt.Errorf("%s %s returned %s: %s", method, path, resp.Status, string(respBody))
	}
	return respBody, nil
}

func (c *apiClient) doJSON(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	respBody, err := c.doRequest(ctx, method, path, body, "application/json")
	if err != nil {
		return err
	}
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

func (c *apiClient) createBucket(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodPost, "/buckets", map[string]string{"name": name}, nil)
}

func (c *apiClient) deleteBucket(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodDelete, "/buckets/"+name+"?force=true", nil, nil)
}

func (c *apiClient) createFolder(ctx context.Context, bucket, path, name string) error {
	return c.doJSON(ctx, http.MethodPost, "/buckets/"+bucket+"/folders",
		map[string]string{"path": path, "name": name}, nil)
}

func (c *apiClient) upload(ctx context.Context, bucket, path, name string, data []byte) (*fileResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("path", path); err != nil {
		return nil, fmt.Errorf("write path field: %w", err)
	}
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write multipart data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/buckets/"+bucket+"/files", &buf, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}
	var file fileResponse
	if err := json.Unmarshal(respBody, &file); err != nil {
		return nil, fmt.Errorf("parse upload response: %w", err)
	}
	return &file, nil
}

func (c *apiClient) info(ctx context.Context, bucket, id string) (*fileResponse, error) {
	var file fileResponse
	if err := c.doJSON(ctx, http.MethodGet, "/buckets/"+bucket+"/files/"+id, nil, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

func (c *apiClient) download(ctx context.Context, bucket, id string) ([]byte, error) {
	return c.doRequest(ctx, http.MethodGet, "/buckets/"+bucket+"/files/"+id+"/download", nil, "")
}

func (c *apiClient) move(ctx context.Context, bucket, id, target string) (*moveResponse, error) {
	var res moveResponse
	if err := c.doJSON(ctx, http.MethodPost, "/buckets/"+bucket+"/files/"+id+"/move",
		map[string]string{"target": target}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *apiClient) deleteFile(ctx context.Context, bucket, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/buckets/"+bucket+"/files/"+id, nil, nil)
}

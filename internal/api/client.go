package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultServerAddr is where the CLI looks for the daemon unless told
// otherwise.
const DefaultServerAddr = "http://127.0.0.1:8750"

// Client provides HTTP access to a running daemon.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds a client for the given server address. A bare host:port
// is promoted to http; an empty address selects the default local daemon.
func NewClient(server string) *Client {
	base := strings.TrimRight(strings.TrimSpace(server), "/")
	if base == "" {
		base = DefaultServerAddr
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// APIError is a structured rejection returned by the daemon.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("daemon rejected request (http %d)", e.StatusCode)
}

// CreateSession mints a new credential session.
func (c *Client) CreateSession(ctx context.Context) (*SessionView, error) {
	var resp SessionView
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AttachCredentials stores collaborator keys on a session.
func (c *Client) AttachCredentials(ctx context.Context, token string, req AttachCredentialsRequest) (*SessionView, error) {
	var resp SessionView
	path := "/api/v1/sessions/" + url.PathEscape(token) + "/credentials"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitJob queues a story for generation.
func (c *Client) SubmitJob(ctx context.Context, req SubmitJobRequest) (*JobView, error) {
	var resp JobView
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobStatus fetches the current state of a job.
func (c *Client) JobStatus(ctx context.Context, token string) (*JobView, error) {
	var resp JobView
	path := "/api/v1/jobs/" + url.PathEscape(token)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListJobs returns queue entries, optionally filtered by status.
func (c *Client) ListJobs(ctx context.Context, statuses ...string) (*JobListResponse, error) {
	path := "/api/v1/jobs"
	if len(statuses) > 0 {
		query := url.Values{}
		for _, status := range statuses {
			if trimmed := strings.TrimSpace(status); trimmed != "" {
				query.Add("status", trimmed)
			}
		}
		if encoded := query.Encode(); encoded != "" {
			path += "?" + encoded
		}
	}
	var resp JobListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel interrupts a job and returns its terminal view.
func (c *Client) Cancel(ctx context.Context, token string) (*JobView, error) {
	var resp JobView
	path := "/api/v1/jobs/" + url.PathEscape(token) + "/cancel"
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health fetches the daemon health aggregate.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchArtifact downloads a completed job's artifact. When outputPath is
// empty or names a directory, the server-suggested filename is used. The
// written path is returned.
func (c *Client) FetchArtifact(ctx context.Context, token, outputPath string) (string, error) {
	path := "/api/v1/jobs/" + url.PathEscape(token) + "/artifact"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return "", fmt.Errorf("build artifact request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp)
	}

	target, err := resolveArtifactPath(outputPath, resp.Header.Get("Content-Disposition"))
	if err != nil {
		return "", err
	}
	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create artifact file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return "", fmt.Errorf("write artifact file: %w", err)
	}
	return target, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reach daemon at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return apiErr
	}
	var parsed ErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Code != "" {
		apiErr.Code = parsed.Error.Code
		apiErr.Message = parsed.Error.Message
	}
	return apiErr
}

// resolveArtifactPath picks the destination file. Explicit file paths win;
// directories and empty paths take the filename suggested by the server.
func resolveArtifactPath(outputPath, disposition string) (string, error) {
	suggested := "artifact.bin"
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := strings.TrimSpace(params["filename"]); name != "" {
				suggested = filepath.Base(name)
			}
		}
	}

	trimmed := strings.TrimSpace(outputPath)
	if trimmed == "" {
		return suggested, nil
	}
	if info, err := os.Stat(trimmed); err == nil && info.IsDir() {
		return filepath.Join(trimmed, suggested), nil
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}
	return trimmed, nil
}

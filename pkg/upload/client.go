package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-formgate/internal/logging"
)

// Result is one entry of the upload endpoint response: derived renderings of
// an uploaded file keyed by variant name ("Original", "Thumbnail", "Hero",
// "Wide", "markdown").
type Result struct {
	Paths map[string]string `json:"paths"`
}

// Path returns the value stored for variant.
func (r Result) Path(variant string) string {
	if r.Paths == nil {
		return ""
	}
	return r.Paths[variant]
}

// Endpoint describes where and how a slot's files are posted. Field is the
// multipart field name; batch slots repeat it once per file ("photos[]").
// Extra carries additional string fields sent with the files; values may be
// resolved at commit time through ExtraFrom.
type Endpoint struct {
	URL       string            `json:"url" yaml:"url"`
	Field     string            `json:"field" yaml:"field"`
	Extra     map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
	ExtraFrom map[string]string `json:"extra_from,omitempty" yaml:"extra_from,omitempty"`
}

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("upload: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("upload: unexpected status %d: %s", e.StatusCode, body)
}

// Client posts multipart uploads to the upload endpoints.
type Client struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for uploads.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithBaseURL prefixes relative endpoint URLs.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// WithTimeout bounds each upload request. Zero keeps the transport default.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger sets the sink for upload diagnostics.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs an upload client.
func NewClient(options ...ClientOption) *Client {
	c := &Client{
		http: http.DefaultClient,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = logging.OrNop(c.logger)
	return c
}

// Upload sends files in a single multipart request and decodes the array of
// results. Response order is whatever the server returns.
func (c *Client) Upload(ctx context.Context, endpoint Endpoint, files []FileCandidate, extra map[string]string) ([]Result, error) {
	if endpoint.URL == "" {
		return nil, errors.New("upload: endpoint url is required")
	}
	if endpoint.Field == "" {
		return nil, errors.New("upload: endpoint field is required")
	}
	if len(files) == 0 {
		return nil, errors.New("upload: no files to send")
	}

	body, contentType, err := encodeMultipart(endpoint.Field, files, extra)
	if err != nil {
		return nil, err
	}

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.resolve(endpoint.URL), body)
	if err != nil {
		return nil, fmt.Errorf("upload: request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	c.logger.Debug("upload started",
		zap.String("url", req.URL.String()),
		zap.String("field", endpoint.Field),
		zap.Int("files", len(files)),
		zap.String("request_id", requestID),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var results []Result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("upload: decode response: %w", err)
	}
	return results, nil
}

func (c *Client) resolve(target string) string {
	if c.baseURL == "" || strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return c.baseURL + target
}

func encodeMultipart(field string, files []FileCandidate, extra map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, file := range files {
		if file.Open == nil {
			return nil, "", fmt.Errorf("upload: file %q has no content", file.Name)
		}
		part, err := writer.CreateFormFile(field, file.Name)
		if err != nil {
			return nil, "", fmt.Errorf("upload: create part: %w", err)
		}
		if err := copyFile(part, file); err != nil {
			return nil, "", err
		}
	}

	for _, key := range sortedKeys(extra) {
		if err := writer.WriteField(key, extra[key]); err != nil {
			return nil, "", fmt.Errorf("upload: write field %q: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("upload: close multipart: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func copyFile(dst io.Writer, file FileCandidate) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("upload: open %q: %w", file.Name, err)
	}
	defer func() {
		_ = src.Close()
	}()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("upload: read %q: %w", file.Name, err)
	}
	return nil
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	payloadSnippet = 512
	// maxCommandBytes caps a command payload; larger bodies are rejected as malformed.
	maxCommandBytes = 64 << 10
)

// Endpoints are the paths of the three control-service resources.
type Endpoints struct {
	Command string
	Status  string
	Upload  string
}

// DefaultEndpoints returns the stock control-service paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Command: "/api/recording/command",
		Status:  "/api/recording/status",
		Upload:  "/api/recording/upload",
	}
}

// Client calls the control service.
type Client struct {
	base      *url.URL
	endpoints Endpoints
	http      *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New constructs a client for baseURL. A zero timeout leaves requests bounded
// only by their context.
func New(baseURL string, endpoints Endpoints, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("remote: base url is required")
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("remote: base url %q must be absolute", baseURL)
	}
	defaults := DefaultEndpoints()
	if endpoints.Command == "" {
		endpoints.Command = defaults.Command
	}
	if endpoints.Status == "" {
		endpoints.Status = defaults.Status
	}
	if endpoints.Upload == "" {
		endpoints.Upload = defaults.Upload
	}
	c := &Client{
		base:      base,
		endpoints: endpoints,
		http:      &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured control-service root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(path string) string {
	ref := &url.URL{Path: strings.TrimRight(c.base.Path, "/") + path}
	return c.base.ResolveReference(ref).String()
}

// FetchCommand retrieves the pending command. A 204 or an empty body yields an
// empty Command.
func (c *Client) FetchCommand(ctx context.Context) (Command, error) {
	endpoint := c.endpoint(c.endpoints.Command)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Command{}, &TransportError{Op: "GET", URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Command{}, &TransportError{Op: "GET", URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Command{}, &TransportError{Op: "GET", URL: endpoint, StatusCode: resp.StatusCode, Err: bodyError(resp.Body)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCommandBytes+1))
	if err != nil {
		return Command{}, &TransportError{Op: "GET", URL: endpoint, Err: err}
	}
	if len(body) > maxCommandBytes {
		return Command{}, &DecodeError{
			Payload: snippet(body),
			Err:     fmt.Errorf("command payload exceeds %d bytes", maxCommandBytes),
		}
	}
	return DecodeCommand(body)
}

// DecodeCommand parses a command payload. Field names match case-insensitively.
func DecodeCommand(body []byte) (Command, error) {
	cmd := Command{Quality: "medium"}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return cmd, nil
	}
	if err := json.Unmarshal(trimmed, &cmd); err != nil {
		return Command{}, &DecodeError{Payload: snippet(trimmed), Err: err}
	}
	if strings.TrimSpace(cmd.Quality) == "" {
		cmd.Quality = "medium"
	}
	cmd.Action = strings.TrimSpace(cmd.Action)
	cmd.Type = strings.TrimSpace(cmd.Type)
	return cmd, nil
}

// ReportStatus posts a status report.
func (c *Client) ReportStatus(ctx context.Context, status Status) error {
	endpoint := c.endpoint(c.endpoints.Status)
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Op: "POST", URL: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: "POST", URL: endpoint, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: "POST", URL: endpoint, StatusCode: resp.StatusCode, Err: bodyError(resp.Body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Upload sends a finished recording as multipart form field "file".
func (c *Client) Upload(ctx context.Context, path string) error {
	endpoint := c.endpoint(c.endpoints.Upload)
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		pr.CloseWithError(err)
		return &TransportError{Op: "POST", URL: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return &TransportError{Op: "POST", URL: endpoint, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: "POST", URL: endpoint, StatusCode: resp.StatusCode, Err: bodyError(resp.Body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func bodyError(body io.Reader) error {
	data, _ := io.ReadAll(io.LimitReader(body, payloadSnippet))
	if text := strings.TrimSpace(string(data)); text != "" {
		return errors.New(text)
	}
	return nil
}

func snippet(body []byte) string {
	if len(body) > payloadSnippet {
		return string(body[:payloadSnippet]) + "…"
	}
	return string(body)
}

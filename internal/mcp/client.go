package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/eugenenazirov/bpmctl/internal/process"
)

const (
	// DefaultTimeout bounds every request made by the client.
	DefaultTimeout = 10 * time.Second
	// PreviewLength is how many characters of a response body Ping keeps.
	PreviewLength = 200

	maxBodyBytes = 10 << 20
)

// ErrProcessNotFound is returned by sources that know a process id is unknown.
var ErrProcessNotFound = errors.New("process not found")

// Source yields business-process templates.
type Source interface {
	ListProcesses(ctx context.Context) ([]process.Process, error)
	GetProcess(ctx context.Context, id int) (process.Process, error)
}

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: status %d - %s", e.URL, e.StatusCode, e.Body)
}

// PingResult describes a successful connection test.
type PingResult struct {
	URL        string
	StatusCode int
	Preview    string
}

// Client performs GET requests against the MCP server.
type Client struct {
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures the behaviour of NewClient.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client (primarily for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a Client for baseURL sending headers on every request.
func NewClient(baseURL string, headers map[string]string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		headers:    make(map[string]string, len(headers)),
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		logger:     zap.NewNop(),
	}
	for k, v := range headers {
		c.headers[k] = v
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the MCP server base URL.
func (c *Client) URL() string {
	return c.baseURL
}

// ProcessesURL returns the endpoint listing process templates.
func (c *Client) ProcessesURL() string {
	return c.baseURL + "/processes/"
}

// ProcessURL returns the endpoint of a single process template.
func (c *Client) ProcessURL(id int) string {
	return c.baseURL + "/processes/" + strconv.Itoa(id) + "/"
}

// Ping issues a GET to the base URL and returns a preview of the response.
func (c *Client) Ping(ctx context.Context) (PingResult, error) {
	status, body, err := c.get(ctx, c.baseURL)
	if err != nil {
		return PingResult{URL: c.baseURL, StatusCode: status}, err
	}
	return PingResult{
		URL:        c.baseURL,
		StatusCode: status,
		Preview:    truncate(string(body), PreviewLength),
	}, nil
}

// ListProcesses fetches every process template.
func (c *Client) ListProcesses(ctx context.Context) ([]process.Process, error) {
	var out []process.Process
	if err := c.getJSON(ctx, c.ProcessesURL(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProcess fetches a single process template.
func (c *Client) GetProcess(ctx context.Context, id int) (process.Process, error) {
	var out process.Process
	if err := c.getJSON(ctx, c.ProcessURL(id), &out); err != nil {
		return process.Process{}, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, url string, dst any) error {
	_, body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("url", url), zap.Error(err))
		return 0, nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response from %s: %w", url, err)
	}

	c.logger.Debug("request completed",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, body, &StatusError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return resp.StatusCode, body, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Package client talks to the ProjTrack HTTP API on behalf of projctl.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// ErrNotLoggedIn is returned by calls that need a token when none is stored.
var ErrNotLoggedIn = errors.New("not logged in (run projctl login)")

// Client is a ProjTrack API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	userAgent  string
	store      *CredentialStore

	mu    sync.Mutex
	creds Credentials

	refreshMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithCredentialStore persists token changes (login, refresh, logout).
func WithCredentialStore(store *CredentialStore) Option {
	return func(c *Client) { c.store = store }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for the server at baseURL. creds may be nil.
func New(baseURL string, creds *Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
		userAgent:  "projctl",
	}
	if creds != nil {
		c.creds = *creds
	}
	for _, opt := range opts {
		opt(c)
	}
	c.creds.Server = c.baseURL
	return c
}

// Credentials returns a copy of the current credentials.
func (c *Client) Credentials() Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds
}

func (c *Client) setCredentials(creds Credentials) error {
	c.mu.Lock()
	c.creds = creds
	c.creds.Server = c.baseURL
	saved := c.creds
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	return c.store.Save(&saved)
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.AccessToken
}

// call sends one request and decodes the "data" member of the response into out.
// When authed is set and the server answers 401, the refresh token is
// exchanged once and the request retried.
func (c *Client) call(ctx context.Context, method, path string, in, out any, authed bool) (int, error) {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
	}

	used := c.accessToken()
	if authed && used == "" {
		return 0, ErrNotLoggedIn
	}

	status, err := c.send(ctx, method, path, body, out, authed)
	if authed && IsStatus(err, http.StatusUnauthorized) && c.Credentials().RefreshToken != "" {
		c.logger.Debug("access token rejected, refreshing", zap.String("path", path))
		if rerr := c.refreshIfStale(ctx, used); rerr != nil {
			return status, fmt.Errorf("session expired (run projctl login): %w", rerr)
		}
		return c.send(ctx, method, path, body, out, authed)
	}
	return status, err
}

// refreshIfStale refreshes unless another call already replaced stale.
func (c *Client) refreshIfStale(ctx context.Context, stale string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	if c.accessToken() != stale {
		return nil
	}
	return c.Refresh(ctx)
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, out any, authed bool) (int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.accessToken())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, decodeError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response data: %w", err)
	}
	return resp.StatusCode, nil
}

func decodeError(status int, data []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		return &APIError{StatusCode: status, Code: envelope.Error.Code, Message: envelope.Error.Message}
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

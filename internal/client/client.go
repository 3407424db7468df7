// Package client is the LogShackBaby API client.
//
// Every call goes through Client.Do, which attaches the session token,
// classifies failures and, when the server rejects a real session, runs the
// expiry recovery: clear the session, then notify the ExpiryHook.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/me/logshack/internal/logging"
	"github.com/me/logshack/internal/session"
	"github.com/me/logshack/pkg/model"
)

// Header names understood by the backend.
const (
	HeaderSessionToken = "X-Session-Token"
	HeaderAPIKey       = "X-API-Key"
	HeaderRequestID    = "X-Request-ID"
)

// Service selects which backend base URL a request targets.
type Service int

const (
	// ServiceMain is the log server.
	ServiceMain Service = iota
	// ServiceContest is the separate contest service.
	ServiceContest
)

// ExpiryHook reacts to a server-side session expiry after the session has
// been cleared. It runs at most once per expired token.
type ExpiryHook interface {
	SessionExpired(ctx context.Context)
}

// Config holds client settings.
type Config struct {
	BaseURL    string        // Log server, e.g. http://localhost:5000
	ContestURL string        // Contest service; empty means BaseURL
	Timeout    time.Duration // Per-request timeout; 0 means none
	RateLimit  float64       // Requests per second; 0 means unlimited
}

// Client is an HTTP client for the LogShackBaby API.
type Client struct {
	config     Config
	httpClient *http.Client
	session    *session.Store
	limiter    *rate.Limiter
	hook       ExpiryHook
	logger     *slog.Logger
}

// Option configures optional Client dependencies.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithExpiryHook sets the hook run after a session expiry.
func WithExpiryHook(h ExpiryHook) Option {
	return func(c *Client) {
		c.hook = h
	}
}

// New creates a LogShackBaby API client bound to a session store.
func New(cfg Config, sess *session.Store, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Discard()
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		session:    sess,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.With("component", "client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetExpiryHook sets the hook run after a session expiry.
func (c *Client) SetExpiryHook(h ExpiryHook) {
	c.hook = h
}

// Session returns the store the client reads its token from.
func (c *Client) Session() *session.Store {
	return c.session
}

// Request describes one backend call.
type Request struct {
	Method string
	Path   string // Relative to /api, e.g. "/logs"
	Query  url.Values
	// Body is JSON-encoded unless it is an io.Reader, which is sent as-is
	// with ContentType.
	Body        any
	ContentType string
	Header      http.Header
	// SkipAuth marks calls that must work without a session (login,
	// registration, MFA verification, logout). They never trigger the
	// expiry recovery.
	SkipAuth bool
	Service  Service
}

// Do performs req and decodes a JSON response into out (which may be nil).
func (c *Client) Do(ctx context.Context, op string, req Request, out any) error {
	resp, err := c.send(ctx, op, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wrap(op, fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err))
	}
	return nil
}

// send performs req and returns a 2xx response whose body the caller must
// close. Non-2xx responses are turned into errors here.
func (c *Client) send(ctx context.Context, op string, req Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, wrap(op, err)
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, wrap(op, err)
	}

	token := ""
	if !req.SkipAuth {
		token = c.session.Token()
		if token == "" {
			return nil, wrap(op, ErrNotAuthenticated)
		}
		httpReq.Header.Set(HeaderSessionToken, token)
	}

	reqID := httpReq.Header.Get(HeaderRequestID)
	logger := c.logger.With("op", op, "method", httpReq.Method, "url", httpReq.URL.Path, "request_id", reqID)
	logger.Debug("HTTP request", "skip_auth", req.SkipAuth)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.Debug("HTTP request failed", "error", err)
		return nil, wrap(op, fmt.Errorf("request failed: %w", err))
	}
	logger.Debug("HTTP response", "status", resp.StatusCode, "duration", time.Since(start).String())

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && !req.SkipAuth {
		c.expire(ctx, token)
		return nil, wrap(op, ErrSessionExpired)
	}

	return nil, wrap(op, decodeAPIError(resp))
}

// expire runs the recovery sequence once per rejected token.
func (c *Client) expire(ctx context.Context, token string) {
	if !c.session.ClearIfToken(ctx, token) {
		return
	}
	c.logger.Info("session expired, cleared local session")
	if c.hook != nil {
		c.hook.SessionExpired(ctx)
	}
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	base := c.config.BaseURL
	if req.Service == ServiceContest && c.config.ContestURL != "" {
		base = c.config.ContestURL
	}
	u := strings.TrimRight(base, "/") + "/api" + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	contentType := req.ContentType
	switch b := req.Body.(type) {
	case nil:
	case io.Reader:
		body = b
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(HeaderRequestID, "req_"+uuid.New().String()[:8])
	return httpReq, nil
}

func decodeAPIError(resp *http.Response) *model.APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &model.APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
		msg := strings.TrimSpace(string(data))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		apiErr.Message = msg
	}
	return apiErr
}

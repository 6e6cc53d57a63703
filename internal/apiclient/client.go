package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/respectcfw/webclient/internal/metrics"
)

// SignInPath is where the adapter sends the user after a detected
// session expiry.
const SignInPath = "/signin"

const adminLoginPath = "/dashboard/login"

// CredentialSource supplies the bearer token for outbound requests and
// clears every persisted session artifact when the backend says the
// session is gone. The session store writes the same storage the
// source reads; the adapter never imports the session store.
type CredentialSource interface {
	Token() string
	Clear()
}

// Navigator abstracts the UI shell's location. Path returns the
// current route; Assign performs a full navigation.
type Navigator interface {
	Path() string
	Assign(path string)
}

// NopNavigator is the default for headless consumers.
type NopNavigator struct{}

func (NopNavigator) Path() string  { return "" }
func (NopNavigator) Assign(string) {}

// Client is the single chokepoint for every backend call: base URL,
// bearer injection, envelope decoding and the 401 session reset.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	nav        Navigator
	log        *slog.Logger
	collector  *metrics.Collector
}

type Option func(*Client)

func WithNavigator(nav Navigator) Option {
	return func(c *Client) { c.nav = nav }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Client) { c.collector = collector }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL string, creds CredentialSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		nav:     NopNavigator{},
		log:     slog.Default(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestConfig struct {
	retry       bool
	contentType string
	raw         io.Reader
}

type RequestOption func(*requestConfig)

// WithRetryFlag marks a request as a retry of an earlier call. A 401
// on a flagged request does not trigger the session reset again.
func WithRetryFlag() RequestOption {
	return func(cfg *requestConfig) { cfg.retry = true }
}

func (c *Client) Get(ctx context.Context, path string) (*Envelope, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

func (c *Client) Delete(ctx context.Context, path string) (*Envelope, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// PostForm sends a multipart/form-data request, letting build write
// the fields and files.
func (c *Client) PostForm(ctx context.Context, path string, build func(w *multipart.Writer) error, opts ...RequestOption) (*Envelope, error) {
	return c.doForm(ctx, http.MethodPost, path, build, opts...)
}

func (c *Client) PutForm(ctx context.Context, path string, build func(w *multipart.Writer) error, opts ...RequestOption) (*Envelope, error) {
	return c.doForm(ctx, http.MethodPut, path, build, opts...)
}

func (c *Client) doForm(ctx context.Context, method, path string, build func(w *multipart.Writer) error, opts ...RequestOption) (*Envelope, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := build(mw); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}
	opts = append(opts, func(cfg *requestConfig) {
		cfg.raw = &buf
		cfg.contentType = mw.FormDataContentType()
	})
	return c.Do(ctx, method, path, nil, opts...)
}

// Do performs one backend call. A present token is attached as a
// bearer credential; a missing token sends the request
// unauthenticated. Non-2xx responses come back as *APIError; a 401 on
// a non-retry request additionally clears the persisted session and
// navigates to the sign-in route unless the shell is already on a
// login route.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Envelope, error) {
	cfg := requestConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	reader := cfg.raw
	contentType := cfg.contentType
	if reader == nil && body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	token := c.creds.Token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	l := c.log.With("method", method, "path", path, "request_id", reqID)
	l.Debug("api request", "has_token", token != "")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	dur := time.Since(start)
	if err != nil {
		l.Error("api request failed", "error", err, "duration_ms", dur.Milliseconds())
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if c.collector != nil {
		c.collector.RecordStatus(resp.StatusCode)
		c.collector.RecordLatency(dur)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		l.Debug("api response", "status", resp.StatusCode, "duration_ms", dur.Milliseconds())
		env := &Envelope{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, env); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
		}
		return env, nil
	}

	apiErr := &APIError{Status: resp.StatusCode, Message: statusMessage(resp.StatusCode, raw)}
	l.Warn("api response", "status", resp.StatusCode, "message", apiErr.Message, "duration_ms", dur.Milliseconds())

	if resp.StatusCode == http.StatusUnauthorized && !cfg.retry {
		c.resetSession(l)
	}
	return nil, apiErr
}

// resetSession is the hard invalidation path: persisted artifacts go
// away and the shell is sent to the sign-in route. No in-band token
// refresh is attempted.
func (c *Client) resetSession(l *slog.Logger) {
	l.Info("session invalidated, clearing stored credentials")
	c.creds.Clear()

	loc := c.nav.Path()
	if strings.Contains(loc, SignInPath) || strings.Contains(loc, adminLoginPath) {
		return
	}
	l.Info("redirecting to sign-in", "from", loc)
	c.nav.Assign(SignInPath)
}

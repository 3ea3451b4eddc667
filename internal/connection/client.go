package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/storefront-go/internal/core/domain"
	"github.com/yndnr/storefront-go/internal/infra/buildinfo"
	"github.com/yndnr/storefront-go/internal/telemetry/logger"
	"github.com/yndnr/storefront-go/internal/telemetry/metric"
)

// DefaultTimeout bounds a single round trip when Config.Timeout is unset.
const DefaultTimeout = 100 * time.Second

// DefaultRefreshPath is the refresh endpoint relative to the base URL.
const DefaultRefreshPath = "/auth/jwt/refresh"

// TokenSource is the client's view of the token store.
type TokenSource interface {
	Get(ctx context.Context) domain.Token
	Set(ctx context.Context, tok domain.Token) error
	Clear(ctx context.Context) error
	// CompareAndSet stores next only if the held token still equals old.
	CompareAndSet(ctx context.Context, old, next domain.Token) (bool, error)
}

// Config configures a Client.
type Config struct {
	// Name labels metrics and logs ("core", "catalog").
	Name    string
	BaseURL string
	Timeout time.Duration

	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int

	// Tokens enables bearer authentication and 401 refresh. Nil for public
	// backends.
	Tokens      TokenSource
	RefreshPath string

	// TLS customises the transport when HTTPClient is nil.
	TLS *tls.Config

	HTTPClient *http.Client
	Metrics    *metric.Registry
	Logger     logger.Logger
}

// Client sends requests to one backend.
type Client struct {
	name      string
	baseURL   string
	http      *http.Client
	tokens    TokenSource
	refresher *Refresher
	limiter   *rate.Limiter
	userAgent string
	metrics   *metric.Registry
	logger    logger.Logger
}

// New creates a client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("base URL %q must start with http:// or https://", cfg.BaseURL))
	}
	if cfg.Name == "" {
		cfg.Name = "core"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
		if cfg.TLS != nil {
			tr := http.DefaultTransport.(*http.Transport).Clone()
			tr.TLSClientConfig = cfg.TLS
			hc.Transport = tr
		}
	}

	c := &Client{
		name:      cfg.Name,
		baseURL:   base,
		http:      hc,
		tokens:    cfg.Tokens,
		userAgent: buildinfo.UserAgent(),
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With("client", cfg.Name),
	}

	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	if cfg.Tokens != nil {
		path := cfg.RefreshPath
		if path == "" {
			path = DefaultRefreshPath
		}
		c.refresher = newRefresher(refresherConfig{
			endpoint:  base + path,
			path:      path,
			http:      hc,
			tokens:    cfg.Tokens,
			timeout:   cfg.Timeout,
			userAgent: c.userAgent,
			name:      cfg.Name,
			metrics:   cfg.Metrics,
			logger:    c.logger,
		})
	}

	return c, nil
}

// Name returns the client's label.
func (c *Client) Name() string { return c.name }

// BaseURL returns the base URL of the client.
func (c *Client) BaseURL() string { return c.baseURL }

// Refresher returns the refresh coordinator, or nil for clients without a
// token source.
func (c *Client) Refresher() *Refresher { return c.refresher }

// Do sends req. A 401 on a request that has not been replayed yet, while a
// refresh token is stored, triggers one coalesced refresh and a single
// replay with the new access token. If the refresh fails the token source
// is cleared and the original 401 is returned.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	var tok domain.Token
	if c.tokens != nil {
		tok = c.tokens.Get(ctx)
	}

	resp, err := c.send(ctx, req, body, contentType, tok.Access)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 300 {
		return resp, nil
	}

	first := c.httpError(req, resp)
	if resp.StatusCode != http.StatusUnauthorized || c.refresher == nil || req.retried || tok.Refresh == "" {
		return nil, first
	}

	next, rerr := c.refresher.Refresh(ctx, tok.Access)
	if rerr != nil {
		c.logger.Debug("refresh failed, returning original 401", "path", req.Path, "error", rerr)
		return nil, first
	}

	req.retried = true
	resp, err = c.send(ctx, req, body, contentType, next.Access)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, c.httpError(req, resp)
	}
	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// send performs one round trip and reads the whole reply.
func (c *Client) send(ctx context.Context, req *Request, body []byte, contentType, access string) (*Response, error) {
	if err := c.wait(ctx); err != nil {
		return nil, domain.ErrNetwork.WithDetails("rate limiter").Wrap(err)
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, domain.ErrInvalidArgument.WithDetails("build request").Wrap(err)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	} else {
		httpReq.Header.Del("Content-Type")
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("User-Agent", c.userAgent)
	if access != "" {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	}

	requestID := ulid.Make().String()
	httpReq.Header.Set("X-Request-ID", requestID)

	log := c.logger.WithContext(ctx).With("request_id", requestID, "method", req.Method, "path", req.Path)
	start := time.Now()

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(c.name, req.Method, 0, time.Since(start))
		log.Debug("request failed", "error", err)
		return nil, domain.ErrNetwork.WithDetails(req.Method + " " + req.Path).Wrap(err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	elapsed := time.Since(start)
	c.metrics.ObserveRequest(c.name, req.Method, httpResp.StatusCode, elapsed)
	if err != nil {
		log.Debug("reading response failed", "error", err)
		return nil, domain.ErrNetwork.WithDetails("read response").Wrap(err)
	}

	log.Debug("request completed",
		"status", httpResp.StatusCode,
		"elapsed", elapsed,
		"retried", req.retried)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		RequestID:  requestID,
	}, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	r := c.limiter.Reserve()
	delay := r.Delay()
	if delay == 0 {
		return nil
	}

	c.metrics.IncRateLimited(c.name)
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

func (c *Client) httpError(req *Request, resp *Response) *HTTPError {
	return &HTTPError{
		Method:     req.Method,
		Path:       req.Path,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		RequestID:  resp.RequestID,
	}
}

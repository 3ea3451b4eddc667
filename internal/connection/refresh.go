package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yndnr/storefront-go/internal/core/domain"
	"github.com/yndnr/storefront-go/internal/telemetry/logger"
	"github.com/yndnr/storefront-go/internal/telemetry/metric"
)

// Refresh outcomes, used as the metric label.
const (
	RefreshSuccess = "success"
	RefreshFailure = "failure"
	RefreshReused  = "reused"
)

var (
	// ErrNoRefreshToken is returned when a refresh is requested without a
	// stored refresh token.
	ErrNoRefreshToken = errors.New("connection: no refresh token")

	// ErrSessionChanged is returned when the session was logged out or
	// replaced while its refresh was in flight. The result is discarded.
	ErrSessionChanged = errors.New("connection: session changed during refresh")
)

// Refresher exchanges the refresh token for a new access token. Concurrent
// callers share one round trip.
type Refresher struct {
	endpoint  string
	path      string
	http      *http.Client
	tokens    TokenSource
	timeout   time.Duration
	userAgent string
	name      string
	metrics   *metric.Registry
	logger    logger.Logger

	group singleflight.Group
}

type refresherConfig struct {
	endpoint  string
	path      string
	http      *http.Client
	tokens    TokenSource
	timeout   time.Duration
	userAgent string
	name      string
	metrics   *metric.Registry
	logger    logger.Logger
}

func newRefresher(cfg refresherConfig) *Refresher {
	return &Refresher{
		endpoint:  cfg.endpoint,
		path:      cfg.path,
		http:      cfg.http,
		tokens:    cfg.tokens,
		timeout:   cfg.timeout,
		userAgent: cfg.userAgent,
		name:      cfg.name,
		metrics:   cfg.metrics,
		logger:    cfg.logger,
	}
}

// Refresh returns a token whose access differs from stale.
//
// If another caller already replaced stale, the stored token is returned
// without a round trip. Otherwise one refresh request is made on behalf of
// every concurrent caller. The round trip ignores caller cancellation: a
// caller whose ctx ends stops waiting while the others still get the result.
// On failure the token source is cleared.
func (r *Refresher) Refresh(ctx context.Context, stale string) (domain.Token, error) {
	if cur := r.tokens.Get(ctx); cur.Access != "" && cur.Access != stale {
		r.metrics.IncRefresh(RefreshReused)
		return cur, nil
	}

	ch := r.group.DoChan("refresh", func() (any, error) {
		return r.refresh(context.WithoutCancel(ctx), stale)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.Token{}, res.Err
		}
		return res.Val.(domain.Token), nil
	case <-ctx.Done():
		return domain.Token{}, ctx.Err()
	}
}

func (r *Refresher) refresh(ctx context.Context, stale string) (domain.Token, error) {
	cur := r.tokens.Get(ctx)
	if cur.Access != "" && cur.Access != stale {
		r.metrics.IncRefresh(RefreshReused)
		return cur, nil
	}
	if cur.Refresh == "" {
		r.metrics.IncRefresh(RefreshFailure)
		return domain.Token{}, ErrNoRefreshToken
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	access, err := r.exchange(ctx, cur.Refresh)
	if err != nil {
		r.metrics.IncRefresh(RefreshFailure)
		// Only the session this refresh was issued for is ended.
		cleared, cerr := r.tokens.CompareAndSet(ctx, cur, domain.Token{})
		switch {
		case cerr != nil:
			r.logger.Error("clearing token after failed refresh", "error", cerr)
		case cleared:
			r.logger.Warn("token refresh failed, session cleared", "error", err)
		default:
			r.logger.Warn("token refresh failed for a replaced session", "error", err)
		}
		return domain.Token{}, err
	}

	next := cur.WithAccess(access)
	stored, err := r.tokens.CompareAndSet(ctx, cur, next)
	if err != nil {
		r.metrics.IncRefresh(RefreshFailure)
		return domain.Token{}, err
	}
	if !stored {
		held := r.tokens.Get(ctx)
		if held.Access != "" && held.Refresh == cur.Refresh {
			r.metrics.IncRefresh(RefreshReused)
			return held, nil
		}
		r.metrics.IncRefresh(RefreshFailure)
		r.logger.Info("discarding refresh result, session was logged out or replaced")
		return domain.Token{}, ErrSessionChanged
	}

	r.metrics.IncRefresh(RefreshSuccess)
	r.logger.Debug("access token refreshed", "expires_at", next.ExpiresAt)
	return next, nil
}

// exchange posts {refresh} and returns the new access token.
func (r *Refresher) exchange(ctx context.Context, refresh string) (string, error) {
	payload, err := json.Marshal(map[string]string{"refresh": refresh})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", r.userAgent)

	start := time.Now()
	resp, err := r.http.Do(req)
	if err != nil {
		r.metrics.ObserveRequest(r.name, http.MethodPost, 0, time.Since(start))
		return "", domain.ErrNetwork.WithDetails("refresh").Wrap(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	r.metrics.ObserveRequest(r.name, http.MethodPost, resp.StatusCode, time.Since(start))
	if err != nil {
		return "", domain.ErrNetwork.WithDetails("refresh").Wrap(err)
	}
	if resp.StatusCode >= 300 {
		return "", &HTTPError{Method: http.MethodPost, Path: r.path, StatusCode: resp.StatusCode, Body: data}
	}

	var out struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(data, &out); err != nil || out.Access == "" {
		return "", domain.ErrAuth.WithDetails("refresh response carried no access token")
	}
	return out.Access, nil
}

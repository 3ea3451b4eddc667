package connection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/yndnr/storefront-go/internal/core/domain"
)

// HTTPError is a non-2xx reply.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	RequestID  string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message())
}

// messagePaths are tried in order against a JSON error body.
var messagePaths = []string{"detail", "message", "error", "non_field_errors.0", "errors.0.message"}

// Message returns the backend's own error text. DRF-style field errors
// ({"email": ["already taken"]}) are reported as "email: already taken".
func (e *HTTPError) Message() string {
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return http.StatusText(e.StatusCode)
	}
	if !gjson.Valid(body) {
		if len(body) > 200 {
			body = body[:200]
		}
		return body
	}

	for _, path := range messagePaths {
		if r := gjson.Get(body, path); r.Exists() && r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}

	var msg string
	gjson.Parse(body).ForEach(func(key, value gjson.Result) bool {
		switch {
		case value.IsArray() && value.Get("0").Type == gjson.String:
			msg = key.String() + ": " + value.Get("0").String()
		case value.Type == gjson.String:
			msg = key.String() + ": " + value.String()
		}
		return msg == ""
	})
	if msg != "" {
		return msg
	}
	return http.StatusText(e.StatusCode)
}

// IsStatus reports whether err is an *HTTPError with the given status.
func IsStatus(err error, status int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == status
}

// Classify maps err onto the domain taxonomy. Domain errors pass through.
func Classify(err error) *domain.DomainError {
	if err == nil {
		return nil
	}

	var he *HTTPError
	if errors.As(err, &he) {
		var base *domain.DomainError
		switch {
		case he.StatusCode == http.StatusUnauthorized:
			base = domain.ErrAuth
		case he.StatusCode == http.StatusForbidden:
			base = domain.ErrForbidden
		case he.StatusCode == http.StatusNotFound:
			base = domain.ErrNotFound
		case he.StatusCode >= 500:
			base = domain.ErrServer
		default:
			base = domain.ErrValidation
		}
		return base.WithDetails(he.Message()).WithCause(err)
	}

	var de *domain.DomainError
	if errors.As(err, &de) {
		return de
	}

	return domain.ErrNetwork.WithDetails(err.Error()).WithCause(err)
}

// Retryable reports whether err is a transient network failure worth
// another attempt. Caller cancellation is never retried.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return Classify(err).Code == domain.ErrNetwork.Code
}

package connection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/yndnr/storefront-go/internal/core/domain"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"

	maxResponseBytes = 8 << 20
)

// Request describes one call relative to the client's base URL.
//
// Body selects the content type: nil sends nothing, a string or url.Values
// is form-encoded, *RawBody and []byte are sent as-is, anything else is
// JSON-encoded.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any

	retried bool
}

// Retried reports whether the request is the replay that follows a
// refresh.
func (r *Request) Retried() bool {
	return r.retried
}

// RawBody is a pre-encoded payload such as a multipart form. ContentType is
// the body's own type, including any multipart boundary; when empty no
// Content-Type header is sent.
type RawBody struct {
	ContentType string
	Data        []byte
}

// Response is a fully read 2xx reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

// DecodeJSON decodes the response body into v. An empty body leaves v
// untouched.
func DecodeJSON(resp *Response, v any) error {
	if resp == nil || len(bytes.TrimSpace(resp.Body)) == 0 || v == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return domain.ErrServer.WithDetails("malformed response body").Wrap(err)
	}
	return nil
}

// encodeBody renders body once so it can be replayed after a refresh.
func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(b), contentTypeForm, nil
	case url.Values:
		return []byte(b.Encode()), contentTypeForm, nil
	case *RawBody:
		if b == nil {
			return nil, "", nil
		}
		return b.Data, b.ContentType, nil
	case []byte:
		return b, "", nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, "", fmt.Errorf("read request body: %w", err)
		}
		return data, "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", domain.ErrInvalidArgument.WithDetails("encode request body").Wrap(err)
		}
		return data, contentTypeJSON, nil
	}
}

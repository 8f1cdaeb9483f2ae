package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RawBody is sent unmodified with its own content type, for form uploads and
// binary payloads.
type RawBody struct {
	Reader      io.Reader
	ContentType string
}

// RequestOption adjusts a single call.
type RequestOption func(*requestConfig)

type requestConfig struct {
	header      http.Header
	query       url.Values
	contentType string
}

func newRequestConfig(opts []RequestOption) *requestConfig {
	cfg := &requestConfig{header: http.Header{}, query: url.Values{}}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithHeader adds a header to the call.
func WithHeader(key, value string) RequestOption {
	return func(c *requestConfig) { c.header.Add(key, value) }
}

// WithQuery adds a query parameter to the call.
func WithQuery(key, value string) RequestOption {
	return func(c *requestConfig) { c.query.Add(key, value) }
}

// WithContentType overrides the content type picked from the body.
func WithContentType(contentType string) RequestOption {
	return func(c *requestConfig) { c.contentType = contentType }
}

// encodeBody buffers body once so every attempt resends the same bytes.
func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case RawBody:
		return readRaw(b)
	case *RawBody:
		if b == nil {
			return nil, "", nil
		}
		return readRaw(*b)
	case url.Values:
		return []byte(b.Encode()), "application/x-www-form-urlencoded", nil
	case []byte:
		return b, "application/octet-stream", nil
	case string:
		return []byte(b), "text/plain; charset=utf-8", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		return data, "application/json", nil
	}
}

func readRaw(b RawBody) ([]byte, string, error) {
	if b.Reader == nil {
		return nil, b.ContentType, nil
	}
	data, err := io.ReadAll(b.Reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read request body: %w", err)
	}
	return data, b.ContentType, nil
}

// Request sends a call through c and decodes the JSON response into T. An
// empty body or a 204 yields the zero T.
func Request[T any](ctx context.Context, c *Client, method, target string, body any, opts ...RequestOption) (T, error) {
	var out T

	resp, err := c.Do(ctx, method, target, body, opts...)
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func Get[T any](ctx context.Context, c *Client, target string, opts ...RequestOption) (T, error) {
	return Request[T](ctx, c, http.MethodGet, target, nil, opts...)
}

func Post[T any](ctx context.Context, c *Client, target string, body any, opts ...RequestOption) (T, error) {
	return Request[T](ctx, c, http.MethodPost, target, body, opts...)
}

func Put[T any](ctx context.Context, c *Client, target string, body any, opts ...RequestOption) (T, error) {
	return Request[T](ctx, c, http.MethodPut, target, body, opts...)
}

func Patch[T any](ctx context.Context, c *Client, target string, body any, opts ...RequestOption) (T, error) {
	return Request[T](ctx, c, http.MethodPatch, target, body, opts...)
}

func Delete[T any](ctx context.Context, c *Client, target string, opts ...RequestOption) (T, error) {
	return Request[T](ctx, c, http.MethodDelete, target, nil, opts...)
}

// Path builds a path with escaped segments, e.g. Path("/bands/%s", id).
func Path(format string, segments ...string) string {
	args := make([]any, len(segments))
	for i, s := range segments {
		args[i] = url.PathEscape(strings.TrimSpace(s))
	}
	return fmt.Sprintf(format, args...)
}

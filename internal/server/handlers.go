package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlist/internal/gateway"
	"github.com/desertthunder/setlist/internal/metrics"
	"github.com/desertthunder/setlist/internal/session"
	"github.com/desertthunder/setlist/internal/shared"
	"golang.org/x/oauth2"
)

const (
	// LoginHeader tells a local caller where to sign in again after a 401.
	LoginHeader = "X-Setlist-Login"

	maxProxyBody = 10 << 20
)

// copiedHeaders are passed back from the API to the local caller.
var copiedHeaders = []string{"Content-Type", "Cache-Control", "ETag", "Last-Modified", "Location"}

// Sessions is the part of the session manager the proxy needs.
type Sessions interface {
	Status(ctx context.Context) (*session.Status, error)
	TokenSource(ctx context.Context) oauth2.TokenSource
	ClearTokens(ctx context.Context) error
}

type healthResponse struct {
	Status        string `json:"status"`
	Authenticated bool   `json:"authenticated"`
	ExpiresAt     any    `json:"expiresAt,omitempty"`
	Message       string `json:"message,omitempty"`
}

// Health reports whether the proxy holds a session.
func Health(sessions Sessions) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, err := sessions.Status(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "error", Message: err.Error()})
			return
		}
		resp := healthResponse{Status: "ok", Authenticated: status.Authenticated}
		if !status.ExpiresAt.IsZero() {
			resp.ExpiresAt = status.ExpiresAt
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

// ProxyHandler forwards /api/* to the band API through the gateway, so the
// caller never sees a token.
type ProxyHandler struct {
	client   *gateway.Client
	loginURL string
	logger   *log.Logger
}

// NewProxyHandler creates a [ProxyHandler].
func NewProxyHandler(client *gateway.Client, loginURL string, logger *log.Logger) *ProxyHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ProxyHandler{client: client, loginURL: loginURL, logger: shared.WithLogger(logger, "component", "proxy")}
}

// Routes returns the HTTP routes this handler serves.
func (h *ProxyHandler) Routes() []string {
	return []string{"/api/"}
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := upstreamTarget(r, "/api")

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProxyBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var body any
	if len(data) > 0 {
		body = gateway.RawBody{Reader: bytes.NewReader(data), ContentType: r.Header.Get("Content-Type")}
	}

	resp, err := h.client.Do(r.Context(), r.Method, target, body,
		gateway.WithHeader(RequestIDHeader, RequestIDFrom(r.Context())))
	if err != nil {
		h.writeUpstreamError(w, r, err)
		return
	}

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

func (h *ProxyHandler) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	if herr, ok := gateway.AsHTTPError(err); ok {
		if herr.StatusCode == http.StatusUnauthorized && h.loginURL != "" {
			w.Header().Set(LoginHeader, h.loginURL)
		}
		if json.Valid(herr.Body) {
			w.Header().Set("Content-Type", "application/json")
		} else {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		}
		w.WriteHeader(herr.StatusCode)
		w.Write(herr.Body)
		return
	}

	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		h.logger.Debug("caller went away", "path", r.URL.Path)
		return
	}
	if errors.Is(err, shared.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}

// UploadHandler streams POST /upload/* to the API without buffering or
// retrying. Credentials come from an [oauth2.Transport] over the session.
type UploadHandler struct {
	client   *gateway.Client
	sessions Sessions
	base     http.RoundTripper
	loginURL string
	logger   *log.Logger
}

// NewUploadHandler creates an [UploadHandler]. base may be nil for
// [http.DefaultTransport].
func NewUploadHandler(client *gateway.Client, sessions Sessions, base http.RoundTripper, loginURL string, logger *log.Logger) *UploadHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &UploadHandler{
		client:   client,
		sessions: sessions,
		base:     base,
		loginURL: loginURL,
		logger:   shared.WithLogger(logger, "component", "upload"),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *UploadHandler) Routes() []string {
	return []string{"/upload/"}
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target, err := h.client.URL(upstreamTarget(r, "/upload"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := http.NewRequestWithContext(r.Context(), http.MethodPost, target, r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out.ContentLength = r.ContentLength
	out.Header.Set("Content-Type", r.Header.Get("Content-Type"))
	out.Header.Set(RequestIDHeader, RequestIDFrom(r.Context()))

	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: h.sessions.TokenSource(r.Context()), Base: h.base},
	}
	resp, err := httpClient.Do(out)
	if err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			h.unauthorized(w)
			writeError(w, http.StatusUnauthorized, shared.ErrNotAuthenticated.Error())
			return
		}
		h.logger.Error("upload failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusBadGateway, "upload failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		metrics.TokenClearsTotal.WithLabelValues("unauthorized").Inc()
		if err := h.sessions.ClearTokens(r.Context()); err != nil {
			h.logger.Error("failed to clear session", "err", err)
		}
		h.unauthorized(w)
	}

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Warn("failed to relay upload response", "err", err)
	}
}

func (h *UploadHandler) unauthorized(w http.ResponseWriter) {
	if h.loginURL != "" {
		w.Header().Set(LoginHeader, h.loginURL)
	}
}

// upstreamTarget strips prefix from the request path and keeps the query.
func upstreamTarget(r *http.Request, prefix string) string {
	target := strings.TrimPrefix(r.URL.Path, prefix)
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return target
}

func copyHeaders(dst, src http.Header) {
	for _, k := range copiedHeaders {
		if v := src.Get(k); v != "" {
			dst.Set(k, v)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

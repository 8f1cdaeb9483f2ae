package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlist/internal/gateway"
	"github.com/desertthunder/setlist/internal/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ProxyOptions wires the local auth proxy.
type ProxyOptions struct {
	Client          *gateway.Client
	Sessions        Sessions
	Registry        *prometheus.Registry // nil skips /metrics
	LoginURL        string
	UploadTransport http.RoundTripper
	Logger          *log.Logger
}

// NewProxyRouter builds the proxy's routes behind the request id, logging
// and recovery middleware.
func NewProxyRouter(opts ProxyOptions) *BasicRouter {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	httpLogger := shared.WithLogger(logger, "component", "http")

	router := NewBasicRouter()
	router.Use(RequestID(), Logging(httpLogger), Recover(httpLogger))

	router.Handle(http.MethodGet, "/healthz", Health(opts.Sessions))
	if opts.Registry != nil {
		router.Handle(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}
	router.Handler(NewProxyHandler(opts.Client, opts.LoginURL, logger))

	upload := NewUploadHandler(opts.Client, opts.Sessions, opts.UploadTransport, opts.LoginURL, logger)
	for _, route := range upload.Routes() {
		router.Handle(http.MethodPost, route, upload)
	}
	return router
}

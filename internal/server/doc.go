// Package server provides HTTP routing, middleware and the local auth proxy.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order, so the first one added runs outermost.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Local Auth Proxy
//
// `setlist proxy` serves [NewProxyRouter] on localhost so other local tools can
// reach the band API without handling tokens:
//
//   - GET /healthz reports whether a session is held
//   - GET /metrics exposes the prometheus registry
//   - /api/* is forwarded through the gateway with the /api prefix removed
//   - POST /upload/* is streamed through an oauth2.Transport over the session
//
// A 401 from the API carries an X-Setlist-Login header pointing at the login page.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server

// Package middleware holds the HTTP middleware of the ads hub server:
// request IDs, rate limiting, CORS, security headers, tracing and request
// metrics, plus the request body validator used by the handlers.
package middleware

package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// SecureHeaders sets the browser security headers on every response
type SecureHeaders struct {
	HSTSMaxAge            int
	ContentSecurityPolicy string
	XFrameOptions         string
	ReferrerPolicy        string
}

// DefaultSecureHeaders allows the dashboard's own scripts and websocket
func DefaultSecureHeaders() *SecureHeaders {
	return &SecureHeaders{
		XFrameOptions:  "DENY",
		ReferrerPolicy: "strict-origin-when-cross-origin",
		ContentSecurityPolicy: strings.Join([]string{
			"default-src 'self'",
			"script-src 'self' 'unsafe-inline'",
			"style-src 'self' 'unsafe-inline'",
			"img-src 'self' data:",
			"connect-src 'self' ws: wss:",
			"frame-ancestors 'none'",
		}, "; "),
	}
}

func (sh *SecureHeaders) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		if sh.XFrameOptions != "" {
			h.Set("X-Frame-Options", sh.XFrameOptions)
		}
		if sh.ReferrerPolicy != "" {
			h.Set("Referrer-Policy", sh.ReferrerPolicy)
		}
		if sh.ContentSecurityPolicy != "" {
			h.Set("Content-Security-Policy", sh.ContentSecurityPolicy)
		}
		if sh.HSTSMaxAge > 0 && r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(sh.HSTSMaxAge)+"; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

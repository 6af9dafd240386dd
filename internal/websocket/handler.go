package websocket

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"adshub/internal/config"
)

// NewUpgrader builds the upgrader from the websocket and CORS settings.
// Requests without an Origin header, same-host origins and the configured
// origins are accepted.
func NewUpgrader(cfg *config.Config) *websocket.Upgrader {
	allowed := make(map[string]bool, len(cfg.Security.AllowedOrigins))
	for _, o := range cfg.Security.AllowedOrigins {
		allowed[o] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed["*"] || allowed[origin] {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

// Handler upgrades the request and attaches the connection to hub
func Handler(hub *Hub, cfg *config.Config, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = hub.logger
	}
	upgrader := NewUpgrader(cfg)
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the error response
			logger.WarnContext(r.Context(), "websocket_upgrade_failed",
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("error", err.Error()))
			return
		}
		NewClient(hub, WrapConn(conn), cfg.WebSocket, middleware.GetReqID(r.Context())).Serve()
	}
}

package httpserver

import (
	"context"
	"net"
	"net/http"

	"giftcircle/internal/config"
	"giftcircle/pkg/logger"
)

// New builds the API server. WriteTimeout stays unset so realtime sockets
// are not cut; per-request limits come from the router.
func New(ctx context.Context, cfg config.Config, handler http.Handler, log logger.Logger) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		BaseContext: func(net.Listener) context.Context {
			return logger.WithContext(ctx, log)
		},
	}
}

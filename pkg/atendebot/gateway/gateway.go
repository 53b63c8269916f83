// Package gateway provides the small HTTP surface of the bot: a
// liveness route, a health report, and the WhatsApp pairing page that
// shows the QR code until the device is linked.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jberleze/atendebot/pkg/atendebot/channels/whatsapp"
	"github.com/jberleze/atendebot/pkg/atendebot/frontdesk"
)

// Gateway is the HTTP endpoint.
type Gateway struct {
	cfg       frontdesk.ServerConfig
	store     *frontdesk.Store
	wa        *whatsapp.WhatsApp
	server    *http.Server
	logger    *slog.Logger
	startedAt time.Time
}

// New creates a Gateway over the session store and the WhatsApp channel.
func New(cfg frontdesk.ServerConfig, store *frontdesk.Store, wa *whatsapp.WhatsApp, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Address == "" {
		cfg.Address = ":5002"
	}
	return &Gateway{
		cfg:    cfg,
		store:  store,
		wa:     wa,
		logger: logger.With("component", "gateway"),
	}
}

// Start starts the HTTP server.
func (g *Gateway) Start(ctx context.Context) error {
	g.startedAt = time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("/", g.handleRoot)
	mux.HandleFunc("/healthz", g.handleHealth)
	mux.HandleFunc("/qrcode", g.handleQRPage)
	mux.HandleFunc("/qrcode.png", g.handleQRImage)

	g.server = &http.Server{
		Addr:    g.cfg.Address,
		Handler: g.loggingMiddleware(mux),
	}

	go func() {
		if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			g.logger.Error("gateway server error", "error", err)
		}
	}()
	g.logger.Info("gateway started", "address", g.cfg.Address)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	g.logger.Info("gateway stopping")
	return g.server.Shutdown(ctx)
}

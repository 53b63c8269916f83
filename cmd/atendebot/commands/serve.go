package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jberleze/atendebot/pkg/atendebot/channels/whatsapp"
	"github.com/jberleze/atendebot/pkg/atendebot/frontdesk"
	"github.com/jberleze/atendebot/pkg/atendebot/gateway"
	"github.com/spf13/cobra"
)

// newServeCmd creates the `atendebot serve` command that starts the daemon.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Inicia o bot conectado ao WhatsApp",
		Long: `Inicia o AtendeBot como serviço: conecta ao WhatsApp, atende as
conversas e expõe o endpoint HTTP de pareamento e saúde.

Examples:
  atendebot serve
  atendebot serve --config ./config.yaml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── Load config ──
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := frontdesk.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// ── Configure logger ──
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logLevel := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Session store ──
	store := frontdesk.NewStore(cfg.SessionsFile, logger)
	store.Load()

	// ── Dedup filter ──
	dedup := frontdesk.NewDedup(cfg.DedupWindow, logger)
	defer dedup.Stop()

	// ── Business-hours gate ──
	gate, err := frontdesk.NewHoursGate(cfg.Hours, logger)
	if err != nil {
		return err
	}
	defer gate.Stop()

	// ── WhatsApp channel ──
	wa := whatsapp.New(cfg.Channels.WhatsApp, logger)
	if err := wa.Connect(ctx); err != nil {
		logger.Error("failed to connect WhatsApp", "error", err)
		// Keep running: the gateway serves the QR page and the channel
		// reconnects on its own once pairing succeeds.
	}

	// ── Front desk ──
	desk := frontdesk.NewDesk(store, dedup, gate, wa, logger)
	go desk.Run(ctx)

	// ── Gateway (liveness + QR pairing) ──
	gw := gateway.New(cfg.Server, store, wa, logger)
	if err := gw.Start(ctx); err != nil {
		return err
	}

	logger.Info("atendebot running",
		"address", cfg.Server.Address,
		"sessions_file", cfg.SessionsFile,
		"hours_gate", cfg.Hours.Enabled)

	// ── Wait for shutdown signal ──
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := gw.Stop(shutdownCtx); err != nil {
		logger.Warn("gateway shutdown error", "error", err)
	}
	if err := wa.Disconnect(); err != nil {
		logger.Warn("whatsapp disconnect error", "error", err)
	}
	if err := store.Persist(); err != nil {
		logger.Warn("final session persist failed", "error", err)
	}

	return nil
}

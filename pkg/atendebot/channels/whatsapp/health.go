// Package whatsapp – health.go implements proactive health monitoring
// for the WhatsApp connection to detect and recover from silent
// disconnects.
package whatsapp

import (
	"context"
	"time"

	"go.mau.fi/whatsmeow/types"
)

// HealthMonitorConfig configures proactive connection health monitoring.
type HealthMonitorConfig struct {
	// Enabled turns on proactive health monitoring.
	Enabled bool `yaml:"enabled"`

	// CheckInterval is how often to perform health checks.
	// Default: 30s
	CheckInterval time.Duration `yaml:"check_interval"`

	// MaxSilentDuration is the maximum time without any activity before
	// a health check is considered failed.
	// Default: 5m
	MaxSilentDuration time.Duration `yaml:"max_silent_duration"`

	// ForceReconnectAfter is the maximum silent duration before forcing
	// a preventive reconnection, regardless of client.IsConnected().
	// This handles "half-open" TCP connections where the socket appears
	// connected but is actually dead. 0 disables it.
	ForceReconnectAfter time.Duration `yaml:"force_reconnect_after"`
}

// DefaultHealthMonitorConfig returns sensible defaults.
func DefaultHealthMonitorConfig() HealthMonitorConfig {
	return HealthMonitorConfig{
		Enabled:             true,
		CheckInterval:       30 * time.Second,
		MaxSilentDuration:   5 * time.Minute,
		ForceReconnectAfter: 15 * time.Minute,
	}
}

// StartHealthMonitor starts the proactive health monitoring goroutine.
// It runs until the context is cancelled.
func (w *WhatsApp) StartHealthMonitor(ctx context.Context, cfg HealthMonitorConfig) {
	if !cfg.Enabled {
		return
	}

	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.MaxSilentDuration <= 0 {
		cfg.MaxSilentDuration = 5 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(cfg.CheckInterval)
		defer ticker.Stop()

		w.logger.Info("whatsapp health monitor started",
			"check_interval", cfg.CheckInterval,
			"max_silent", cfg.MaxSilentDuration,
			"force_reconnect_after", cfg.ForceReconnectAfter)

		for {
			select {
			case <-ctx.Done():
				w.logger.Info("whatsapp health monitor stopped")
				return
			case <-ticker.C:
				w.performHealthCheck(cfg)
			}
		}
	}()

	w.startPinger(ctx)
}

// startPinger sends periodic presence updates to keep the connection alive.
func (w *WhatsApp) startPinger(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(2 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if w.getState() != StateConnected || w.client == nil {
					continue
				}
				if err := w.client.SendPresence(ctx, types.PresenceAvailable); err != nil {
					w.logger.Warn("pinger: failed to send presence", "error", err)
				} else {
					w.UpdateLastMsgTime()
				}
			}
		}
	}()
}

// performHealthCheck checks connection health and takes action if needed.
func (w *WhatsApp) performHealthCheck(cfg HealthMonitorConfig) {
	if w.getState() != StateConnected {
		return
	}

	silentDuration := time.Since(w.getLastMsgTime())
	if silentDuration <= cfg.MaxSilentDuration {
		return
	}

	w.logger.Warn("whatsapp: connection silent for too long",
		"silent_duration", silentDuration,
		"max_silent", cfg.MaxSilentDuration)

	// If the client disagrees with our state, trust the client.
	if w.client != nil && !w.client.IsConnected() {
		w.logger.Error("whatsapp: client reports disconnected but state is connected")
		w.setState(StateReconnecting)
		w.connected.Store(false)
		go w.attemptReconnect()
		return
	}

	if cfg.ForceReconnectAfter > 0 && silentDuration > cfg.ForceReconnectAfter {
		w.logger.Warn("whatsapp: forcing preventive reconnection due to excessive silence",
			"silent_duration", silentDuration,
			"force_reconnect_after", cfg.ForceReconnectAfter)

		w.setState(StateReconnecting)
		w.connected.Store(false)
		go w.attemptReconnect()
		return
	}

	// whatsmeow handles its own keepalive pings internally; if the client
	// still reports connected, the connection is likely fine.
	w.logger.Debug("whatsapp: silent connection, client still reports connected")
}

// getLastMsgTime returns the time of the last message or activity.
func (w *WhatsApp) getLastMsgTime() time.Time {
	if v := w.lastMsg.Load(); v != nil {
		return v.(time.Time)
	}
	return time.Time{}
}

// UpdateLastMsgTime updates the last activity timestamp. Called whenever
// a message or other activity is observed.
func (w *WhatsApp) UpdateLastMsgTime() {
	w.lastMsg.Store(time.Now())
}

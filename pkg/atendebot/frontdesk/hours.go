package frontdesk

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// HoursConfig configures the optional business-hours gate.
type HoursConfig struct {
	// Enabled turns the gate on. When off, the desk engages at any hour.
	Enabled bool `yaml:"enabled"`

	// Timezone is the IANA zone the schedule is evaluated in.
	Timezone string `yaml:"timezone"`

	// OpenHour is the first hour of attendance (inclusive).
	OpenHour int `yaml:"open_hour"`

	// CloseHour is the hour attendance ends (exclusive).
	CloseHour int `yaml:"close_hour"`
}

// DefaultHoursConfig returns the office's standard schedule, disabled by
// default to match the always-on behavior the office started with.
func DefaultHoursConfig() HoursConfig {
	return HoursConfig{
		Enabled:   false,
		Timezone:  "America/Sao_Paulo",
		OpenHour:  8,
		CloseHour: 18,
	}
}

// HoursGate decides whether automated engagement is currently permitted:
// Monday to Friday, OpenHour inclusive to CloseHour exclusive, in the
// configured zone. While closed it remembers which chats have already
// received the "unavailable" notice so each gets it at most once per
// continuous closed period.
type HoursGate struct {
	cfg    HoursConfig
	loc    *time.Location
	logger *slog.Logger

	cron *cron.Cron

	mu       sync.Mutex
	notified map[string]struct{}
}

// NewHoursGate builds the gate. An unknown timezone is an error: a gate
// evaluating the wrong clock is worse than no gate.
func NewHoursGate(cfg HoursConfig, logger *slog.Logger) (*HoursGate, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "America/Sao_Paulo"
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.OpenHour < 0 || cfg.CloseHour > 24 || cfg.OpenHour >= cfg.CloseHour {
		return nil, fmt.Errorf("invalid hours window %d-%d", cfg.OpenHour, cfg.CloseHour)
	}

	g := &HoursGate{
		cfg:      cfg,
		loc:      loc,
		logger:   logger.With("component", "hours_gate"),
		notified: make(map[string]struct{}),
	}

	// Hourly sweep drops the notice marks once the gate is open again, so
	// a chat that never messages during open hours still gets a fresh
	// notice in the next closed period.
	if cfg.Enabled {
		g.cron = cron.New()
		if _, err := g.cron.AddFunc("@hourly", g.sweep); err != nil {
			return nil, fmt.Errorf("scheduling notice sweep: %w", err)
		}
		g.cron.Start()
	}

	return g, nil
}

func (g *HoursGate) sweep() {
	if g.Open(time.Now()) {
		g.ResetNotified()
	}
}

// Stop halts the background sweep job.
func (g *HoursGate) Stop() {
	if g.cron != nil {
		g.cron.Stop()
	}
}

// Enabled reports whether the gate is active at all.
func (g *HoursGate) Enabled() bool { return g.cfg.Enabled }

// Open reports whether automated engagement is permitted at the given
// instant. Pure function of the timestamp.
func (g *HoursGate) Open(now time.Time) bool {
	if !g.cfg.Enabled {
		return true
	}
	local := now.In(g.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	h := local.Hour()
	return h >= g.cfg.OpenHour && h < g.cfg.CloseHour
}

// ShouldNotify reports whether the closed-hours notice should be sent to
// this chat, and marks it notified. Returns true at most once per chat
// per continuous closed period; the mark clears as soon as the gate is
// observed open for that chat again.
func (g *HoursGate) ShouldNotify(chatID string, now time.Time) bool {
	if g.Open(now) {
		g.clearNotified(chatID)
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.notified[chatID]; ok {
		return false
	}
	g.notified[chatID] = struct{}{}
	return true
}

func (g *HoursGate) clearNotified(chatID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.notified, chatID)
}

// ResetNotified drops all closed-period notice marks. Scheduled to run
// when the gate reopens so stale marks never survive into the next
// closed period.
func (g *HoursGate) ResetNotified() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n := len(g.notified); n > 0 {
		g.logger.Debug("closed-period notice marks cleared", "count", n)
	}
	g.notified = make(map[string]struct{})
}

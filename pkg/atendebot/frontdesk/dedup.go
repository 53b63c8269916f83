package frontdesk

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Dedup absorbs at-least-once delivery from the transport: the same
// message ID arriving twice within the window is processed once.
//
// Expiry is coarse on purpose — the whole set is cleared on a fixed
// interval instead of tracking per-entry TTLs. Real redelivery of the
// same message happens within seconds, far inside the window; an ID that
// recurs after a full window being processed again is an accepted edge
// case, not a correctness bug.
type Dedup struct {
	mu   sync.Mutex
	seen map[string]struct{}

	cron   *cron.Cron
	logger *slog.Logger
}

// NewDedup creates a dedup filter that clears itself every window.
// Call Stop to halt the background clear job.
func NewDedup(window time.Duration, logger *slog.Logger) *Dedup {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = time.Minute
	}

	d := &Dedup{
		seen:   make(map[string]struct{}),
		logger: logger.With("component", "dedup"),
	}

	d.cron = cron.New()
	if _, err := d.cron.AddFunc("@every "+window.String(), d.Clear); err != nil {
		// "@every <duration>" with a positive duration always parses;
		// log just in case the window string is ever exotic.
		d.logger.Error("failed to schedule dedup clear", "error", err)
	}
	d.cron.Start()

	return d
}

// Seen records the ID and reports whether it was already present.
// The first call for an ID returns false and marks it.
func (d *Dedup) Seen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

// Clear drops the entire seen set.
func (d *Dedup) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n := len(d.seen); n > 0 {
		d.logger.Debug("dedup window cleared", "dropped", n)
	}
	d.seen = make(map[string]struct{})
}

// Stop halts the background clear job.
func (d *Dedup) Stop() {
	if d.cron != nil {
		d.cron.Stop()
	}
}

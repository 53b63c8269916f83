package frontdesk

import (
	"testing"
	"time"
)

func TestDedupSeen(t *testing.T) {
	d := NewDedup(time.Minute, testLogger())
	defer d.Stop()

	t.Run("first sighting is not a duplicate", func(t *testing.T) {
		if d.Seen("msg-1") {
			t.Error("first call should return false")
		}
	})

	t.Run("second sighting is a duplicate", func(t *testing.T) {
		if !d.Seen("msg-1") {
			t.Error("second call should return true")
		}
	})

	t.Run("distinct ids are independent", func(t *testing.T) {
		if d.Seen("msg-2") {
			t.Error("unseen id reported as duplicate")
		}
	})
}

func TestDedupClearReadmits(t *testing.T) {
	d := NewDedup(time.Minute, testLogger())
	defer d.Stop()

	d.Seen("msg-1")
	d.Clear()

	// After a window clear the same id is admitted again. This is the
	// documented coarse-expiry tradeoff, not a bug.
	if d.Seen("msg-1") {
		t.Error("id should be re-admitted after clear")
	}
}

package frontdesk

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SessionsFile != "./sessions.json" {
		t.Errorf("sessions_file = %q", cfg.SessionsFile)
	}
	if cfg.DedupWindow != time.Minute {
		t.Errorf("dedup_window = %v", cfg.DedupWindow)
	}
	if cfg.Hours.Enabled {
		t.Error("hours gate should default to disabled")
	}
	if cfg.Hours.Timezone != "America/Sao_Paulo" {
		t.Errorf("timezone = %q", cfg.Hours.Timezone)
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
sessions_file: /var/lib/atendebot/sessions.json
dedup_window: 30s
hours:
  enabled: true
  open_hour: 9
  close_hour: 17
server:
  address: ":8080"
logging:
  level: debug
  format: text
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.SessionsFile != "/var/lib/atendebot/sessions.json" {
		t.Errorf("sessions_file = %q", cfg.SessionsFile)
	}
	if cfg.DedupWindow != 30*time.Second {
		t.Errorf("dedup_window = %v", cfg.DedupWindow)
	}
	if !cfg.Hours.Enabled || cfg.Hours.OpenHour != 9 || cfg.Hours.CloseHour != 17 {
		t.Errorf("hours = %+v", cfg.Hours)
	}
	// Unset fields keep their defaults.
	if cfg.Hours.Timezone != "America/Sao_Paulo" {
		t.Errorf("timezone default lost: %q", cfg.Hours.Timezone)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("address = %q", cfg.Server.Address)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/does/not/exist.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

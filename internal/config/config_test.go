package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.API.PollPeriod != 15*time.Second {
		t.Errorf("default poll period = %v, want 15s", cfg.API.PollPeriod)
	}
	if cfg.Web.Addr != ":8440" {
		t.Errorf("default addr = %q, want :8440", cfg.Web.Addr)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camden.yaml")
	data := `
api:
  poll_period: 30s
track:
  enabled: false
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.API.PollPeriod != 30*time.Second {
		t.Errorf("poll period = %v, want 30s", cfg.API.PollPeriod)
	}
	if cfg.Track.Enabled {
		t.Errorf("track.enabled = true, want false")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	// untouched sections keep defaults
	if cfg.Weather.MetarTTL != 30*time.Minute {
		t.Errorf("metar ttl = %v, want 30m", cfg.Weather.MetarTTL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/camden.yaml"); err == nil {
		t.Errorf("Load of missing file should fail")
	}
}

package config

import (
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}

	if cfg.Env != EnvLocal {
		t.Errorf("Expected default env %q, got %q", EnvLocal, cfg.Env)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("Expected default listen addr :8080, got %q", cfg.Server.ListenAddr)
	}
	if cfg.PerDiem.HomeBase != "KDTW" {
		t.Errorf("Expected default home base KDTW, got %q", cfg.PerDiem.HomeBase)
	}
	if cfg.PerDiem.HourlyRate != 2.40 {
		t.Errorf("Expected default rate 2.40, got %v", cfg.PerDiem.HourlyRate)
	}
	if cfg.Sync.DebounceDelay != 500*time.Millisecond {
		t.Errorf("Expected default debounce 500ms, got %v", cfg.Sync.DebounceDelay)
	}
	if cfg.Sync.ReportInterval != 2*time.Second {
		t.Errorf("Expected default report interval 2s, got %v", cfg.Sync.ReportInterval)
	}
	if cfg.Data.Dir == "" {
		t.Error("Expected a default data dir")
	}
}

func TestNewConfigEnvOverrides(t *testing.T) {
	t.Setenv("PROPILOT_APP_ENV", EnvProd)
	t.Setenv("PROPILOT_LISTEN_ADDR", "127.0.0.1:9191")
	t.Setenv("PROPILOT_HOME_BASE", "KMEM")
	t.Setenv("PROPILOT_PER_DIEM_RATE", "2.75")
	t.Setenv("PROPILOT_SYNC_DEBOUNCE", "750ms")
	t.Setenv("PROPILOT_REDIS_ADDR", "localhost:6379")
	t.Setenv("PROPILOT_PAIR_ID", "n951dl")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}

	if cfg.Env != EnvProd {
		t.Errorf("Expected env %q, got %q", EnvProd, cfg.Env)
	}
	if cfg.Server.ListenAddr != "127.0.0.1:9191" {
		t.Errorf("Expected listen addr override, got %q", cfg.Server.ListenAddr)
	}
	if cfg.PerDiem.HomeBase != "KMEM" {
		t.Errorf("Expected home base KMEM, got %q", cfg.PerDiem.HomeBase)
	}
	if cfg.PerDiem.HourlyRate != 2.75 {
		t.Errorf("Expected rate 2.75, got %v", cfg.PerDiem.HourlyRate)
	}
	if cfg.Sync.DebounceDelay != 750*time.Millisecond {
		t.Errorf("Expected debounce 750ms, got %v", cfg.Sync.DebounceDelay)
	}
	if cfg.Sync.RedisAddr != "localhost:6379" {
		t.Errorf("Expected redis addr override, got %q", cfg.Sync.RedisAddr)
	}
	if cfg.Sync.PairID != "n951dl" {
		t.Errorf("Expected pair id n951dl, got %q", cfg.Sync.PairID)
	}
}

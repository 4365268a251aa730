package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"weatherdash/internal/config"
	"weatherdash/internal/database"
	"weatherdash/internal/memstore"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("OPENWEATHER_API_KEY", "")
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "weather.db")
	return cfg
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.HistoryCSV = filepath.Join(t.TempDir(), "history.csv")
	cfg.Timezone = "UTC"

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if a.Degraded {
		t.Error("Degraded = true, want a real database")
	}
	if _, ok := a.store.(*database.DB); !ok {
		t.Errorf("store has type %T, want *database.DB", a.store)
	}
	if a.Service == nil {
		t.Fatal("Service is nil")
	}
	if _, err := os.Stat(cfg.Storage.Path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestNewFallsBackToMemory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "mysql"
	t.Setenv("DB_USER", "")
	t.Setenv("DATABASE_DSN", "nobody:secret@tcp(127.0.0.1:1)/weatherdash?parseTime=true&timeout=1s")

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if !a.Degraded {
		t.Error("Degraded = false, want in-memory fallback")
	}
	if _, ok := a.store.(*memstore.MemoryStore); !ok {
		t.Errorf("store has type %T, want *memstore.MemoryStore", a.store)
	}
}

func TestNewRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad units", func(c *config.Config) { c.Units = "kelvin" }},
		{"bad timezone", func(c *config.Config) { c.Timezone = "Mars/Olympus_Mons" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			if a, err := New(context.Background(), cfg); err == nil {
				a.Close()
				t.Error("New() error = nil, want an error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Units != "imperial" {
		t.Errorf("Units = %q, want imperial default", cfg.Units)
	}
}

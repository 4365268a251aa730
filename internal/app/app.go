// Package app assembles the store, provider client, service and hooks
// shared by the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"weatherdash/internal/api"
	"weatherdash/internal/config"
	"weatherdash/internal/dashboard"
	"weatherdash/internal/database"
	"weatherdash/internal/memstore"
	"weatherdash/internal/normalizer"
	"weatherdash/internal/notify"

	"github.com/go-redis/redis/v8"
)

const redisPingTimeout = 3 * time.Second

type App struct {
	Config   *config.Config
	Service  *dashboard.Service
	Degraded bool

	store dashboard.Store
	redis *redis.Client
}

// LoadConfig loads configPath, or falls back to defaults when the file does not exist
func LoadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: %s not found, using defaults", configPath)
		return config.Default(), nil
	}
	return cfg, err
}

// New opens the store, falling back to an in-memory store if the database
// cannot be opened, and wires the service with its hooks.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	units, err := normalizer.ParseUnits(cfg.Units)
	if err != nil {
		return nil, err
	}

	loc := time.Local
	if cfg.Timezone != "" {
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
		}
	}

	a := &App{Config: cfg}
	a.store, a.Degraded = OpenStore(cfg)

	opts := []api.Option{
		api.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second}),
	}
	if cfg.API.BaseURL != "" {
		opts = append(opts, api.WithBaseURL(cfg.API.BaseURL))
	}
	client := api.NewOpenWeatherClient(cfg.API.APIKey, string(units), opts...)
	if cfg.API.APIKey == "" {
		log.Printf("Warning: OPENWEATHER_API_KEY is not set, weather fetches will fail")
	}

	a.Service = dashboard.NewService(a.store, client, normalizer.New(units, loc))

	if path := strings.TrimSpace(cfg.Storage.HistoryCSV); path != "" {
		a.Service.Subscribe(notify.NewCSVMirror(path))
	}

	if cfg.Redis.Enabled {
		a.subscribeRedis(ctx)
	}

	return a, nil
}

// OpenStore opens the configured database. The bool reports degraded mode,
// where nothing written survives a restart.
func OpenStore(cfg *config.Config) (dashboard.Store, bool) {
	db, err := database.NewDB(cfg.Storage.Driver, cfg.DatabaseDSN())
	if err != nil {
		log.Printf("Warning: database unavailable, running with in-memory store: %v", err)
		return memstore.NewMemoryStore(cfg.Storage.MaxMemoryHistory), true
	}
	log.Printf("✓ Database ready (%s)", cfg.Storage.Driver)
	return db, false
}

func (a *App) subscribeRedis(ctx context.Context) {
	redisCfg := config.GetRedisConfig()
	client := redis.NewClient(redisCfg.Options())

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("Warning: Redis at %s unreachable, stream publishing disabled: %v", redisCfg.Addr, err)
		client.Close()
		return
	}

	a.redis = client
	a.Service.Subscribe(notify.NewStreamPublisher(client, redisCfg.Stream))
	log.Printf("✓ Publishing weather updates to Redis stream %s", redisCfg.Stream)
}

func (a *App) Close() error {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

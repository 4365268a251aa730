package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"weatherdash/internal/app"
	"weatherdash/internal/scheduler"
	"weatherdash/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	configPath := flag.String("config", "./config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	retention := time.Duration(cfg.Alerts.RetentionDays) * 24 * time.Hour
	purger := scheduler.New(a.Service, cfg.Alerts.RetentionSchedule, retention)
	if err := purger.Start(); err != nil {
		log.Fatalf("Failed to schedule alert retention: %v", err)
	}
	defer purger.Stop()

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.NewServer(a.Service, retention),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
	log.Println("✓ Server stopped")
}

// Command collect refreshes every favorite city once, or repeatedly when
// -interval is set. Each refresh stores the observation, evaluates alert
// rules and notifies the configured hooks.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"weatherdash/internal/app"
	"weatherdash/internal/dashboard"
	"weatherdash/internal/models"
)

const maxConcurrentFetches = 4

// result holds the outcome of refreshing one favorite
type result struct {
	City   string
	Alerts int
	Err    error
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	configPath := flag.String("config", "./config.yaml", "path to the YAML config file")
	interval := flag.Duration("interval", 0, "repeat every interval until interrupted, 0 runs once")
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

	runCollection(ctx, a.Service)
	if *interval <= 0 {
		log.Printf("Data collection completed. Exiting")
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	log.Printf("Collector running every %s. Press Ctrl+C to stop...", *interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("Shutting down collector...")
			return
		case <-ticker.C:
			runCollection(ctx, a.Service)
		}
	}
}

func runCollection(ctx context.Context, svc *dashboard.Service) {
	favorites, err := svc.ListFavorites(ctx)
	if err != nil {
		log.Printf("Failed to list favorites: %v", err)
		return
	}
	if len(favorites) == 0 {
		log.Printf("No favorite cities to collect. Add one with: weatherctl favorites add <city>")
		return
	}

	results := collectFavorites(ctx, svc, favorites)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Printf("Failed to refresh %s: %v", r.City, r.Err)
			continue
		}
		log.Printf("✓ %s refreshed (%d alert(s))", r.City, r.Alerts)
	}
	log.Printf("Collected %d of %d favorite(s)", len(results)-failed, len(results))
}

// collectFavorites refreshes favorites concurrently. Results keep the order of favorites.
func collectFavorites(ctx context.Context, svc *dashboard.Service, favorites []models.FavoriteCity) []result {
	results := make([]result, len(favorites))
	sem := make(chan struct{}, maxConcurrentFetches)

	var wg sync.WaitGroup
	for i, fav := range favorites {
		wg.Add(1)
		go func(i int, fav models.FavoriteCity) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			query := fav.City
			if fav.Country != "" {
				query = fav.City + "," + fav.Country
			}

			results[i].City = fav.City
			view, err := svc.Refresh(ctx, query)
			if err != nil {
				results[i].Err = err
				return
			}
			results[i].Alerts = len(view.Alerts)
		}(i, fav)
	}

	wg.Wait()
	return results
}

// Command seed imports favorite cities from a CSV file with a
// "city,country" header.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"weatherdash/internal/app"
	"weatherdash/internal/models"
)

// favoriteAdder is the part of the dashboard service seeding needs
type favoriteAdder interface {
	AddFavorite(ctx context.Context, city, country string) (bool, error)
}

func main() {
	configPath := flag.String("config", "./config.yaml", "path to the YAML config file")
	csvPath := flag.String("file", "favorites_seed.csv", "CSV file to import")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()
	if a.Degraded {
		log.Printf("Warning: database unavailable, imported favorites will not be kept")
	}

	file, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	favorites, skipped, err := readFavorites(file)
	if err != nil {
		log.Fatalf("Failed to read CSV: %v", err)
	}

	added, existing := importFavorites(ctx, a.Service, favorites)
	log.Printf("Import complete! Added %d favorite(s), %d already present, skipped %d", added, existing, skipped)
}

// readFavorites parses rows after the header. Rows without a city are skipped and counted.
func readFavorites(r io.Reader) ([]models.FavoriteCity, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	log.Printf("CSV Header: %v", header)

	var favorites []models.FavoriteCity
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read CSV record: %w", err)
		}

		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			log.Printf("Skipping invalid record: %v", record)
			skipped++
			continue
		}

		fav := models.FavoriteCity{City: strings.TrimSpace(record[0])}
		if len(record) > 1 {
			fav.Country = strings.TrimSpace(record[1])
		}
		favorites = append(favorites, fav)
	}
	return favorites, skipped, nil
}

func importFavorites(ctx context.Context, svc favoriteAdder, favorites []models.FavoriteCity) (added, existing int) {
	for _, fav := range favorites {
		ok, err := svc.AddFavorite(ctx, fav.City, fav.Country)
		if err != nil {
			log.Printf("Failed to add favorite %s: %v", fav.City, err)
			continue
		}
		if ok {
			added++
		} else {
			log.Printf("Favorite already exists: %s", fav.City)
			existing++
		}
	}
	return added, existing
}

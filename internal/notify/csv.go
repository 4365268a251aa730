package notify

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"weatherdash/internal/models"
)

var csvHeader = []string{"timestamp", "city", "country", "temperature", "description"}

// CSVMirror appends one row per new record to a CSV file, writing the header
// when the file is new or empty.
type CSVMirror struct {
	mu   sync.Mutex
	path string
}

func NewCSVMirror(path string) *CSVMirror {
	return &CSVMirror{path: path}
}

func (m *CSVMirror) Name() string {
	return "csv-mirror"
}

func (m *CSVMirror) OnRecord(_ context.Context, rec *models.WeatherRecord, _ []models.AlertEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dir := filepath.Dir(m.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", m.path, err)
		}
	}

	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", m.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", m.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}

	row := []string{
		rec.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		rec.City,
		rec.Country,
		strconv.FormatFloat(rec.Temperature, 'f', -1, 64),
		rec.Description,
	}
	if err := w.Write(row); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

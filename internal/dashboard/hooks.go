package dashboard

import (
	"context"
	"sync"
	"time"

	"weatherdash/internal/astro"
	"weatherdash/internal/models"
)

// Hook is notified after every successful history append, with the alert
// events the record fired. Errors are logged by the Service and never
// reach the caller of Refresh.
type Hook interface {
	Name() string
	OnRecord(ctx context.Context, rec *models.WeatherRecord, events []models.AlertEvent) error
}

// MoonRefresher keeps the moon snapshot in step with the newest record
type MoonRefresher struct {
	mu   sync.RWMutex
	info *astro.MoonInfo
	now  func() time.Time
}

func NewMoonRefresher() *MoonRefresher {
	return &MoonRefresher{now: time.Now}
}

func (m *MoonRefresher) Name() string {
	return "moon-refresh"
}

func (m *MoonRefresher) OnRecord(_ context.Context, rec *models.WeatherRecord, _ []models.AlertEvent) error {
	at := rec.Timestamp
	if at.IsZero() {
		at = m.now()
	}
	info := astro.Moon(at)

	m.mu.Lock()
	m.info = &info
	m.mu.Unlock()
	return nil
}

// Current returns the last computed snapshot, or the moon right now if no
// record has been seen yet.
func (m *MoonRefresher) Current() astro.MoonInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.info == nil {
		return astro.Moon(m.now())
	}
	return *m.info
}

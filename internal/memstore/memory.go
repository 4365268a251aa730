// Package memstore is an in-memory store with the same contract as the
// database package. It backs degraded mode when the database cannot be
// opened, so nothing written here survives a restart.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"weatherdash/internal/database"
	"weatherdash/internal/models"
)

// MemoryStore is a concurrency-safe in-memory store. Each collection has
// its own lock.
type MemoryStore struct {
	now func() time.Time

	historyMu     sync.RWMutex
	history       []models.WeatherRecord
	maxHistory    int
	nextRecordID  int64
	lastTimestamp time.Time

	favoritesMu    sync.RWMutex
	favorites      []models.FavoriteCity
	nextFavoriteID int64

	rulesMu    sync.RWMutex
	rules      []models.AlertRule
	nextRuleID int64

	alertsMu    sync.RWMutex
	alerts      []models.AlertEvent
	nextAlertID int64
}

// NewMemoryStore creates an empty store. If maxHistory is <= 0 weather
// history is unbounded, otherwise only the newest maxHistory records are kept.
func NewMemoryStore(maxHistory int) *MemoryStore {
	return &MemoryStore{now: time.Now, maxHistory: maxHistory}
}

func (s *MemoryStore) SetClock(now func() time.Time) {
	s.now = now
}

func (s *MemoryStore) Close() error { return nil }

// Append adds rec to history, setting its id and clamping its timestamp so
// history never goes backwards.
func (s *MemoryStore) Append(_ context.Context, rec *models.WeatherRecord) error {
	if strings.TrimSpace(rec.City) == "" || strings.TrimSpace(rec.Country) == "" {
		return database.ErrInvalidRecord
	}

	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	if ts.Before(s.lastTimestamp) {
		ts = s.lastTimestamp
	}
	s.lastTimestamp = ts

	s.nextRecordID++
	rec.ID = s.nextRecordID
	rec.Timestamp = ts.UTC().Truncate(time.Second)
	s.history = append(s.history, *rec)

	if s.maxHistory > 0 && len(s.history) > s.maxHistory {
		over := len(s.history) - s.maxHistory
		s.history = s.history[over:]
	}
	return nil
}

func (s *MemoryStore) Latest(_ context.Context) (*models.WeatherRecord, error) {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if len(s.history) == 0 {
		return nil, database.ErrNotFound
	}
	rec := s.history[len(s.history)-1]
	return &rec, nil
}

func (s *MemoryStore) History(_ context.Context, city string, limit int) ([]models.WeatherRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	var result []models.WeatherRecord
	for i := len(s.history) - 1; i >= 0 && len(result) < limit; i-- {
		if city == "" || s.history[i].City == city {
			result = append(result, s.history[i])
		}
	}
	return result, nil
}

func (s *MemoryStore) AddFavorite(_ context.Context, city, country string) (bool, error) {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	if city == "" {
		return false, database.ErrInvalidRecord
	}

	s.favoritesMu.Lock()
	defer s.favoritesMu.Unlock()

	for _, f := range s.favorites {
		if f.City == city && f.Country == country {
			return false, nil
		}
	}
	s.nextFavoriteID++
	s.favorites = append(s.favorites, models.FavoriteCity{
		ID:        s.nextFavoriteID,
		City:      city,
		Country:   country,
		AddedDate: s.now().UTC().Truncate(time.Second),
	})
	return true, nil
}

func (s *MemoryStore) RemoveFavorite(_ context.Context, city, country string) (bool, error) {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)

	s.favoritesMu.Lock()
	defer s.favoritesMu.Unlock()

	kept := s.favorites[:0]
	removed := false
	for _, f := range s.favorites {
		if f.City == city && f.Country == country {
			removed = true
			continue
		}
		kept = append(kept, f)
	}
	s.favorites = kept
	return removed, nil
}

// ListFavorites returns favorites newest first
func (s *MemoryStore) ListFavorites(_ context.Context) ([]models.FavoriteCity, error) {
	s.favoritesMu.RLock()
	defer s.favoritesMu.RUnlock()

	result := make([]models.FavoriteCity, 0, len(s.favorites))
	for i := len(s.favorites) - 1; i >= 0; i-- {
		result = append(result, s.favorites[i])
	}
	return result, nil
}

func (s *MemoryStore) IsFavorite(_ context.Context, city, country string) (bool, error) {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)

	s.favoritesMu.RLock()
	defer s.favoritesMu.RUnlock()

	for _, f := range s.favorites {
		if f.City == city && f.Country == country {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ClearFavorites(_ context.Context) (int64, error) {
	s.favoritesMu.Lock()
	defer s.favoritesMu.Unlock()

	n := int64(len(s.favorites))
	s.favorites = nil
	return n, nil
}

func (s *MemoryStore) AddRule(_ context.Context, rule *models.AlertRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	s.rulesMu.Lock()
	defer s.rulesMu.Unlock()

	s.nextRuleID++
	rule.ID = s.nextRuleID
	rule.CreatedDate = s.now().UTC().Truncate(time.Second)
	rule.IsActive = true
	s.rules = append(s.rules, *rule)
	return nil
}

func (s *MemoryStore) RemoveRule(_ context.Context, id int64) error {
	s.rulesMu.Lock()
	defer s.rulesMu.Unlock()

	for i, r := range s.rules {
		if r.ID == id {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			return nil
		}
	}
	return database.ErrNotFound
}

func (s *MemoryStore) ListRules(_ context.Context, city string) ([]models.AlertRule, error) {
	s.rulesMu.RLock()
	defer s.rulesMu.RUnlock()

	var result []models.AlertRule
	for _, r := range s.rules {
		if !r.IsActive || (city != "" && r.City != city) {
			continue
		}
		if r.Threshold != nil {
			v := *r.Threshold
			r.Threshold = &v
		}
		result = append(result, r)
	}
	return result, nil
}

func (s *MemoryStore) MarkRuleTriggered(_ context.Context, id int64, at time.Time) error {
	s.rulesMu.Lock()
	defer s.rulesMu.Unlock()

	for i := range s.rules {
		if s.rules[i].ID == id {
			t := at.UTC().Truncate(time.Second)
			s.rules[i].LastTriggered = &t
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) AppendAlertEvent(_ context.Context, ev *models.AlertEvent) error {
	s.alertsMu.Lock()
	defer s.alertsMu.Unlock()

	s.nextAlertID++
	ev.ID = s.nextAlertID
	s.alerts = append(s.alerts, *ev)
	return nil
}

// AlertHistory returns events newest first by trigger time
func (s *MemoryStore) AlertHistory(_ context.Context, city string, limit int) ([]models.AlertEvent, error) {
	if limit <= 0 {
		limit = database.DefaultAlertHistoryLimit
	}

	s.alertsMu.RLock()
	var result []models.AlertEvent
	for _, ev := range s.alerts {
		if city == "" || ev.City == city {
			result = append(result, ev)
		}
	}
	s.alertsMu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].TriggeredDate.Equal(result[j].TriggeredDate) {
			return result[i].ID > result[j].ID
		}
		return result[i].TriggeredDate.After(result[j].TriggeredDate)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) PurgeAlertsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.alertsMu.Lock()
	defer s.alertsMu.Unlock()

	kept := s.alerts[:0]
	var n int64
	for _, ev := range s.alerts {
		if ev.TriggeredDate.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, ev)
	}
	s.alerts = kept
	return n, nil
}

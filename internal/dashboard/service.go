// Package dashboard runs the fetch, normalize, persist and evaluate cycle
// and fronts the store for the HTTP server and CLI.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"weatherdash/internal/alerting"
	"weatherdash/internal/api"
	"weatherdash/internal/astro"
	"weatherdash/internal/database"
	"weatherdash/internal/detector"
	"weatherdash/internal/metrics"
	"weatherdash/internal/models"
	"weatherdash/internal/normalizer"
)

// DefaultSuggestionHistory is how many recent records rule suggestions look at
const DefaultSuggestionHistory = 500

var (
	ErrDataUnavailable = api.ErrDataUnavailable
	ErrNoGeocoder      = errors.New("place lookup is not configured")
)

// Fetcher returns raw provider JSON for a city query
type Fetcher interface {
	CurrentWeather(ctx context.Context, city string) ([]byte, error)
	Forecast(ctx context.Context, city string) ([]byte, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, query string, limit int) ([]models.Place, error)
}

// Store is satisfied by both database.DB and memstore.MemoryStore
type Store interface {
	Append(ctx context.Context, rec *models.WeatherRecord) error
	Latest(ctx context.Context) (*models.WeatherRecord, error)
	History(ctx context.Context, city string, limit int) ([]models.WeatherRecord, error)

	AddFavorite(ctx context.Context, city, country string) (bool, error)
	RemoveFavorite(ctx context.Context, city, country string) (bool, error)
	ListFavorites(ctx context.Context) ([]models.FavoriteCity, error)
	IsFavorite(ctx context.Context, city, country string) (bool, error)
	ClearFavorites(ctx context.Context) (int64, error)

	AddRule(ctx context.Context, rule *models.AlertRule) error
	RemoveRule(ctx context.Context, id int64) error
	ListRules(ctx context.Context, city string) ([]models.AlertRule, error)
	MarkRuleTriggered(ctx context.Context, id int64, at time.Time) error

	AppendAlertEvent(ctx context.Context, ev *models.AlertEvent) error
	AlertHistory(ctx context.Context, city string, limit int) ([]models.AlertEvent, error)
	PurgeAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}

// View is everything the dashboard shows after a refresh. Unsaved marks a
// reading the store failed to record; it carries no alerts.
type View struct {
	Record   *models.WeatherRecord  `json:"record"`
	Forecast []models.DailyForecast `json:"forecast"`
	Alerts   []models.AlertEvent    `json:"alerts"`
	Moon     astro.MoonInfo         `json:"moon"`
	Unsaved  bool                   `json:"unsaved,omitempty"`
	Warning  string                 `json:"warning,omitempty"`
}

type Service struct {
	store      Store
	fetcher    Fetcher
	geocoder   Geocoder
	normalizer *normalizer.Normalizer
	evaluator  *alerting.Evaluator
	moon       *MoonRefresher
	now        func() time.Time

	hooksMu sync.RWMutex
	hooks   []Hook
}

// NewService wires the cycle together. If fetcher can also geocode it is
// used for place lookups. The moon refresher is always the first hook.
func NewService(store Store, fetcher Fetcher, norm *normalizer.Normalizer) *Service {
	s := &Service{
		store:      store,
		fetcher:    fetcher,
		normalizer: norm,
		evaluator:  alerting.NewEvaluator(store),
		moon:       NewMoonRefresher(),
		now:        time.Now,
	}
	if g, ok := fetcher.(Geocoder); ok {
		s.geocoder = g
	}
	s.Subscribe(s.moon)
	return s
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.moon.now = now
	s.evaluator.SetClock(now)
}

// Subscribe adds h to the hooks run after each successful append
func (s *Service) Subscribe(h Hook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, h)
	log.Printf("✓ Subscribed hook %s", h.Name())
}

// Refresh fetches and records the current weather for city. If the store
// cannot record it, the reading is still returned as an Unsaved view along
// with an error wrapping ErrStoreUnavailable.
func (s *Service) Refresh(ctx context.Context, city string) (*View, error) {
	return s.refresh(ctx, strings.TrimSpace(city), nil)
}

// RefreshPlace refreshes a place picked from Lookup, keeping its state and
// country on the record.
func (s *Service) RefreshPlace(ctx context.Context, place models.Place) (*View, error) {
	query := strings.TrimSpace(place.Name)
	if place.Country != "" {
		query += "," + place.Country
	}
	return s.refresh(ctx, query, &place)
}

func (s *Service) refresh(ctx context.Context, query string, place *models.Place) (*View, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: no city given", ErrDataUnavailable)
	}

	raw, err := s.fetcher.CurrentWeather(ctx, query)
	if err != nil {
		log.Printf("Failed to fetch weather for %s: %v", query, err)
		if errors.Is(err, ErrDataUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	rec, ok := s.normalizer.Normalize(raw, place)
	if !ok {
		return nil, fmt.Errorf("%w: no usable weather data for %q", ErrDataUnavailable, query)
	}

	if err := s.store.Append(ctx, rec); err != nil {
		if errors.Is(err, database.ErrInvalidRecord) {
			return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
		}
		saveErr := fmt.Errorf("failed to save weather for %s: %w", rec.City, err)
		log.Printf("Warning: %v, showing the reading unsaved", saveErr)

		view := &View{
			Record:   rec,
			Forecast: s.forecast(ctx, query),
			Alerts:   []models.AlertEvent{},
			Moon:     astro.Moon(rec.Timestamp),
			Unsaved:  true,
			Warning:  saveErr.Error(),
		}
		return view, saveErr
	}

	events, err := s.evaluator.Evaluate(ctx, rec)
	if err != nil {
		log.Printf("Alert evaluation skipped for %s: %v", rec.City, err)
	}
	if events == nil {
		events = []models.AlertEvent{}
	}

	s.notify(ctx, rec, events)

	return &View{
		Record:   rec,
		Forecast: s.forecast(ctx, query),
		Alerts:   events,
		Moon:     s.moon.Current(),
	}, nil
}

// forecast is best effort; failures leave it empty
func (s *Service) forecast(ctx context.Context, query string) []models.DailyForecast {
	raw, err := s.fetcher.Forecast(ctx, query)
	if err != nil {
		log.Printf("Forecast unavailable for %s: %v", query, err)
		return []models.DailyForecast{}
	}
	if days := s.normalizer.Forecast(raw, normalizer.DefaultForecastDays); len(days) > 0 {
		return days
	}
	return []models.DailyForecast{}
}

func (s *Service) notify(ctx context.Context, rec *models.WeatherRecord, events []models.AlertEvent) {
	s.hooksMu.RLock()
	hooks := make([]Hook, len(s.hooks))
	copy(hooks, s.hooks)
	s.hooksMu.RUnlock()

	for _, h := range hooks {
		if err := h.OnRecord(ctx, rec, events); err != nil {
			log.Printf("Hook %s failed: %v", h.Name(), err)
			metrics.RecordHookFailure(h.Name())
		}
	}
}

// Lookup resolves a free-text place name into candidate places
func (s *Service) Lookup(ctx context.Context, query string, limit int) ([]models.Place, error) {
	if s.geocoder == nil {
		return nil, ErrNoGeocoder
	}
	return s.geocoder.Geocode(ctx, strings.TrimSpace(query), limit)
}

func (s *Service) Latest(ctx context.Context) (*models.WeatherRecord, error) {
	return s.store.Latest(ctx)
}

func (s *Service) History(ctx context.Context, city string, limit int) ([]models.WeatherRecord, error) {
	return s.store.History(ctx, strings.TrimSpace(city), limit)
}

func (s *Service) AddFavorite(ctx context.Context, city, country string) (bool, error) {
	return s.store.AddFavorite(ctx, city, country)
}

func (s *Service) RemoveFavorite(ctx context.Context, city, country string) (bool, error) {
	return s.store.RemoveFavorite(ctx, city, country)
}

func (s *Service) ListFavorites(ctx context.Context) ([]models.FavoriteCity, error) {
	return s.store.ListFavorites(ctx)
}

func (s *Service) IsFavorite(ctx context.Context, city, country string) (bool, error) {
	return s.store.IsFavorite(ctx, city, country)
}

func (s *Service) ClearFavorites(ctx context.Context) (int64, error) {
	return s.store.ClearFavorites(ctx)
}

func (s *Service) AddRule(ctx context.Context, rule *models.AlertRule) error {
	return s.store.AddRule(ctx, rule)
}

func (s *Service) RemoveRule(ctx context.Context, id int64) error {
	return s.store.RemoveRule(ctx, id)
}

func (s *Service) ListRules(ctx context.Context, city string) ([]models.AlertRule, error) {
	return s.store.ListRules(ctx, strings.TrimSpace(city))
}

func (s *Service) AlertHistory(ctx context.Context, city string, limit int) ([]models.AlertEvent, error) {
	return s.store.AlertHistory(ctx, strings.TrimSpace(city), limit)
}

// PurgeAlerts deletes alert events older than olderThan and returns how many were removed
func (s *Service) PurgeAlerts(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)
	n, err := s.store.PurgeAlertsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	metrics.RecordPurge(n)
	return n, nil
}

// Moon returns the moon snapshot for t, or the refreshed one when t is zero
func (s *Service) Moon(t time.Time) astro.MoonInfo {
	if t.IsZero() {
		return s.moon.Current()
	}
	return astro.Moon(t)
}

// SuggestRules proposes alert rules for city from its recent history. The
// suggestions are not saved.
func (s *Service) SuggestRules(ctx context.Context, city string) ([]models.RuleSuggestion, error) {
	city = strings.TrimSpace(city)
	history, err := s.store.History(ctx, city, DefaultSuggestionHistory)
	if err != nil {
		return nil, err
	}
	suggestions := detector.SuggestRules(city, history)
	if suggestions == nil {
		suggestions = []models.RuleSuggestion{}
	}
	return suggestions, nil
}

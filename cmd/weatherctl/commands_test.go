package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"weatherdash/internal/dashboard"
	"weatherdash/internal/database"
	"weatherdash/internal/memstore"
	"weatherdash/internal/models"
	"weatherdash/internal/normalizer"
)

const austinJSON = `{
	"cod": 200,
	"name": "Austin",
	"main": {"temp": 96, "feels_like": 99, "humidity": 40, "pressure": 1013.25},
	"wind": {"speed": 7, "deg": 180},
	"sys": {"country": "US"},
	"weather": [{"description": "clear sky"}]
}`

type stubFetcher struct {
	current []byte
	err     error
}

func (f *stubFetcher) CurrentWeather(context.Context, string) ([]byte, error) {
	return f.current, f.err
}

func (f *stubFetcher) Forecast(context.Context, string) ([]byte, error) {
	return nil, errors.New("no forecast")
}

func newTestCLI(t *testing.T, fetcher dashboard.Fetcher) (*cli, *bytes.Buffer) {
	t.Helper()
	if fetcher == nil {
		fetcher = &stubFetcher{current: []byte(austinJSON)}
	}
	store := memstore.NewMemoryStore(0)
	svc := dashboard.NewService(store, fetcher, normalizer.New(normalizer.UnitsImperial, time.UTC))
	var out bytes.Buffer
	return &cli{svc: svc, out: &out}, &out
}

func TestRunUnknownCommand(t *testing.T) {
	c, _ := newTestCLI(t, nil)

	for _, args := range [][]string{nil, {"launch"}, {"favorites", "rename"}, {"rules", "edit"}} {
		if err := c.run(context.Background(), args); !errors.Is(err, errUsage) {
			t.Errorf("run(%v) error = %v, want errUsage", args, err)
		}
	}
}

func TestFetch(t *testing.T) {
	c, out := newTestCLI(t, nil)
	ctx := context.Background()

	rule := &models.AlertRule{City: "Austin", AlertType: models.AlertTemperatureHigh, Threshold: floatPtr(90)}
	if err := c.svc.AddRule(ctx, rule); err != nil {
		t.Fatalf("AddRule() error = %v", err)
	}

	if err := c.run(ctx, []string{"fetch", "Austin"}); err != nil {
		t.Fatalf("fetch error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"Austin, US", "96°F", "Wind 7.0 mph S", "29.92 inHg", "[MEDIUM] High temperature alert"} {
		if !strings.Contains(got, want) {
			t.Errorf("fetch output missing %q:\n%s", want, got)
		}
	}
}

func TestFetchErrors(t *testing.T) {
	c, _ := newTestCLI(t, &stubFetcher{current: []byte(`{"cod":"404"}`)})

	if err := c.run(context.Background(), []string{"fetch"}); !errors.Is(err, errUsage) {
		t.Errorf("fetch without city error = %v, want errUsage", err)
	}
	if err := c.run(context.Background(), []string{"fetch", "Atlantis"}); !errors.Is(err, dashboard.ErrDataUnavailable) {
		t.Errorf("fetch Atlantis error = %v, want ErrDataUnavailable", err)
	}
}

type downStore struct {
	*memstore.MemoryStore
}

func (downStore) Append(context.Context, *models.WeatherRecord) error {
	return fmt.Errorf("%w: database is locked", database.ErrStoreUnavailable)
}

func TestFetchStoreDown(t *testing.T) {
	store := downStore{memstore.NewMemoryStore(0)}
	svc := dashboard.NewService(store, &stubFetcher{current: []byte(austinJSON)}, normalizer.New(normalizer.UnitsImperial, time.UTC))
	var out bytes.Buffer
	c := &cli{svc: svc, out: &out}

	err := c.run(context.Background(), []string{"fetch", "Austin"})
	if !errors.Is(err, database.ErrStoreUnavailable) {
		t.Errorf("fetch error = %v, want ErrStoreUnavailable", err)
	}

	got := out.String()
	for _, want := range []string{"Austin, US", "96°F", "Not saved:", "database is locked"} {
		if !strings.Contains(got, want) {
			t.Errorf("fetch output missing %q:\n%s", want, got)
		}
	}
}

func TestFavorites(t *testing.T) {
	c, out := newTestCLI(t, nil)
	ctx := context.Background()

	steps := []struct {
		args []string
		want string
	}{
		{[]string{"favorites", "list"}, "No favorite cities"},
		{[]string{"favorites", "add", "Austin", "US"}, "Added Austin to favorites"},
		{[]string{"favorites", "add", "Austin", "US"}, "Austin is already a favorite"},
		{[]string{"favorites"}, "Austin"},
		{[]string{"favorites", "remove", "Paris"}, "Paris is not a favorite"},
		{[]string{"favorites", "remove", "Austin", "US"}, "Removed Austin from favorites"},
		{[]string{"favorites", "add", "Oslo"}, "Added Oslo"},
		{[]string{"favorites", "clear"}, "Removed 1 favorite(s)"},
	}

	for _, step := range steps {
		out.Reset()
		if err := c.run(ctx, step.args); err != nil {
			t.Fatalf("run(%v) error = %v", step.args, err)
		}
		if !strings.Contains(out.String(), step.want) {
			t.Errorf("run(%v) = %q, want it to contain %q", step.args, out.String(), step.want)
		}
	}
}

func TestRules(t *testing.T) {
	c, out := newTestCLI(t, nil)
	ctx := context.Background()

	if err := c.run(ctx, []string{"rules", "add", "-city", "Austin", "-type", "wind_speed", "-threshold", "25"}); err != nil {
		t.Fatalf("rules add error = %v", err)
	}
	if got := out.String(); !strings.Contains(got, "Created rule 1: WIND_SPEED >= 25 for Austin") {
		t.Errorf("rules add output = %q", got)
	}

	out.Reset()
	if err := c.run(ctx, []string{"rules", "list", "-city", "Austin"}); err != nil {
		t.Fatalf("rules list error = %v", err)
	}
	if got := out.String(); !strings.Contains(got, "WIND_SPEED") || !strings.Contains(got, ">= 25") {
		t.Errorf("rules list output = %q", got)
	}

	out.Reset()
	if err := c.run(ctx, []string{"rules", "remove", "1"}); err != nil {
		t.Fatalf("rules remove error = %v", err)
	}
	if rules, _ := c.svc.ListRules(ctx, ""); len(rules) != 0 {
		t.Errorf("ListRules() after remove = %v, want none", rules)
	}
}

func TestRulesAddInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing threshold", []string{"rules", "add", "-city", "Austin", "-type", "TEMPERATURE_HIGH"}},
		{"non numeric threshold", []string{"rules", "add", "-city", "Austin", "-type", "HUMIDITY", "-threshold", "high"}},
		{"unknown type", []string{"rules", "add", "-city", "Austin", "-type", "FOG"}},
		{"missing city", []string{"rules", "add", "-type", "RAIN"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCLI(t, nil)
			if err := c.run(context.Background(), tt.args); !errors.Is(err, models.ErrInvalidRule) {
				t.Errorf("run() error = %v, want ErrInvalidRule", err)
			}
		})
	}
}

func TestHistoryJSON(t *testing.T) {
	c, out := newTestCLI(t, nil)
	ctx := context.Background()

	if _, err := c.svc.Refresh(ctx, "Austin"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	c.asJSON = true
	if err := c.run(ctx, []string{"history", "-city", "Austin"}); err != nil {
		t.Fatalf("history error = %v", err)
	}

	var records []models.WeatherRecord
	if err := json.Unmarshal(out.Bytes(), &records); err != nil {
		t.Fatalf("history output is not JSON: %v\n%s", err, out.String())
	}
	if len(records) != 1 || records[0].City != "Austin" {
		t.Errorf("history = %+v, want one Austin record", records)
	}
}

func TestMoon(t *testing.T) {
	c, out := newTestCLI(t, nil)

	if err := c.run(context.Background(), []string{"moon", "-date", "2000-01-06"}); err != nil {
		t.Fatalf("moon error = %v", err)
	}
	if got := out.String(); !strings.Contains(got, "New Moon") {
		t.Errorf("moon output = %q, want New Moon", got)
	}

	if err := c.run(context.Background(), []string{"moon", "-date", "06/01/2000"}); !errors.Is(err, errUsage) {
		t.Errorf("moon with bad date error = %v, want errUsage", err)
	}
}

func TestPurge(t *testing.T) {
	c, out := newTestCLI(t, nil)

	if err := c.run(context.Background(), []string{"purge", "-days", "7"}); err != nil {
		t.Fatalf("purge error = %v", err)
	}
	if got := out.String(); !strings.Contains(got, "Purged 0 alert(s) older than 7 day(s)") {
		t.Errorf("purge output = %q", got)
	}
	for _, days := range []string{"0", "-1"} {
		if err := c.run(context.Background(), []string{"purge", "-days", days}); !errors.Is(err, errUsage) {
			t.Errorf("purge -days %s error = %v, want errUsage", days, err)
		}
	}
}

func TestSuggestNeedsCity(t *testing.T) {
	c, out := newTestCLI(t, nil)

	if err := c.run(context.Background(), []string{"suggest"}); !errors.Is(err, errUsage) {
		t.Errorf("suggest error = %v, want errUsage", err)
	}
	if err := c.run(context.Background(), []string{"suggest", "-city", "Austin"}); err != nil {
		t.Fatalf("suggest -city error = %v", err)
	}
	if got := out.String(); !strings.Contains(got, "No suggestions") {
		t.Errorf("suggest output = %q", got)
	}
}

func TestDescribeCondition(t *testing.T) {
	tests := []struct {
		rule models.AlertRule
		want string
	}{
		{models.AlertRule{AlertType: models.AlertRain}, "-"},
		{models.AlertRule{Threshold: floatPtr(90)}, ">= 90"},
		{models.AlertRule{Threshold: floatPtr(32.5), Condition: models.ConditionLT}, "< 32.5"},
	}

	for _, tt := range tests {
		if got := describeCondition(tt.rule); got != tt.want {
			t.Errorf("describeCondition(%+v) = %q, want %q", tt.rule, got, tt.want)
		}
	}
}

func floatPtr(v float64) *float64 { return &v }

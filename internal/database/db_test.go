package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"weatherdash/internal/models"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(DriverSQLite, filepath.Join(t.TempDir(), "weather.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	clock := &stepClock{t: time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)}
	db.SetClock(clock.now)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRecord(city string, ts time.Time) *models.WeatherRecord {
	return &models.WeatherRecord{
		City:          city,
		State:         "Texas",
		Country:       "US",
		Temperature:   95.5,
		FeelsLike:     101,
		TempHigh:      98,
		TempLow:       77,
		Humidity:      40,
		Precipitation: 0.2,
		Pressure:      1009,
		WindSpeed:     11.4,
		WindDirection: 185,
		Visibility:    6.21,
		Sunrise:       "06:31 AM",
		Sunset:        "08:38 PM",
		DayLength:     "14h 7m",
		Description:   "scattered clouds",
		Timestamp:     ts,
	}
}

func TestNewDB_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "weather.db")

	db, err := NewDB(DriverSQLite, path)
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestNewDB_UnsupportedDriver(t *testing.T) {
	if _, err := NewDB("oracle", "x"); err == nil {
		t.Error("NewDB() with unknown driver should fail")
	}
}

func TestNewDB_Unavailable(t *testing.T) {
	// a directory cannot be opened as a database file
	dir := t.TempDir()
	_, err := NewDB(DriverSQLite, dir)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("NewDB(directory) error = %v, want ErrStoreUnavailable", err)
	}
}

func TestAppendAndLatest(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.Latest(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Latest() on empty store error = %v, want ErrNotFound", err)
	}

	rec := sampleRecord("Austin", time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC))
	if err := db.Append(ctx, rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if rec.ID == 0 {
		t.Error("Append() should set the record id")
	}

	got, err := db.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if *got != *rec {
		t.Errorf("Latest() =\n%+v\nwant\n%+v", *got, *rec)
	}

	second := sampleRecord("Dallas", rec.Timestamp.Add(time.Hour))
	if err := db.Append(ctx, second); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	got, err = db.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got.City != "Dallas" {
		t.Errorf("Latest().City = %v, want Dallas", got.City)
	}
}

func TestAppend_InvalidRecord(t *testing.T) {
	db := newTestDB(t)

	tests := []struct {
		name string
		rec  *models.WeatherRecord
	}{
		{"missing city", &models.WeatherRecord{Country: "US"}},
		{"missing country", &models.WeatherRecord{City: "Austin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := db.Append(context.Background(), tt.rec); !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("Append() error = %v, want ErrInvalidRecord", err)
			}
		})
	}
}

func TestAppend_TimestampNeverDecreases(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	later := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	if err := db.Append(ctx, sampleRecord("Austin", later)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	earlier := sampleRecord("Austin", later.Add(-time.Hour))
	if err := db.Append(ctx, earlier); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if !earlier.Timestamp.Equal(later) {
		t.Errorf("Timestamp = %v, want clamped to %v", earlier.Timestamp, later)
	}
}

func TestHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	start := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	for i, city := range []string{"Austin", "Boston", "Austin", "Austin"} {
		if err := db.Append(ctx, sampleRecord(city, start.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	all, err := db.History(ctx, "", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("History() returned %d records, want 4", len(all))
	}
	if !all[0].Timestamp.After(all[3].Timestamp) {
		t.Error("History() should return newest first")
	}

	austin, err := db.History(ctx, "Austin", 2)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(austin) != 2 {
		t.Fatalf("History(Austin, 2) returned %d records, want 2", len(austin))
	}
	for _, r := range austin {
		if r.City != "Austin" {
			t.Errorf("History(Austin) returned city %v", r.City)
		}
	}
}

// useLegacyLocation pins the zone legacy wall-clock timestamps are read in
func useLegacyLocation(t *testing.T, loc *time.Location) {
	t.Helper()
	prev := legacyLocation
	legacyLocation = loc
	t.Cleanup(func() { legacyLocation = prev })
}

// createLegacyFile writes the tables older versions created, with rows in
// their formats: lower-case enums and local wall-clock times.
func createLegacyFile(t *testing.T, path string, stmts ...string) {
	t.Helper()
	legacy, err := sql.Open(DriverSQLite, path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer legacy.Close()
	for _, stmt := range stmts {
		if _, err := legacy.Exec(stmt); err != nil {
			t.Fatalf("legacy setup %q: %v", stmt, err)
		}
	}
}

const (
	legacyWeatherTable = `CREATE TABLE weather (id INTEGER PRIMARY KEY AUTOINCREMENT, city TEXT, country TEXT,
		temperature REAL, description TEXT, timestamp TEXT)`
	legacyRulesTable = `CREATE TABLE alert_rules (id INTEGER PRIMARY KEY AUTOINCREMENT, city TEXT NOT NULL, country TEXT,
		alert_type TEXT NOT NULL, threshold_value REAL, condition TEXT, is_active BOOLEAN DEFAULT 1,
		created_date TEXT, last_triggered TEXT)`
	legacyHistoryTable = `CREATE TABLE alert_history (id INTEGER PRIMARY KEY AUTOINCREMENT, city TEXT NOT NULL,
		alert_type TEXT NOT NULL, severity TEXT NOT NULL, message TEXT NOT NULL, triggered_date TEXT, weather_data TEXT)`
	legacyFavoritesTableDDL = `CREATE TABLE favorites (id INTEGER PRIMARY KEY AUTOINCREMENT, city TEXT NOT NULL,
		country TEXT, added_date TEXT, UNIQUE(city, country))`
)

func TestNewDB_MigratesLegacySchema(t *testing.T) {
	useLegacyLocation(t, time.FixedZone("CDT", -5*60*60))
	path := filepath.Join(t.TempDir(), "legacy.db")

	createLegacyFile(t, path,
		legacyWeatherTable,
		`INSERT INTO weather (city, country, temperature, description, timestamp)
			VALUES ('Boston', 'US', 61, 'light rain', '2023-10-01 09:30:00')`,
		legacyRulesTable,
		`INSERT INTO alert_rules (city, country, alert_type, threshold_value, condition, created_date)
			VALUES ('New York', 'US', 'temperature_high', 90, '>=', '2024-05-01 08:00:00')`,
		`INSERT INTO alert_rules (city, country, alert_type, threshold_value, condition, created_date)
			VALUES ('New York', 'US', 'storm', 0, '>=', '2024-05-01 08:05:00')`,
		legacyHistoryTable,
		`INSERT INTO alert_history (city, alert_type, severity, message, triggered_date, weather_data)
			VALUES ('New York', 'temperature_high', 'medium', 'High temperature alert: 98°F (threshold: 90°F)',
			'2024-06-01 13:00:00', '{"city": "New York", "temperature": 98}')`,
	)

	db, err := NewDB(DriverSQLite, path)
	if err != nil {
		t.Fatalf("NewDB() on legacy schema error = %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	got, err := db.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	want := models.WeatherRecord{
		ID:          1,
		City:        "Boston",
		Country:     "US",
		Temperature: 61,
		Description: "light rain",
		Timestamp:   time.Date(2023, time.October, 1, 9, 30, 0, 0, time.UTC),
	}
	if *got != want {
		t.Errorf("Latest() =\n%+v\nwant\n%+v", *got, want)
	}

	rules, err := db.ListRules(ctx, "New York")
	if err != nil {
		t.Fatalf("ListRules() error = %v", err)
	}
	wantTypes := []models.AlertType{models.AlertTemperatureHigh, models.AlertStorm}
	if len(rules) != len(wantTypes) {
		t.Fatalf("ListRules() returned %d rules, want %d", len(rules), len(wantTypes))
	}
	for i, r := range rules {
		if r.AlertType != wantTypes[i] || !r.IsActive || r.Condition != models.ConditionGTE {
			t.Errorf("rules[%d] = %+v, want active %s >= rule", i, r, wantTypes[i])
		}
	}

	// 13:00 CDT is 18:00 UTC, later than an event stored now at 15:00 UTC
	legacyAt := time.Date(2024, time.June, 1, 18, 0, 0, 0, time.UTC)
	ev := &models.AlertEvent{RuleID: rules[0].ID, City: "New York", AlertType: models.AlertTemperatureHigh,
		Severity: models.SeverityLow, Message: "m", TriggeredDate: legacyAt.Add(-3 * time.Hour)}
	if err := db.AppendAlertEvent(ctx, ev); err != nil {
		t.Fatalf("AppendAlertEvent() on migrated table error = %v", err)
	}

	history, err := db.AlertHistory(ctx, "New York", 0)
	if err != nil {
		t.Fatalf("AlertHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("AlertHistory() returned %d events, want 2", len(history))
	}
	legacyEvent := history[0]
	if !legacyEvent.TriggeredDate.Equal(legacyAt) {
		t.Errorf("legacy TriggeredDate = %v, want %v", legacyEvent.TriggeredDate, legacyAt)
	}
	if legacyEvent.AlertType != models.AlertTemperatureHigh || legacyEvent.Severity != models.SeverityMedium {
		t.Errorf("legacy event type/severity = %s/%s, want TEMPERATURE_HIGH/MEDIUM", legacyEvent.AlertType, legacyEvent.Severity)
	}
	if legacyEvent.EventID == "" {
		t.Error("legacy event has no EventID after migration")
	}
	if history[1].EventID != ev.EventID {
		t.Errorf("AlertHistory()[1] = %+v, want the event appended after migration", history[1])
	}

	// reopening converts nothing twice
	db.Close()
	db, err = NewDB(DriverSQLite, path)
	if err != nil {
		t.Fatalf("second NewDB() error = %v", err)
	}
	defer db.Close()
	again, err := db.AlertHistory(ctx, "New York", 0)
	if err != nil {
		t.Fatalf("AlertHistory() after reopen error = %v", err)
	}
	if len(again) != 2 || !again[0].TriggeredDate.Equal(legacyAt) || !again[1].TriggeredDate.Equal(ev.TriggeredDate) {
		t.Errorf("AlertHistory() after reopen = %+v", again)
	}

	n, err := db.PurgeAlertsBefore(ctx, legacyAt.Add(-time.Hour))
	if err != nil {
		t.Fatalf("PurgeAlertsBefore() error = %v", err)
	}
	if n != 1 {
		t.Errorf("PurgeAlertsBefore(17:00 UTC) removed %d, want only the 15:00 event", n)
	}
}

func TestNewDB_ImportsLegacyFavorites(t *testing.T) {
	useLegacyLocation(t, time.FixedZone("CDT", -5*60*60))
	path := filepath.Join(t.TempDir(), "legacy.db")

	createLegacyFile(t, path,
		legacyFavoritesTableDDL,
		`INSERT INTO favorites (city, country, added_date) VALUES ('London', 'GB', '2024-03-01 10:00:00')`,
		`INSERT INTO favorites (city, country, added_date) VALUES ('Reykjavik', NULL, '2024-03-02 10:00:00')`,
	)

	db, err := NewDB(DriverSQLite, path)
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	ctx := context.Background()

	favorites, err := db.ListFavorites(ctx)
	if err != nil {
		t.Fatalf("ListFavorites() error = %v", err)
	}
	if len(favorites) != 2 {
		t.Fatalf("ListFavorites() returned %d, want 2", len(favorites))
	}
	for _, tt := range []struct{ city, country string }{{"London", "GB"}, {"Reykjavik", ""}} {
		ok, err := db.IsFavorite(ctx, tt.city, tt.country)
		if err != nil || !ok {
			t.Errorf("IsFavorite(%s, %q) = %v, %v, want true", tt.city, tt.country, ok, err)
		}
	}
	for _, f := range favorites {
		if f.City == "London" && !f.AddedDate.Equal(time.Date(2024, time.March, 1, 15, 0, 0, 0, time.UTC)) {
			t.Errorf("London AddedDate = %v, want 15:00 UTC", f.AddedDate)
		}
	}
	db.Close()

	db, err = NewDB(DriverSQLite, path)
	if err != nil {
		t.Fatalf("second NewDB() error = %v", err)
	}
	defer db.Close()
	if again, _ := db.ListFavorites(ctx); len(again) != 2 {
		t.Errorf("ListFavorites() after reopen returned %d, want 2", len(again))
	}
}

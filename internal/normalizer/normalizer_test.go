package normalizer

import (
	"fmt"
	"testing"
	"time"

	"weatherdash/internal/models"
)

var fixedNow = time.Date(2024, time.June, 21, 15, 4, 5, 999, time.UTC)

func newTestNormalizer(units Units) *Normalizer {
	n := New(units, time.UTC)
	n.SetClock(func() time.Time { return fixedNow })
	return n
}

func TestNormalize_CurrentWeather(t *testing.T) {
	sunrise := time.Date(2024, time.June, 21, 10, 30, 0, 0, time.UTC).Unix()
	sunset := time.Date(2024, time.June, 22, 1, 17, 0, 0, time.UTC).Unix()
	raw := fmt.Sprintf(`{
		"cod": 200,
		"name": "Chicago",
		"timezone": -18000,
		"main": {"temp": 84.2, "feels_like": 88.1, "temp_min": 80, "temp_max": 87, "humidity": 61, "pressure": 1012},
		"wind": {"speed": 9.2, "deg": 230},
		"rain": {"1h": 0.4},
		"visibility": 10000,
		"sys": {"country": "US", "sunrise": %d, "sunset": %d},
		"weather": [{"main": "Rain", "description": "light rain"}]
	}`, sunrise, sunset)

	rec, ok := newTestNormalizer(UnitsImperial).Normalize([]byte(raw), nil)
	if !ok {
		t.Fatal("Normalize() returned no data")
	}

	want := models.WeatherRecord{
		City:          "Chicago",
		Country:       "US",
		Temperature:   84.2,
		FeelsLike:     88.1,
		TempHigh:      87,
		TempLow:       80,
		Humidity:      61,
		Precipitation: 0.4,
		Pressure:      1012,
		WindSpeed:     9.2,
		WindDirection: 230,
		Visibility:    6.21,
		Sunrise:       "05:30 AM",
		Sunset:        "08:17 PM",
		DayLength:     "14h 47m",
		Description:   "light rain",
		Timestamp:     fixedNow.Truncate(time.Second),
	}
	if *rec != want {
		t.Errorf("Normalize() =\n%+v\nwant\n%+v", *rec, want)
	}
}

func TestNormalize_MissingOptionalFields(t *testing.T) {
	raw := `{"name": "Reykjavik", "sys": {"country": "IS"}, "main": {"temp": 41}}`

	rec, ok := newTestNormalizer(UnitsImperial).Normalize([]byte(raw), nil)
	if !ok {
		t.Fatal("Normalize() returned no data")
	}

	if rec.WindSpeed != 0 || rec.WindDirection != 0 {
		t.Errorf("wind = %v/%v, want 0/0", rec.WindSpeed, rec.WindDirection)
	}
	if rec.Precipitation != 0 {
		t.Errorf("Precipitation = %v, want 0", rec.Precipitation)
	}
	if rec.Sunrise != "" || rec.Sunset != "" || rec.DayLength != "" {
		t.Errorf("sun fields = %q/%q/%q, want empty", rec.Sunrise, rec.Sunset, rec.DayLength)
	}
	if rec.State != "" || rec.Visibility != 0 || rec.Description != "" {
		t.Errorf("unexpected non-zero fields: %+v", rec)
	}
	if rec.TempHigh != 41 || rec.TempLow != 41 {
		t.Errorf("high/low = %v/%v, want temperature", rec.TempHigh, rec.TempLow)
	}
}

func TestNormalize_WindPreference(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantSpeed float64
		wantDeg   int
	}{
		{
			name:      "flat wins over nested",
			raw:       `{"name": "Oslo", "wind_speed": 12, "wind": {"speed": 5, "deg": 90}}`,
			wantSpeed: 12,
			wantDeg:   90,
		},
		{
			name:      "flat degrees win over nested",
			raw:       `{"name": "Oslo", "wind_deg": 180, "wind": {"speed": 5, "deg": 90}}`,
			wantSpeed: 5,
			wantDeg:   180,
		},
		{
			name:      "nested only",
			raw:       `{"name": "Oslo", "wind": {"speed": 7.5, "deg": 360}}`,
			wantSpeed: 7.5,
			wantDeg:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := newTestNormalizer(UnitsImperial).Normalize([]byte(tt.raw), nil)
			if !ok {
				t.Fatal("Normalize() returned no data")
			}
			if rec.WindSpeed != tt.wantSpeed {
				t.Errorf("WindSpeed = %v, want %v", rec.WindSpeed, tt.wantSpeed)
			}
			if rec.WindDirection != tt.wantDeg {
				t.Errorf("WindDirection = %v, want %v", rec.WindDirection, tt.wantDeg)
			}
		})
	}
}

func TestNormalize_Precipitation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"rain only", `{"name": "Lima", "rain": {"1h": 2.5}}`, 2.5},
		{"snow only", `{"name": "Lima", "snow": {"1h": 1.2}}`, 1.2},
		{"rain takes priority", `{"name": "Lima", "rain": {"1h": 0.3}, "snow": {"1h": 4}}`, 0.3},
		{"rain block without 1h", `{"name": "Lima", "rain": {"3h": 6}, "snow": {"1h": 4}}`, 0},
		{"neither", `{"name": "Lima"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := newTestNormalizer(UnitsImperial).Normalize([]byte(tt.raw), nil)
			if !ok {
				t.Fatal("Normalize() returned no data")
			}
			if rec.Precipitation != tt.want {
				t.Errorf("Precipitation = %v, want %v", rec.Precipitation, tt.want)
			}
		})
	}
}

func TestNormalize_NoData(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty body", ""},
		{"malformed json", "{not json"},
		{"city not found", `{"cod": "404", "message": "city not found"}`},
		{"numeric error code", `{"cod": 401, "name": "Paris"}`},
		{"missing city", `{"main": {"temp": 70}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := newTestNormalizer(UnitsImperial).Normalize([]byte(tt.raw), nil)
			if ok || rec != nil {
				t.Errorf("Normalize() = %+v, %v, want nil, false", rec, ok)
			}
		})
	}
}

func TestNormalize_PlaceFillsIdentity(t *testing.T) {
	place := &models.Place{Name: "Springfield", State: "Illinois", Country: "US"}

	rec, ok := newTestNormalizer(UnitsImperial).Normalize([]byte(`{"temp": 70}`), place)
	if !ok {
		t.Fatal("Normalize() returned no data")
	}
	if rec.City != "Springfield" || rec.State != "Illinois" || rec.Country != "US" {
		t.Errorf("identity = %q/%q/%q, want Springfield/Illinois/US", rec.City, rec.State, rec.Country)
	}

	rec, ok = newTestNormalizer(UnitsImperial).Normalize([]byte(`{"name": "Springfield", "sys": {"country": "CA"}}`), place)
	if !ok {
		t.Fatal("Normalize() returned no data")
	}
	if rec.Country != "CA" {
		t.Errorf("Country = %q, want payload value CA", rec.Country)
	}
}

func TestNormalize_OneCallCurrent(t *testing.T) {
	sunrise := time.Date(2024, time.June, 21, 11, 0, 0, 0, time.UTC).Unix()
	raw := fmt.Sprintf(`{
		"timezone": "UTC",
		"current": {"temp": 77, "humidity": 104.6, "wind_speed": 3, "wind_deg": -10, "sunrise": %d,
			"weather": [{"description": "clear sky"}]},
		"daily": [{"dt": 0, "temp": {"min": 65, "max": 82}}]
	}`, sunrise)

	rec, ok := newTestNormalizer(UnitsImperial).Normalize([]byte(raw), &models.Place{Name: "Denver", Country: "US"})
	if !ok {
		t.Fatal("Normalize() returned no data")
	}
	if rec.Temperature != 77 || rec.TempHigh != 82 || rec.TempLow != 65 {
		t.Errorf("temps = %v/%v/%v, want 77/82/65", rec.Temperature, rec.TempHigh, rec.TempLow)
	}
	if rec.Humidity != 100 {
		t.Errorf("Humidity = %v, want clamped 100", rec.Humidity)
	}
	if rec.WindDirection != 350 {
		t.Errorf("WindDirection = %v, want 350", rec.WindDirection)
	}
	if rec.Sunrise != "11:00 AM" {
		t.Errorf("Sunrise = %q, want 11:00 AM", rec.Sunrise)
	}
	if rec.Description != "clear sky" {
		t.Errorf("Description = %q, want clear sky", rec.Description)
	}
}

func TestNormalize_MetricConversion(t *testing.T) {
	raw := `{"name": "Madrid", "main": {"temp": 35, "feels_like": 0}, "wind": {"speed": 10}}`

	rec, ok := newTestNormalizer(UnitsMetric).Normalize([]byte(raw), nil)
	if !ok {
		t.Fatal("Normalize() returned no data")
	}
	if rec.Temperature != 95 {
		t.Errorf("Temperature = %v, want 95", rec.Temperature)
	}
	if rec.FeelsLike != 32 {
		t.Errorf("FeelsLike = %v, want 32", rec.FeelsLike)
	}
	if rec.WindSpeed != 22.37 {
		t.Errorf("WindSpeed = %v, want 22.37", rec.WindSpeed)
	}
}

func TestNormalize_StandardConversion(t *testing.T) {
	rec, ok := newTestNormalizer(UnitsStandard).Normalize([]byte(`{"name": "Nome", "temp": 273.15}`), nil)
	if !ok {
		t.Fatal("Normalize() returned no data")
	}
	if rec.Temperature != 32 {
		t.Errorf("Temperature = %v, want 32", rec.Temperature)
	}
}

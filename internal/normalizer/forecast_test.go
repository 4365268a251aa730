package normalizer

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func forecastEntry(at time.Time, min, max float64, desc string) string {
	return fmt.Sprintf(`{"dt": %d, "main": {"temp": %v, "temp_min": %v, "temp_max": %v}, "weather": [{"description": %q}]}`,
		at.Unix(), (min+max)/2, min, max, desc)
}

func TestForecast_GroupsByDay(t *testing.T) {
	day1 := time.Date(2024, time.June, 21, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	entries := []string{
		forecastEntry(day1.Add(9*time.Hour), 60, 66, "mist"),
		forecastEntry(day1.Add(12*time.Hour), 68, 75, "clear sky"),
		forecastEntry(day1.Add(18*time.Hour), 70, 79, "few clouds"),
		forecastEntry(day2.Add(3*time.Hour), 58, 61, "light snow"),
		forecastEntry(day2.Add(15*time.Hour), 62, 71, "moderate rain"),
	}
	raw := `{"cod": "200", "city": {"name": "Boise", "timezone": 0}, "list": [` + strings.Join(entries, ",") + `]}`

	got := newTestNormalizer(UnitsImperial).Forecast([]byte(raw), 5)
	if len(got) != 2 {
		t.Fatalf("Forecast() returned %d days, want 2", len(got))
	}

	if got[0].Day != "Fri" || got[0].Description != "clear sky" || got[0].Icon != "☀️" {
		t.Errorf("day 1 = %+v, want Fri / clear sky", got[0])
	}
	if got[0].High != 79 || got[0].Low != 60 {
		t.Errorf("day 1 high/low = %d/%d, want 79/60", got[0].High, got[0].Low)
	}
	if got[1].Day != "Sat" || got[1].Description != "moderate rain" {
		t.Errorf("day 2 = %+v, want Sat / moderate rain", got[1])
	}
}

func TestForecast_CapsDays(t *testing.T) {
	start := time.Date(2024, time.June, 21, 12, 0, 0, 0, time.UTC)
	var entries []string
	for i := 0; i < 7; i++ {
		entries = append(entries, forecastEntry(start.AddDate(0, 0, i), 50, 60, "overcast clouds"))
	}
	raw := `{"list": [` + strings.Join(entries, ",") + `]}`

	got := newTestNormalizer(UnitsImperial).Forecast([]byte(raw), 5)
	if len(got) != 5 {
		t.Errorf("Forecast() returned %d days, want 5", len(got))
	}
}

func TestForecast_DailyArray(t *testing.T) {
	day := time.Date(2024, time.June, 21, 17, 0, 0, 0, time.UTC).Unix()
	raw := fmt.Sprintf(`{"timezone_offset": 0, "daily": [
		{"dt": %d, "temp": {"min": 10.4, "max": 21.6}, "weather": [{"description": "thunderstorm"}]},
		{"dt": %d, "temp": {"min": 12, "max": 24}, "weather": [{"description": "clear sky"}]}
	]}`, day, day+86400)

	got := newTestNormalizer(UnitsMetric).Forecast([]byte(raw), 0)
	if len(got) != 2 {
		t.Fatalf("Forecast() returned %d days, want 2", len(got))
	}
	if got[0].High != 71 || got[0].Low != 51 {
		t.Errorf("day 1 high/low = %d/%d, want 71/51", got[0].High, got[0].Low)
	}
	if got[0].Icon != "⛈️" {
		t.Errorf("day 1 icon = %v, want storm", got[0].Icon)
	}
}

func TestForecast_NoData(t *testing.T) {
	tests := []string{"", "[]", `{"cod": "404"}`}
	for _, raw := range tests {
		if got := newTestNormalizer(UnitsImperial).Forecast([]byte(raw), 5); len(got) != 0 {
			t.Errorf("Forecast(%q) = %v, want empty", raw, got)
		}
	}
}

package astro

import (
	"fmt"
	"time"
)

// DayLength returns the time between sunrise and sunset, or 0 when either is
// unknown or they are out of order.
func DayLength(sunrise, sunset time.Time) time.Duration {
	if sunrise.IsZero() || sunset.IsZero() || !sunset.After(sunrise) {
		return 0
	}
	return sunset.Sub(sunrise)
}

// FormatDayLength renders a duration like "12h 47m"
func FormatDayLength(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	d = d.Round(time.Minute)
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

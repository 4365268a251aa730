// Package astro holds pure date-to-phase calculations for the moon and sun.
package astro

import (
	"math"
	"time"
)

// SynodicMonth is the mean number of days between successive new moons
const SynodicMonth = 29.53059

// referenceNewMoon is a known new moon used as phase 0
var referenceNewMoon = time.Date(2000, time.January, 6, 18, 14, 0, 0, time.UTC)

var phaseNames = [8]string{
	"New Moon",
	"Waxing Crescent",
	"First Quarter",
	"Waxing Gibbous",
	"Full Moon",
	"Waning Gibbous",
	"Last Quarter",
	"Waning Crescent",
}

var phaseEmoji = [8]string{"🌑", "🌒", "🌓", "🌔", "🌕", "🌖", "🌗", "🌘"}

// MoonInfo is a snapshot of the moon for one instant
type MoonInfo struct {
	Date         time.Time `json:"date"`
	Phase        float64   `json:"phase"`
	Name         string    `json:"name"`
	Emoji        string    `json:"emoji"`
	Illumination float64   `json:"illumination"`
	NextFullMoon time.Time `json:"next_full_moon"`
	NextNewMoon  time.Time `json:"next_new_moon"`
}

// Phase returns the position in the lunar cycle at t, in [0,1).
// 0 is new moon and 0.5 is full moon.
func Phase(t time.Time) float64 {
	days := daysSince(referenceNewMoon, t)
	p := math.Mod(days, SynodicMonth) / SynodicMonth
	if p < 0 {
		p += 1
	}
	if p >= 1 {
		p = 0
	}
	return p
}

// PhaseName maps a phase to one of the eight named phases. Each name spans
// 1/8 of the cycle, centered on its multiple of 1/8.
func PhaseName(phase float64) string {
	return phaseNames[phaseIndex(phase)]
}

// Emoji returns the moon glyph for a phase
func Emoji(phase float64) string {
	return phaseEmoji[phaseIndex(phase)]
}

// Illumination returns the lit fraction of the disc as a percentage.
// It is 0 at new moon and 100 at full moon.
func Illumination(phase float64) float64 {
	if phase <= 0.5 {
		return phase * 2 * 100
	}
	return (1 - phase) * 2 * 100
}

// NextFullMoon projects forward along the cycle to the next phase 0.5
func NextFullMoon(t time.Time) time.Time {
	p := Phase(t)
	var days float64
	if p <= 0.5 {
		days = (0.5 - p) * SynodicMonth
	} else {
		days = (1.5 - p) * SynodicMonth
	}
	return t.Add(daysToDuration(days))
}

// NextNewMoon projects forward along the cycle to the next phase 0.
// Exactly at a new moon the following one is a full cycle away.
func NextNewMoon(t time.Time) time.Time {
	p := Phase(t)
	days := SynodicMonth
	if p != 0 {
		days = (1 - p) * SynodicMonth
	}
	return t.Add(daysToDuration(days))
}

// Moon collects every moon value for t
func Moon(t time.Time) MoonInfo {
	p := Phase(t)
	return MoonInfo{
		Date:         t,
		Phase:        p,
		Name:         PhaseName(p),
		Emoji:        Emoji(p),
		Illumination: Illumination(p),
		NextFullMoon: NextFullMoon(t),
		NextNewMoon:  NextNewMoon(t),
	}
}

func phaseIndex(phase float64) int {
	p := phase - math.Floor(phase)
	return int(math.Floor(p*8+0.5)) % 8
}

// daysSince avoids time.Duration so dates centuries apart do not saturate
func daysSince(from, to time.Time) float64 {
	secs := float64(to.Unix()-from.Unix()) + float64(to.Nanosecond()-from.Nanosecond())/1e9
	return secs / 86400
}

func daysToDuration(days float64) time.Duration {
	return time.Duration(days * float64(24*time.Hour))
}

package astro

import (
	"math"
	"testing"
	"time"
)

const tolerance = 1e-6

// circularDiff measures distance on the [0,1) cycle so 0.999 and 0.001 are close
func circularDiff(a, b float64) float64 {
	d := math.Abs(a - b)
	return math.Min(d, 1-d)
}

func TestPhase_ReferenceNewMoon(t *testing.T) {
	if got := Phase(referenceNewMoon); got != 0 {
		t.Errorf("Phase(reference) = %v, want 0", got)
	}
}

func TestPhase_Range(t *testing.T) {
	dates := []time.Time{
		time.Date(1850, time.March, 3, 0, 0, 0, 0, time.UTC),
		time.Date(1999, time.December, 31, 23, 59, 0, 0, time.UTC),
		time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC),
		time.Date(2400, time.October, 1, 6, 30, 0, 0, time.UTC),
	}

	for _, d := range dates {
		t.Run(d.Format("2006-01-02"), func(t *testing.T) {
			p := Phase(d)
			if p < 0 || p >= 1 {
				t.Errorf("Phase(%v) = %v, want value in [0,1)", d, p)
			}
		})
	}
}

func TestPhase_Periodic(t *testing.T) {
	cycle := daysToDuration(SynodicMonth)
	dates := []time.Time{
		time.Date(1990, time.February, 10, 3, 0, 0, 0, time.UTC),
		time.Date(2000, time.January, 6, 18, 14, 0, 0, time.UTC),
		time.Date(2023, time.August, 30, 21, 0, 0, 0, time.UTC),
		time.Date(2031, time.May, 5, 9, 45, 0, 0, time.UTC),
	}

	for _, d := range dates {
		t.Run(d.Format("2006-01-02"), func(t *testing.T) {
			got := Phase(d.Add(cycle))
			want := Phase(d)
			if diff := circularDiff(got, want); diff > tolerance {
				t.Errorf("Phase(d + cycle) = %v, Phase(d) = %v, diff %v", got, want, diff)
			}
		})
	}
}

func TestPhaseName(t *testing.T) {
	tests := []struct {
		phase float64
		want  string
	}{
		{0, "New Moon"},
		{0.06, "New Moon"},
		{0.0625, "Waxing Crescent"},
		{0.2, "First Quarter"},
		{0.4, "Waxing Gibbous"},
		{0.5, "Full Moon"},
		{0.6, "Waning Gibbous"},
		{0.75, "Last Quarter"},
		{0.9, "Waning Crescent"},
		{0.9375, "New Moon"},
		{0.99, "New Moon"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := PhaseName(tt.phase); got != tt.want {
				t.Errorf("PhaseName(%v) = %v, want %v", tt.phase, got, tt.want)
			}
		})
	}
}

func TestIllumination(t *testing.T) {
	if got := Illumination(0); got != 0 {
		t.Errorf("Illumination(0) = %v, want 0", got)
	}
	if got := Illumination(0.5); got != 100 {
		t.Errorf("Illumination(0.5) = %v, want 100", got)
	}

	for _, p := range []float64{0.1, 0.25, 0.33, 0.42, 0.49} {
		left := Illumination(0.5 - p)
		right := Illumination(0.5 + p)
		if math.Abs(left-right) > tolerance {
			t.Errorf("Illumination not symmetric at ±%v: %v vs %v", p, left, right)
		}
	}
}

func TestNextFullMoon(t *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	next := NextFullMoon(start)

	if next.Before(start) {
		t.Fatalf("NextFullMoon() = %v, before start %v", next, start)
	}
	if next.Sub(start) > daysToDuration(SynodicMonth) {
		t.Errorf("NextFullMoon() is more than one cycle away: %v", next.Sub(start))
	}
	if diff := circularDiff(Phase(next), 0.5); diff > tolerance {
		t.Errorf("Phase(NextFullMoon()) = %v, want 0.5", Phase(next))
	}
}

func TestNextNewMoon(t *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	next := NextNewMoon(start)

	if !next.After(start) {
		t.Fatalf("NextNewMoon() = %v, not after start %v", next, start)
	}
	if diff := circularDiff(Phase(next), 0); diff > tolerance {
		t.Errorf("Phase(NextNewMoon()) = %v, want 0", Phase(next))
	}
}

func TestNextNewMoon_AtNewMoon(t *testing.T) {
	next := NextNewMoon(referenceNewMoon)
	want := referenceNewMoon.Add(daysToDuration(SynodicMonth))
	if !next.Equal(want) {
		t.Errorf("NextNewMoon(new moon) = %v, want %v", next, want)
	}
}

func TestMoon(t *testing.T) {
	d := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	info := Moon(d)

	if info.Name != PhaseName(info.Phase) {
		t.Errorf("Moon().Name = %v, want %v", info.Name, PhaseName(info.Phase))
	}
	if info.Emoji == "" {
		t.Error("Moon().Emoji should not be empty")
	}
	if info.Illumination < 0 || info.Illumination > 100 {
		t.Errorf("Moon().Illumination = %v, want value in [0,100]", info.Illumination)
	}
}

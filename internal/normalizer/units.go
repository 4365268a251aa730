package normalizer

import (
	"fmt"
	"math"
	"strings"
)

// Units is the unit system a provider payload was requested in
type Units string

const (
	UnitsImperial Units = "imperial"
	UnitsMetric   Units = "metric"
	UnitsStandard Units = "standard"
)

const (
	mpsToMPH      = 2.23694
	metersToMiles = 0.000621371
	hPaToInHg     = 0.02953
)

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// ParseUnits accepts the provider's unit names. Empty means imperial.
func ParseUnits(s string) (Units, error) {
	switch u := Units(strings.ToLower(strings.TrimSpace(s))); u {
	case "":
		return UnitsImperial, nil
	case UnitsImperial, UnitsMetric, UnitsStandard:
		return u, nil
	default:
		return "", fmt.Errorf("unknown unit system %q", s)
	}
}

func (u Units) fahrenheit(v float64) float64 {
	switch u {
	case UnitsMetric:
		return round2(v*9/5 + 32)
	case UnitsStandard:
		return round2((v-273.15)*9/5 + 32)
	default:
		return v
	}
}

func (u Units) mph(v float64) float64 {
	if u == UnitsMetric || u == UnitsStandard {
		return round2(v * mpsToMPH)
	}
	return v
}

// WindDirection maps degrees to a 16-point compass label
func WindDirection(deg int) string {
	idx := int(math.Round(float64(deg)/22.5)) % 16
	if idx < 0 {
		idx += 16
	}
	return compassPoints[idx]
}

// PressureInHg converts hPa to inches of mercury
func PressureInHg(hPa float64) float64 {
	return round2(hPa * hPaToInHg)
}

func metersToMi(m float64) float64 {
	return round2(m * metersToMiles)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

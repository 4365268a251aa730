// Package normalizer turns raw provider payloads into WeatherRecords.
package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"weatherdash/internal/astro"
	"weatherdash/internal/models"
)

// TimeOfDayLayout is how sunrise and sunset are stored on the record
const TimeOfDayLayout = "03:04 PM"

// Normalizer converts provider payloads to imperial WeatherRecords
type Normalizer struct {
	units Units
	loc   *time.Location
	now   func() time.Time
}

// New returns a Normalizer for payloads in the given units. loc is used for
// sunrise/sunset when the payload carries no timezone.
func New(units Units, loc *time.Location) *Normalizer {
	if units == "" {
		units = UnitsImperial
	}
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{
		units: units,
		loc:   loc,
		now:   time.Now,
	}
}

// SetClock replaces the capture-time source
func (n *Normalizer) SetClock(now func() time.Time) {
	n.now = now
}

// Normalize decodes raw and builds a record. place fills identity fields the
// payload does not carry and may be nil. The bool is false when there is no
// usable data: empty or malformed body, a provider error code, or no city.
func (n *Normalizer) Normalize(raw []byte, place *models.Place) (*models.WeatherRecord, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return n.NormalizePayload(&p, place)
}

// NormalizePayload builds a record from an already decoded payload
func (n *Normalizer) NormalizePayload(p *Payload, place *models.Place) (*models.WeatherRecord, bool) {
	if p == nil || !codOK(p.Cod) {
		return nil, false
	}

	rec := &models.WeatherRecord{
		City:      strings.TrimSpace(p.Name),
		State:     p.State,
		Country:   firstString(p.Sys.country(), p.Country),
		Timestamp: n.now().Truncate(time.Second),
	}
	if place != nil {
		if rec.City == "" {
			rec.City = place.Name
		}
		if rec.State == "" {
			rec.State = place.State
		}
		if rec.Country == "" {
			rec.Country = place.Country
		}
	}
	if rec.City == "" {
		return nil, false
	}

	src := p
	if p.Current != nil {
		src = p.Current
	}

	if v, ok := firstFloat(src.Temp, src.Main.temp()); ok {
		rec.Temperature = n.units.fahrenheit(v)
	}
	if v, ok := firstFloat(src.FeelsLike, src.Main.feelsLike()); ok {
		rec.FeelsLike = n.units.fahrenheit(v)
	}
	rec.TempHigh, rec.TempLow = rec.Temperature, rec.Temperature
	if v, ok := firstFloat(src.Main.tempMax(), dailyTemp(p.Daily, true)); ok {
		rec.TempHigh = n.units.fahrenheit(v)
	}
	if v, ok := firstFloat(src.Main.tempMin(), dailyTemp(p.Daily, false)); ok {
		rec.TempLow = n.units.fahrenheit(v)
	}

	if v, ok := firstFloat(src.Humidity, src.Main.humidity()); ok {
		rec.Humidity = clampHumidity(v)
	}
	if v, ok := firstFloat(src.Pressure, src.Main.pressure()); ok {
		rec.Pressure = v
	}

	// flat one-call fields win over the nested wind block
	if v, ok := firstFloat(src.WindSpeed, src.Wind.speed()); ok {
		rec.WindSpeed = n.units.mph(v)
	}
	if v, ok := firstFloat(src.WindDeg, src.Wind.deg()); ok {
		rec.WindDirection = normalizeDegrees(v)
	}

	rec.Precipitation = precipitation(src)

	if src.Visibility != nil {
		rec.Visibility = metersToMi(*src.Visibility)
	}

	zone := n.zone(p.Timezone, p.TimezoneOffset)
	var sysSrc *SysBlock
	if src.Sys != nil {
		sysSrc = src.Sys
	} else {
		sysSrc = p.Sys
	}
	sunrise, hasSunrise := firstFloat(src.Sunrise, sysSrc.sunrise())
	sunset, hasSunset := firstFloat(src.Sunset, sysSrc.sunset())
	if hasSunrise {
		rec.Sunrise = formatTimeOfDay(sunrise, zone)
	}
	if hasSunset {
		rec.Sunset = formatTimeOfDay(sunset, zone)
	}
	if hasSunrise && hasSunset {
		rec.DayLength = astro.FormatDayLength(astro.DayLength(epoch(sunrise), epoch(sunset)))
	}

	if len(src.Weather) > 0 {
		rec.Description = src.Weather[0].Description
	}
	if rec.Description == "" {
		rec.Description = src.Description
	}

	return rec, true
}

// precipitation reads rain.1h, or snow.1h when there is no rain block
func precipitation(p *Payload) float64 {
	var block *PrecipBlock
	switch {
	case p.Rain != nil:
		block = p.Rain
	case p.Snow != nil:
		block = p.Snow
	default:
		return 0
	}
	if block.OneHour == nil {
		return 0
	}
	return *block.OneHour
}

func dailyTemp(daily []DailyBlock, high bool) *float64 {
	if len(daily) == 0 || daily[0].Temp == nil {
		return nil
	}
	if high {
		return daily[0].Temp.Max
	}
	return daily[0].Temp.Min
}

func (n *Normalizer) zone(tz interface{}, offset *float64) *time.Location {
	if offset != nil {
		return time.FixedZone("", int(*offset))
	}
	switch v := tz.(type) {
	case float64:
		return time.FixedZone("", int(v))
	case string:
		if loc, err := time.LoadLocation(v); err == nil {
			return loc
		}
	}
	return n.loc
}

// codOK accepts a missing code or 200 in either number or string form
func codOK(cod interface{}) bool {
	if cod == nil {
		return true
	}
	return fmt.Sprint(cod) == "200"
}

func clampHumidity(v float64) int {
	h := int(math.Round(v))
	if h < 0 {
		return 0
	}
	if h > 100 {
		return 100
	}
	return h
}

func normalizeDegrees(v float64) int {
	d := int(math.Round(v)) % 360
	if d < 0 {
		d += 360
	}
	return d
}

func epoch(v float64) time.Time {
	return time.Unix(int64(v), 0)
}

func formatTimeOfDay(v float64, zone *time.Location) string {
	return epoch(v).In(zone).Format(TimeOfDayLayout)
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

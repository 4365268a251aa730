package normalizer

import (
	"encoding/json"
	"math"
	"time"

	"weatherdash/internal/models"
)

// DefaultForecastDays is the length of the short forecast
const DefaultForecastDays = 5

// Forecast builds up to days daily summaries from a forecast payload. A
// 3-hourly list is grouped by local calendar day and takes its icon from the
// entry nearest noon. A daily array is mapped directly. Malformed input
// yields an empty forecast.
func (n *Normalizer) Forecast(raw []byte, days int) []models.DailyForecast {
	if days <= 0 {
		days = DefaultForecastDays
	}
	var p ForecastPayload
	if len(raw) == 0 || json.Unmarshal(raw, &p) != nil || !codOK(p.Cod) {
		return nil
	}

	offset := p.TimezoneOffset
	if offset == nil && p.City != nil {
		offset = p.City.Timezone
	}
	zone := n.zone(p.Timezone, offset)

	if len(p.List) > 0 {
		return n.groupByDay(p.List, zone, days)
	}
	return n.mapDaily(p.Daily, zone, days)
}

type dayBucket struct {
	date    time.Time
	entries []ForecastEntry
}

func (n *Normalizer) groupByDay(list []ForecastEntry, zone *time.Location, days int) []models.DailyForecast {
	var buckets []*dayBucket
	index := make(map[string]*dayBucket)

	for _, entry := range list {
		at := epoch(entry.Dt).In(zone)
		key := at.Format("2006-01-02")
		b, ok := index[key]
		if !ok {
			if len(buckets) == days {
				break
			}
			b = &dayBucket{date: time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, zone)}
			index[key] = b
			buckets = append(buckets, b)
		}
		b.entries = append(b.entries, entry)
	}

	forecast := make([]models.DailyForecast, 0, len(buckets))
	for _, b := range buckets {
		target := b.entries[0]
		bestDist := math.MaxInt
		high, low := math.Inf(-1), math.Inf(1)

		for _, e := range b.entries {
			dist := epoch(e.Dt).In(zone).Hour() - 12
			if dist < 0 {
				dist = -dist
			}
			if dist < bestDist {
				bestDist = dist
				target = e
			}
			if v, ok := firstFloat(e.Main.tempMax(), e.Main.temp()); ok {
				high = math.Max(high, v)
			}
			if v, ok := firstFloat(e.Main.tempMin(), e.Main.temp()); ok {
				low = math.Min(low, v)
			}
		}

		day := models.DailyForecast{
			Day:  b.date.Format("Mon"),
			Date: b.date,
		}
		if len(target.Weather) > 0 {
			day.Description = target.Weather[0].Description
		}
		day.Icon = models.ConditionIcon(day.Description)
		if !math.IsInf(high, 0) {
			day.High = int(math.Round(n.units.fahrenheit(high)))
		}
		if !math.IsInf(low, 0) {
			day.Low = int(math.Round(n.units.fahrenheit(low)))
		}
		forecast = append(forecast, day)
	}
	return forecast
}

func (n *Normalizer) mapDaily(daily []DailyBlock, zone *time.Location, days int) []models.DailyForecast {
	if len(daily) > days {
		daily = daily[:days]
	}
	forecast := make([]models.DailyForecast, 0, len(daily))
	for _, d := range daily {
		at := epoch(d.Dt).In(zone)
		day := models.DailyForecast{
			Day:  at.Format("Mon"),
			Date: time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, zone),
		}
		if len(d.Weather) > 0 {
			day.Description = d.Weather[0].Description
		}
		day.Icon = models.ConditionIcon(day.Description)
		if d.Temp != nil {
			if d.Temp.Max != nil {
				day.High = int(math.Round(n.units.fahrenheit(*d.Temp.Max)))
			}
			if d.Temp.Min != nil {
				day.Low = int(math.Round(n.units.fahrenheit(*d.Temp.Min)))
			}
		}
		forecast = append(forecast, day)
	}
	return forecast
}

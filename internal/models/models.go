package models

import (
	"strings"
	"time"
)

// WeatherRecord is one normalized observation for a city. Temperatures are
// °F, wind speed is mph, visibility is miles and pressure is hPa.
type WeatherRecord struct {
	ID            int64     `json:"id,omitempty"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	Country       string    `json:"country"`
	Temperature   float64   `json:"temperature"`
	FeelsLike     float64   `json:"feels_like"`
	TempHigh      float64   `json:"temp_high"`
	TempLow       float64   `json:"temp_low"`
	Humidity      int       `json:"humidity"`
	Precipitation float64   `json:"precipitation"`
	Pressure      float64   `json:"pressure"`
	WindSpeed     float64   `json:"wind_speed"`
	WindDirection int       `json:"wind_direction"`
	Visibility    float64   `json:"visibility"`
	Sunrise       string    `json:"sunrise"`
	Sunset        string    `json:"sunset"`
	DayLength     string    `json:"day_length"`
	Description   string    `json:"description"`
	Timestamp     time.Time `json:"timestamp"`
}

// DailyForecast is one day of the short forecast shown next to the current conditions
type DailyForecast struct {
	Day         string    `json:"day"`
	Date        time.Time `json:"date"`
	Icon        string    `json:"icon"`
	Description string    `json:"description"`
	High        int       `json:"high"`
	Low         int       `json:"low"`
}

// FavoriteCity is a bookmarked city. An empty Country means no country was given.
type FavoriteCity struct {
	ID        int64     `json:"id"`
	City      string    `json:"city"`
	Country   string    `json:"country,omitempty"`
	AddedDate time.Time `json:"added_date"`
}

type AlertType string

const (
	AlertTemperatureHigh AlertType = "TEMPERATURE_HIGH"
	AlertTemperatureLow  AlertType = "TEMPERATURE_LOW"
	AlertRain            AlertType = "RAIN"
	AlertSnow            AlertType = "SNOW"
	AlertStorm           AlertType = "STORM"
	AlertWindSpeed       AlertType = "WIND_SPEED"
	AlertHumidity        AlertType = "HUMIDITY"
)

// ParseAlertType accepts any letter case, so "temperature_high" from older
// stores reads as AlertTemperatureHigh
func ParseAlertType(s string) AlertType {
	return AlertType(strings.ToUpper(strings.TrimSpace(s)))
}

// RequiresThreshold reports whether rules of this type compare a numeric field
func (t AlertType) RequiresThreshold() bool {
	switch t {
	case AlertTemperatureHigh, AlertTemperatureLow, AlertWindSpeed, AlertHumidity:
		return true
	}
	return false
}

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

func ParseSeverity(s string) Severity {
	return Severity(strings.ToUpper(strings.TrimSpace(s)))
}

type Condition string

const (
	ConditionGTE Condition = ">="
	ConditionLTE Condition = "<="
	ConditionGT  Condition = ">"
	ConditionLT  Condition = "<"
	ConditionEQ  Condition = "=="
)

// Valid reports whether c is one of the supported comparators
func (c Condition) Valid() bool {
	switch c {
	case ConditionGTE, ConditionLTE, ConditionGT, ConditionLT, ConditionEQ:
		return true
	}
	return false
}

// AlertRule is a standing condition monitored for a city
type AlertRule struct {
	ID            int64      `json:"id"`
	City          string     `json:"city" validate:"required"`
	Country       string     `json:"country,omitempty"`
	AlertType     AlertType  `json:"alert_type" validate:"required,oneof=TEMPERATURE_HIGH TEMPERATURE_LOW RAIN SNOW STORM WIND_SPEED HUMIDITY"`
	Threshold     *float64   `json:"threshold_value,omitempty"`
	Condition     Condition  `json:"condition"`
	IsActive      bool       `json:"is_active"`
	CreatedDate   time.Time  `json:"created_date"`
	LastTriggered *time.Time `json:"last_triggered,omitempty"`
}

// AlertEvent records that a rule matched an observation. It is never modified after creation.
type AlertEvent struct {
	ID            int64         `json:"id,omitempty"`
	EventID       string        `json:"event_id"`
	RuleID        int64         `json:"rule_id"`
	City          string        `json:"city"`
	AlertType     AlertType     `json:"alert_type"`
	Severity      Severity      `json:"severity"`
	Message       string        `json:"message"`
	TriggeredDate time.Time     `json:"triggered_date"`
	WeatherData   WeatherRecord `json:"weather_data"`
}

// RuleSuggestion is an alert rule proposed from repeated outliers in a city's history
type RuleSuggestion struct {
	Rule         AlertRule `json:"rule"`
	Confidence   float64   `json:"confidence"` // 0-1
	Description  string    `json:"description"`
	OutlierCount int       `json:"outlier_count"`
	SuggestedAt  time.Time `json:"suggested_at"`
}

// ConditionIcon maps a free-text description to a weather emoji
func ConditionIcon(description string) string {
	desc := strings.ToLower(description)
	switch {
	case strings.Contains(desc, "cloud"):
		return "☁️"
	case strings.Contains(desc, "rain"):
		return "🌧️"
	case strings.Contains(desc, "clear"):
		return "☀️"
	case strings.Contains(desc, "snow"):
		return "❄️"
	case strings.Contains(desc, "storm"):
		return "⛈️"
	case strings.Contains(desc, "fog"), strings.Contains(desc, "mist"):
		return "🌫️"
	default:
		return "🌡️"
	}
}

// Place is a geocoded location
type Place struct {
	Name    string  `json:"name"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

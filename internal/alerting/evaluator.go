// Package alerting matches weather records against user alert rules.
package alerting

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"weatherdash/internal/metrics"
	"weatherdash/internal/models"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RuleStore is the part of the store the evaluator reads and writes
type RuleStore interface {
	ListRules(ctx context.Context, city string) ([]models.AlertRule, error)
	MarkRuleTriggered(ctx context.Context, id int64, at time.Time) error
	AppendAlertEvent(ctx context.Context, ev *models.AlertEvent) error
}

// Evaluator turns active rules into alert events for a record
type Evaluator struct {
	store RuleStore
	now   func() time.Time
	newID func() string
}

func NewEvaluator(store RuleStore) *Evaluator {
	return &Evaluator{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// SetClock replaces the source of trigger times
func (e *Evaluator) SetClock(now func() time.Time) {
	e.now = now
}

// Evaluate checks every active rule for rec.City and returns the events that
// fired, in rule order. Each event is written to alert history and its rule's
// last_triggered is updated; failures there are logged and do not stop the
// evaluation. An error is returned only when the rules cannot be loaded.
func (e *Evaluator) Evaluate(ctx context.Context, rec *models.WeatherRecord) ([]models.AlertEvent, error) {
	rules, err := e.store.ListRules(ctx, rec.City)
	if err != nil {
		return nil, fmt.Errorf("failed to load alert rules for %s: %w", rec.City, err)
	}

	now := e.now().UTC().Truncate(time.Second)
	var events []models.AlertEvent

	for _, rule := range rules {
		if !rule.IsActive || rule.City != rec.City {
			continue
		}

		severity, message, ok := check(rule, rec)
		if !ok {
			continue
		}

		ev := models.AlertEvent{
			EventID:       e.newID(),
			RuleID:        rule.ID,
			City:          rec.City,
			AlertType:     rule.AlertType,
			Severity:      severity,
			Message:       message,
			TriggeredDate: now,
			WeatherData:   *rec,
		}

		if err := e.store.AppendAlertEvent(ctx, &ev); err != nil {
			log.Printf("Failed to store alert event for rule %d: %v", rule.ID, err)
		}
		if err := e.store.MarkRuleTriggered(ctx, rule.ID, now); err != nil {
			log.Printf("Failed to update last_triggered for rule %d: %v", rule.ID, err)
		}

		metrics.RecordAlert(string(ev.AlertType), string(ev.Severity))
		events = append(events, ev)
	}

	if len(events) > 0 {
		log.Printf("✓ %d alert(s) triggered for %s", len(events), rec.City)
	}
	return events, nil
}

// check decides whether rule fires for rec and builds its severity and message
func check(rule models.AlertRule, rec *models.WeatherRecord) (models.Severity, string, bool) {
	switch rule.AlertType {
	case models.AlertTemperatureHigh, models.AlertTemperatureLow:
		if !hasThreshold(rule) || !evaluateCondition(rec.Temperature, rule.Condition, *rule.Threshold) {
			return "", "", false
		}
		label := "High"
		if rule.AlertType == models.AlertTemperatureLow {
			label = "Low"
		}
		msg := fmt.Sprintf("%s temperature alert: %s°F (threshold: %s°F)",
			label, formatValue(rec.Temperature), formatValue(*rule.Threshold))
		return severityFromDifference(rec.Temperature - *rule.Threshold), msg, true

	case models.AlertWindSpeed:
		if !hasThreshold(rule) || !evaluateCondition(rec.WindSpeed, rule.Condition, *rule.Threshold) {
			return "", "", false
		}
		msg := fmt.Sprintf("Wind speed alert: %s mph (threshold: %s mph)",
			formatValue(rec.WindSpeed), formatValue(*rule.Threshold))
		return models.SeverityLow, msg, true

	case models.AlertHumidity:
		humidity := float64(rec.Humidity)
		if !hasThreshold(rule) || !evaluateCondition(humidity, rule.Condition, *rule.Threshold) {
			return "", "", false
		}
		msg := fmt.Sprintf("Humidity alert: %s%% (threshold: %s%%)",
			formatValue(humidity), formatValue(*rule.Threshold))
		return models.SeverityLow, msg, true

	case models.AlertRain:
		if !descriptionContains(rec.Description, "rain") {
			return "", "", false
		}
		return models.SeverityMedium, "Rain alert: " + titleCase(rec.Description), true

	case models.AlertSnow:
		if !descriptionContains(rec.Description, "snow") {
			return "", "", false
		}
		return models.SeverityHigh, "Snow alert: " + titleCase(rec.Description), true

	case models.AlertStorm:
		if !descriptionContains(rec.Description, "storm", "thunder") {
			return "", "", false
		}
		return models.SeverityCritical, "Storm alert: " + titleCase(rec.Description), true
	}

	log.Printf("Warning: rule %d has unknown alert type %q", rule.ID, rule.AlertType)
	return "", "", false
}

func hasThreshold(rule models.AlertRule) bool {
	if rule.Threshold == nil {
		log.Printf("Warning: rule %d (%s) has no threshold, skipping", rule.ID, rule.AlertType)
		return false
	}
	return true
}

func evaluateCondition(value float64, condition models.Condition, threshold float64) bool {
	switch condition {
	case models.ConditionGT:
		return value > threshold
	case models.ConditionLT:
		return value < threshold
	case models.ConditionLTE:
		return value <= threshold
	case models.ConditionEQ:
		return value == threshold
	case models.ConditionGTE, "":
		return value >= threshold
	default:
		return false
	}
}

func descriptionContains(description string, words ...string) bool {
	desc := strings.ToLower(description)
	for _, w := range words {
		if strings.Contains(desc, w) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

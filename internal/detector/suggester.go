package detector

import (
	"fmt"
	"math"
	"sort"
	"time"

	"weatherdash/internal/models"
)

// RuleSuggester suggests alert rules based on repeated outliers
type RuleSuggester struct {
	minOutliersForSuggestion int
	now                      func() time.Time
}

func NewRuleSuggester() *RuleSuggester {
	return &RuleSuggester{
		minOutliersForSuggestion: 3,
		now:                      time.Now,
	}
}

// SuggestRules runs outlier detection over a city's history and returns
// rule drafts for it. Nothing is persisted.
func SuggestRules(city string, history []models.WeatherRecord) []models.RuleSuggestion {
	outliers, baselines := NewOutlierDetector().Detect(history)
	return NewRuleSuggester().Suggest(city, outliers, baselines)
}

type outlierGroup struct {
	metric Metric
	high   bool
}

// Suggest groups outliers by metric and direction and drafts a rule for each
// group with enough members. Suggestions are ordered by alert type.
func (rs *RuleSuggester) Suggest(city string, outliers []Outlier, baselines map[Metric]Baseline) []models.RuleSuggestion {
	if len(outliers) == 0 {
		return nil
	}

	groups := make(map[outlierGroup][]Outlier)
	byMetric := make(map[Metric][]float64)
	for _, o := range outliers {
		key := outlierGroup{metric: o.Metric, high: o.ZScore > 0}
		groups[key] = append(groups[key], o)
		byMetric[o.Metric] = append(byMetric[o.Metric], o.Value)
	}

	var suggestions []models.RuleSuggestion
	for key, group := range groups {
		if len(group) < rs.minOutliersForSuggestion {
			continue
		}
		baseline, ok := baselines[key.metric]
		if !ok {
			continue
		}
		if s := rs.generateSuggestion(city, key, group, baseline, byMetric[key.metric]); s != nil {
			suggestions = append(suggestions, *s)
		}
	}

	sort.Slice(suggestions, func(i, j int) bool {
		a, b := suggestions[i].Rule, suggestions[j].Rule
		if a.AlertType != b.AlertType {
			return a.AlertType < b.AlertType
		}
		return a.Condition < b.Condition
	})
	return suggestions
}

// generateSuggestion drafts a rule whose threshold sits at the edge of the
// normal band, mean ± 2σ of the baseline.
func (rs *RuleSuggester) generateSuggestion(city string, key outlierGroup, group []Outlier, baseline Baseline, metricValues []float64) *models.RuleSuggestion {
	var (
		alertType   models.AlertType
		condition   models.Condition
		threshold   float64
		description string
	)

	upper := baseline.Mean + 2*baseline.StdDev
	lower := baseline.Mean - 2*baseline.StdDev

	switch {
	case key.metric == MetricTemperature && key.high:
		alertType, condition, threshold = models.AlertTemperatureHigh, models.ConditionGT, upper
		description = fmt.Sprintf("Temperature repeatedly spiking above %.1f°F", upper)
	case key.metric == MetricTemperature:
		alertType, condition, threshold = models.AlertTemperatureLow, models.ConditionLT, lower
		description = fmt.Sprintf("Temperature repeatedly dropping below %.1f°F", lower)
	case key.metric == MetricHumidity && key.high:
		alertType, condition, threshold = models.AlertHumidity, models.ConditionGT, upper
		description = fmt.Sprintf("Humidity levels becoming excessive (above %.0f%%)", upper)
	case key.metric == MetricHumidity:
		alertType, condition, threshold = models.AlertHumidity, models.ConditionLT, lower
		description = fmt.Sprintf("Humidity levels dropping unusually low (below %.0f%%)", lower)
	case key.metric == MetricWindSpeed && key.high:
		alertType, condition, threshold = models.AlertWindSpeed, models.ConditionGT, upper
		description = fmt.Sprintf("Wind speed reaching unusual levels (above %.1f mph)", upper)
	default:
		return nil
	}

	confidence := rs.calculateConfidence(metricValues, threshold, condition)
	rounded := math.Round(threshold*10) / 10

	return &models.RuleSuggestion{
		Rule: models.AlertRule{
			City:      city,
			AlertType: alertType,
			Threshold: &rounded,
			Condition: condition,
			IsActive:  true,
		},
		Confidence:   confidence,
		Description:  description,
		OutlierCount: len(group),
		SuggestedAt:  rs.now(),
	}
}

// calculateConfidence is the share of a metric's outliers the suggested rule would catch (0 to 1)
func (rs *RuleSuggester) calculateConfidence(values []float64, threshold float64, condition models.Condition) float64 {
	if len(values) == 0 {
		return 0
	}

	triggeredCount := 0
	for _, v := range values {
		if condition == models.ConditionGT && v > threshold {
			triggeredCount++
		} else if condition == models.ConditionLT && v < threshold {
			triggeredCount++
		}
	}

	return float64(triggeredCount) / float64(len(values))
}

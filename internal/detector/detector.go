// Package detector finds outliers in a city's weather history and turns
// repeated ones into alert rule suggestions.
package detector

import (
	"log"
	"math"
	"time"

	"weatherdash/internal/models"
)

// DefaultZScoreThreshold is how many standard deviations from the mean a value must be to count as an outlier
const DefaultZScoreThreshold = 2.0

// Metric names a numeric field of a weather record
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricHumidity    Metric = "humidity"
	MetricWindSpeed   Metric = "wind_speed"
)

var DefaultMetrics = []Metric{MetricTemperature, MetricHumidity, MetricWindSpeed}

func (m Metric) value(rec models.WeatherRecord) float64 {
	switch m {
	case MetricTemperature:
		return rec.Temperature
	case MetricHumidity:
		return float64(rec.Humidity)
	case MetricWindSpeed:
		return rec.WindSpeed
	}
	return 0
}

// Outlier is one record whose metric value sits far from the city's norm
type Outlier struct {
	City      string          `json:"city"`
	Timestamp time.Time       `json:"timestamp"`
	Metric    Metric          `json:"metric"`
	Value     float64         `json:"value"`
	ZScore    float64         `json:"z_score"`
	Severity  models.Severity `json:"severity"`
}

// Baseline summarizes one metric over the analysed history
type Baseline struct {
	Mean    float64
	StdDev  float64
	Samples int
}

// OutlierDetector detects outliers in weather history using z-scores
type OutlierDetector struct {
	zScoreThreshold float64
	minSamples      int
	metrics         []Metric
}

func NewOutlierDetector() *OutlierDetector {
	return &OutlierDetector{
		zScoreThreshold: DefaultZScoreThreshold,
		minSamples:      3,
		metrics:         DefaultMetrics,
	}
}

// Detect computes a baseline per metric over history and returns every
// record beyond the z-score threshold. Metrics with too few samples or no
// variation are skipped and have no baseline.
func (d *OutlierDetector) Detect(history []models.WeatherRecord) ([]Outlier, map[Metric]Baseline) {
	var outliers []Outlier
	baselines := make(map[Metric]Baseline)

	for _, metric := range d.metrics {
		if len(history) < d.minSamples {
			log.Printf("Warning: not enough data for %s (%d samples)", metric, len(history))
			continue
		}

		values := make([]float64, len(history))
		for i, rec := range history {
			values[i] = metric.value(rec)
		}

		mean := calculateMean(values)
		stdDev := calculateStdDev(values, mean)
		if stdDev == 0 {
			continue
		}
		baselines[metric] = Baseline{Mean: mean, StdDev: stdDev, Samples: len(values)}

		for i, rec := range history {
			zScore := CalculateZScore(values[i], mean, stdDev)
			if math.Abs(zScore) <= d.zScoreThreshold {
				continue
			}
			outliers = append(outliers, Outlier{
				City:      rec.City,
				Timestamp: rec.Timestamp,
				Metric:    metric,
				Value:     values[i],
				ZScore:    zScore,
				Severity:  calculateSeverityFromZScore(zScore),
			})
		}
	}

	return outliers, baselines
}

// calculateSeverityFromZScore determines severity based on Z-score
func calculateSeverityFromZScore(zScore float64) models.Severity {
	absZScore := math.Abs(zScore)
	if absZScore > 4.0 {
		return models.SeverityCritical
	} else if absZScore > 3.0 {
		return models.SeverityHigh
	} else if absZScore > 2.5 {
		return models.SeverityMedium
	}
	return models.SeverityLow
}

// CalculateZScore calculates the Z-score for a value given mean and standard deviation
func CalculateZScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (value - mean) / stdDev
}

// IsOutlier checks if a Z-score is more than DefaultZScoreThreshold std devs from the mean
func IsOutlier(zScore float64) bool {
	return math.Abs(zScore) > DefaultZScoreThreshold
}

func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateStdDev is the sample standard deviation
func calculateStdDev(values []float64, mean float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

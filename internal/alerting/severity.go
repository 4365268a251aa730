package alerting

import (
	"math"

	"weatherdash/internal/models"
)

// severityFromDifference tiers how far a temperature is past its threshold.
// Each bound is inclusive.
func severityFromDifference(diff float64) models.Severity {
	absDiff := math.Abs(diff)
	if absDiff <= 5 {
		return models.SeverityLow
	} else if absDiff <= 10 {
		return models.SeverityMedium
	} else if absDiff <= 20 {
		return models.SeverityHigh
	}
	return models.SeverityCritical
}

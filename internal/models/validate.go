package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRule is returned when an alert rule cannot be created as given
var ErrInvalidRule = errors.New("invalid alert rule")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(alertRuleStructLevel, AlertRule{})
	return v
}

func alertRuleStructLevel(sl validator.StructLevel) {
	rule := sl.Current().Interface().(AlertRule)

	if rule.AlertType.RequiresThreshold() && rule.Threshold == nil {
		sl.ReportError(rule.Threshold, "Threshold", "threshold_value", "required_for_type", string(rule.AlertType))
	}
	if rule.Condition != "" && !rule.Condition.Valid() {
		sl.ReportError(rule.Condition, "Condition", "condition", "comparator", string(rule.Condition))
	}
}

// Validate checks the rule and fills in the default ">=" condition.
// Threshold-style rules must carry a threshold value.
func (r *AlertRule) Validate() error {
	r.City = strings.TrimSpace(r.City)
	r.Country = strings.TrimSpace(r.Country)
	if r.Condition == "" {
		r.Condition = ConditionGTE
	}

	if err := validate.Struct(*r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRule, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return nil
}

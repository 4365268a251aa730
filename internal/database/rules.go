package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"weatherdash/internal/models"
)

// AddRule validates and inserts a rule. Duplicate rules are allowed. On
// success rule.ID, rule.CreatedDate and rule.IsActive are set.
func (db *DB) AddRule(ctx context.Context, rule *models.AlertRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	db.rulesMu.Lock()
	defer db.rulesMu.Unlock()

	created := db.now().UTC().Truncate(time.Second)
	var threshold sql.NullFloat64
	if rule.Threshold != nil {
		threshold = sql.NullFloat64{Float64: *rule.Threshold, Valid: true}
	}

	res, err := db.exec(ctx, db.conn, "INSERT", "alert_rules",
		"INSERT INTO alert_rules (city, country, alert_type, threshold_value, `condition`, is_active, created_date) VALUES (?, ?, ?, ?, ?, 1, ?)",
		rule.City, nullString(rule.Country), string(rule.AlertType), threshold, string(rule.Condition), formatTime(created))
	if err != nil {
		return unavailable("failed to add alert rule", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return unavailable("failed to read alert rule id", err)
	}

	rule.ID = id
	rule.CreatedDate = created
	rule.IsActive = true
	return nil
}

// RemoveRule hard-deletes a rule, returning ErrNotFound if no row matched
func (db *DB) RemoveRule(ctx context.Context, id int64) error {
	db.rulesMu.Lock()
	defer db.rulesMu.Unlock()

	res, err := db.exec(ctx, db.conn, "DELETE", "alert_rules", "DELETE FROM alert_rules WHERE id = ?", id)
	if err != nil {
		return unavailable("failed to remove alert rule", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("failed to remove alert rule", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRules returns active rules in id order, limited to city when given
func (db *DB) ListRules(ctx context.Context, city string) ([]models.AlertRule, error) {
	query := "SELECT id, city, country, alert_type, threshold_value, `condition`, is_active, created_date, last_triggered FROM alert_rules WHERE is_active = 1"
	args := []interface{}{}
	if city != "" {
		query += " AND city = ?"
		args = append(args, city)
	}
	query += " ORDER BY id"

	rows, err := db.query(ctx, db.conn, "alert_rules", query, args...)
	if err != nil {
		return nil, unavailable("failed to list alert rules", err)
	}
	defer rows.Close()

	var rules []models.AlertRule
	for rows.Next() {
		var (
			r         models.AlertRule
			country   sql.NullString
			alertType string
			threshold sql.NullFloat64
			condition sql.NullString
			active    interface{}
			created   sql.NullString
			triggered sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.City, &country, &alertType, &threshold, &condition, &active, &created, &triggered); err != nil {
			return nil, unavailable("failed to scan alert rule", err)
		}
		r.Country = country.String
		r.AlertType = models.ParseAlertType(alertType)
		if threshold.Valid {
			v := threshold.Float64
			r.Threshold = &v
		}
		r.Condition = models.Condition(condition.String)
		if r.Condition == "" {
			r.Condition = models.ConditionGTE
		}
		r.IsActive = truthy(active)
		r.CreatedDate = parseTime(created.String)
		if triggered.Valid && triggered.String != "" {
			t := parseTime(triggered.String)
			r.LastTriggered = &t
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to list alert rules", err)
	}
	return rules, nil
}

// MarkRuleTriggered records when a rule last fired
func (db *DB) MarkRuleTriggered(ctx context.Context, id int64, at time.Time) error {
	db.rulesMu.Lock()
	defer db.rulesMu.Unlock()

	if _, err := db.exec(ctx, db.conn, "UPDATE", "alert_rules",
		"UPDATE alert_rules SET last_triggered = ? WHERE id = ?", formatTime(at), id); err != nil {
		return unavailable("failed to update last_triggered", err)
	}
	return nil
}

// truthy reads is_active from both integer and legacy boolean columns
func truthy(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case float64:
		return b != 0
	case []byte:
		return truthyString(string(b))
	case string:
		return truthyString(b)
	}
	return false
}

func truthyString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes":
		return true
	}
	return false
}

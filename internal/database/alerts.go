package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"weatherdash/internal/models"

	"github.com/google/uuid"
)

// DefaultAlertHistoryLimit caps AlertHistory when no limit is given
const DefaultAlertHistoryLimit = 50

// AppendAlertEvent stores a triggered alert with a JSON snapshot of its record.
// An event without an id is given one.
func (db *DB) AppendAlertEvent(ctx context.Context, ev *models.AlertEvent) error {
	snapshot, err := json.Marshal(ev.WeatherData)
	if err != nil {
		return fmt.Errorf("failed to encode weather snapshot: %w", err)
	}

	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}

	db.alertsMu.Lock()
	defer db.alertsMu.Unlock()

	res, err := db.exec(ctx, db.conn, "INSERT", "alert_history",
		`INSERT INTO alert_history (rule_id, event_id, city, alert_type, severity, message, triggered_date, weather_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RuleID, ev.EventID, ev.City, string(ev.AlertType), string(ev.Severity), ev.Message,
		formatTime(ev.TriggeredDate), string(snapshot))
	if err != nil {
		return unavailable("failed to insert alert event", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return unavailable("failed to read alert event id", err)
	}
	ev.ID = id
	return nil
}

// AlertHistory returns up to limit events, newest first, for city or for all
// cities when city is empty
func (db *DB) AlertHistory(ctx context.Context, city string, limit int) ([]models.AlertEvent, error) {
	if limit <= 0 {
		limit = DefaultAlertHistoryLimit
	}

	query := `SELECT id, rule_id, event_id, city, alert_type, severity, message, triggered_date, weather_data FROM alert_history`
	args := []interface{}{}
	if city != "" {
		query += ` WHERE city = ?`
		args = append(args, city)
	}
	query += ` ORDER BY triggered_date DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.query(ctx, db.conn, "alert_history", query, args...)
	if err != nil {
		return nil, unavailable("failed to query alert history", err)
	}
	defer rows.Close()

	var events []models.AlertEvent
	for rows.Next() {
		var (
			ev        models.AlertEvent
			alertType string
			severity  string
			message   sql.NullString
			triggered sql.NullString
			snapshot  sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.RuleID, &ev.EventID, &ev.City, &alertType, &severity,
			&message, &triggered, &snapshot); err != nil {
			return nil, unavailable("failed to scan alert event", err)
		}
		ev.AlertType = models.ParseAlertType(alertType)
		ev.Severity = models.ParseSeverity(severity)
		ev.Message = message.String
		ev.TriggeredDate = parseTime(triggered.String)
		if snapshot.String != "" {
			if err := json.Unmarshal([]byte(snapshot.String), &ev.WeatherData); err != nil {
				log.Printf("Warning: alert event %d has unreadable weather snapshot: %v", ev.ID, err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to query alert history", err)
	}
	return events, nil
}

// PurgeAlertsBefore deletes events triggered before cutoff and returns the count
func (db *DB) PurgeAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	db.alertsMu.Lock()
	defer db.alertsMu.Unlock()

	res, err := db.exec(ctx, db.conn, "DELETE", "alert_history",
		"DELETE FROM alert_history WHERE triggered_date < ?", formatTime(cutoff))
	if err != nil {
		return 0, unavailable("failed to purge alert history", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("failed to purge alert history", err)
	}
	return n, nil
}

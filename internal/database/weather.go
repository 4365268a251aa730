package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"weatherdash/internal/metrics"
	"weatherdash/internal/models"
)

const weatherColumns = `id, city, country, COALESCE(state, ''), temperature, COALESCE(feels_like, 0),
	COALESCE(temp_high, 0), COALESCE(temp_low, 0), COALESCE(humidity, 0), COALESCE(precipitation, 0),
	COALESCE(pressure, 0), COALESCE(wind_speed, 0), COALESCE(wind_direction, 0), COALESCE(visibility, 0),
	COALESCE(sunrise, ''), COALESCE(sunset, ''), COALESCE(day_length, ''), COALESCE(description, ''), timestamp`

// Append writes rec to history and points "latest" at it in one transaction.
// On success rec.ID is set, and rec.Timestamp is raised to the previous
// append's timestamp if it was earlier.
func (db *DB) Append(ctx context.Context, rec *models.WeatherRecord) error {
	if strings.TrimSpace(rec.City) == "" || strings.TrimSpace(rec.Country) == "" {
		return ErrInvalidRecord
	}

	db.historyMu.Lock()
	defer db.historyMu.Unlock()

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = db.now()
	}
	if ts.Before(db.lastTimestamp) {
		ts = db.lastTimestamp
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("failed to begin transaction", err)
	}
	defer tx.Rollback()

	res, err := db.exec(ctx, tx, "INSERT", "weather", `INSERT INTO weather
		(city, country, state, temperature, feels_like, temp_high, temp_low, humidity, precipitation,
		pressure, wind_speed, wind_direction, visibility, sunrise, sunset, day_length, description, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.City, rec.Country, rec.State, rec.Temperature, rec.FeelsLike, rec.TempHigh, rec.TempLow,
		rec.Humidity, rec.Precipitation, rec.Pressure, rec.WindSpeed, rec.WindDirection, rec.Visibility,
		rec.Sunrise, rec.Sunset, rec.DayLength, rec.Description, formatTime(ts))
	if err != nil {
		return unavailable("failed to insert weather record", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return unavailable("failed to read weather record id", err)
	}

	if _, err := db.exec(ctx, tx, "DELETE", "weather_latest", "DELETE FROM weather_latest"); err != nil {
		return unavailable("failed to clear latest pointer", err)
	}
	if _, err := db.exec(ctx, tx, "INSERT", "weather_latest",
		"INSERT INTO weather_latest (id, history_id) VALUES (1, ?)", id); err != nil {
		return unavailable("failed to update latest pointer", err)
	}

	if err := tx.Commit(); err != nil {
		return unavailable("failed to commit weather record", err)
	}

	db.lastTimestamp = ts
	rec.ID = id
	rec.Timestamp = ts.UTC().Truncate(time.Second)
	return nil
}

// Latest returns the most recently appended record, or ErrNotFound when
// history is empty. Files written before the latest pointer existed fall
// back to the highest id.
func (db *DB) Latest(ctx context.Context) (*models.WeatherRecord, error) {
	var historyID int64
	queryStart := time.Now()
	err := db.conn.QueryRowContext(ctx, "SELECT history_id FROM weather_latest WHERE id = 1").Scan(&historyID)
	metrics.RecordDBQuery("SELECT", "weather_latest", time.Since(queryStart), ignoreNoRows(err))

	var rows *sql.Rows
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rows, err = db.query(ctx, db.conn, "weather", `SELECT `+weatherColumns+` FROM weather ORDER BY id DESC LIMIT 1`)
	case err != nil:
		return nil, unavailable("failed to read latest pointer", err)
	default:
		rows, err = db.query(ctx, db.conn, "weather", `SELECT `+weatherColumns+` FROM weather WHERE id = ?`, historyID)
	}
	if err != nil {
		return nil, unavailable("failed to load latest weather", err)
	}

	records, err := scanWeather(rows)
	if err != nil {
		return nil, unavailable("failed to load latest weather", err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

// History returns up to limit records, newest first. An empty city returns
// every city.
func (db *DB) History(ctx context.Context, city string, limit int) ([]models.WeatherRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + weatherColumns + ` FROM weather`
	args := []interface{}{}
	if city != "" {
		query += ` WHERE city = ?`
		args = append(args, city)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.query(ctx, db.conn, "weather", query, args...)
	if err != nil {
		return nil, unavailable("failed to query weather history", err)
	}
	records, err := scanWeather(rows)
	if err != nil {
		return nil, unavailable("failed to scan weather history", err)
	}
	return records, nil
}

func scanWeather(rows *sql.Rows) ([]models.WeatherRecord, error) {
	defer rows.Close()

	var records []models.WeatherRecord
	for rows.Next() {
		var r models.WeatherRecord
		var city, country sql.NullString
		var temperature sql.NullFloat64
		var ts sql.NullString
		err := rows.Scan(&r.ID, &city, &country, &r.State, &temperature, &r.FeelsLike,
			&r.TempHigh, &r.TempLow, &r.Humidity, &r.Precipitation,
			&r.Pressure, &r.WindSpeed, &r.WindDirection, &r.Visibility,
			&r.Sunrise, &r.Sunset, &r.DayLength, &r.Description, &ts)
		if err != nil {
			return nil, err
		}
		r.City = city.String
		r.Country = country.String
		r.Temperature = temperature.Float64
		r.Timestamp = parseTime(ts.String)
		records = append(records, r)
	}
	return records, rows.Err()
}

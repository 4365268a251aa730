package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"weatherdash/internal/models"

	"github.com/google/uuid"
)

// legacyLocation is the zone older versions wrote wall-clock timestamps in.
// They stamped rows with the machine's local time and no offset.
var legacyLocation = time.Local

// legacyFavoritesTable is the name older versions gave the favorites table
const legacyFavoritesTable = "favorites"

// upgradeLegacyData rewrites rows left by older versions into the current
// conventions. Each step only touches rows it has not converted yet, so it
// is safe to run on every open.
func (db *DB) upgradeLegacyData(ctx context.Context) error {
	if _, err := db.exec(ctx, db.conn, "UPDATE", "alert_rules",
		"UPDATE alert_rules SET alert_type = UPPER(alert_type) WHERE alert_type <> UPPER(alert_type)"); err != nil {
		return fmt.Errorf("failed to normalize alert rule types: %w", err)
	}

	n, err := db.upgradeLegacyAlerts(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("✓ Converted %d legacy alert event(s)", n)
	}

	n, err = db.importLegacyFavorites(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("✓ Imported %d favorite(s) from the %s table", n, legacyFavoritesTable)
	}
	return nil
}

type legacyAlert struct {
	id        int64
	alertType string
	severity  string
	triggered string
}

// upgradeLegacyAlerts gives alert events written without an event id a UUID,
// upper-case enum values and a UTC triggered_date so they sort and purge
// alongside new events.
func (db *DB) upgradeLegacyAlerts(ctx context.Context) (int, error) {
	rows, err := db.query(ctx, db.conn, "alert_history",
		"SELECT id, alert_type, severity, triggered_date FROM alert_history WHERE event_id = ''")
	if err != nil {
		return 0, fmt.Errorf("failed to read legacy alert events: %w", err)
	}

	var pending []legacyAlert
	for rows.Next() {
		var (
			a         legacyAlert
			triggered sql.NullString
		)
		if err := rows.Scan(&a.id, &a.alertType, &a.severity, &triggered); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan legacy alert event: %w", err)
		}
		a.triggered = triggered.String
		pending = append(pending, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read legacy alert events: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin legacy alert conversion: %w", err)
	}
	defer tx.Rollback()

	for _, a := range pending {
		triggered := parseTimeIn(a.triggered, legacyLocation)
		if _, err := db.exec(ctx, tx, "UPDATE", "alert_history",
			"UPDATE alert_history SET alert_type = ?, severity = ?, triggered_date = ?, event_id = ? WHERE id = ?",
			string(models.ParseAlertType(a.alertType)), string(models.ParseSeverity(a.severity)),
			formatTime(triggered), uuid.NewString(), a.id); err != nil {
			return 0, fmt.Errorf("failed to convert alert event %d: %w", a.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit legacy alert conversion: %w", err)
	}
	return len(pending), nil
}

// importLegacyFavorites copies a favorites table from an older version into
// favorite_cities, then renames it so the copy happens once.
func (db *DB) importLegacyFavorites(ctx context.Context) (int, error) {
	cols, err := db.columns(ctx, legacyFavoritesTable)
	if err != nil {
		return 0, err
	}
	if !cols["city"] {
		return 0, nil
	}

	rows, err := db.query(ctx, db.conn, legacyFavoritesTable,
		"SELECT city, country, added_date FROM "+legacyFavoritesTable+" ORDER BY id")
	if err != nil {
		return 0, fmt.Errorf("failed to read legacy favorites: %w", err)
	}

	var favorites []models.FavoriteCity
	for rows.Next() {
		var country, added sql.NullString
		var fav models.FavoriteCity
		if err := rows.Scan(&fav.City, &country, &added); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan legacy favorite: %w", err)
		}
		fav.Country = country.String
		fav.AddedDate = parseTimeIn(added.String, legacyLocation)
		favorites = append(favorites, fav)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read legacy favorites: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin favorites import: %w", err)
	}
	defer tx.Rollback()

	imported := 0
	for _, fav := range favorites {
		var exists int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM favorite_cities WHERE city = ? AND (country = ? OR (country IS NULL AND ? IS NULL))",
			fav.City, nullString(fav.Country), nullString(fav.Country)).Scan(&exists); err != nil {
			return 0, fmt.Errorf("failed to check favorite %s: %w", fav.City, err)
		}
		if exists > 0 {
			continue
		}
		if _, err := db.exec(ctx, tx, "INSERT", "favorite_cities",
			"INSERT INTO favorite_cities (city, country, added_date) VALUES (?, ?, ?)",
			fav.City, nullString(fav.Country), formatTime(fav.AddedDate)); err != nil {
			return 0, fmt.Errorf("failed to import favorite %s: %w", fav.City, err)
		}
		imported++
	}

	if _, err := db.exec(ctx, tx, "ALTER", legacyFavoritesTable,
		"ALTER TABLE "+legacyFavoritesTable+" RENAME TO "+legacyFavoritesTable+"_imported"); err != nil {
		return 0, fmt.Errorf("failed to retire legacy favorites table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit favorites import: %w", err)
	}
	return imported, nil
}

package database

import (
	"context"
	"database/sql"
	"strings"

	"weatherdash/internal/models"
)

// an absent country only ever matches another absent country
const favoriteMatch = `city = ? AND (country = ? OR (country IS NULL AND ? IS NULL))`

// AddFavorite bookmarks a city. It reports false without error when the
// (city, country) pair is already present.
func (db *DB) AddFavorite(ctx context.Context, city, country string) (bool, error) {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	if city == "" {
		return false, ErrInvalidRecord
	}

	db.favoritesMu.Lock()
	defer db.favoritesMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, unavailable("failed to begin transaction", err)
	}
	defer tx.Rollback()

	exists, err := db.favoriteExists(ctx, tx, city, country)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if _, err := db.exec(ctx, tx, "INSERT", "favorite_cities",
		"INSERT INTO favorite_cities (city, country, added_date) VALUES (?, ?, ?)",
		city, nullString(country), formatTime(db.now())); err != nil {
		return false, unavailable("failed to add favorite", err)
	}

	if err := tx.Commit(); err != nil {
		return false, unavailable("failed to commit favorite", err)
	}
	return true, nil
}

// RemoveFavorite deletes the matching favorite and reports whether one existed
func (db *DB) RemoveFavorite(ctx context.Context, city, country string) (bool, error) {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)

	db.favoritesMu.Lock()
	defer db.favoritesMu.Unlock()

	c := nullString(country)
	res, err := db.exec(ctx, db.conn, "DELETE", "favorite_cities",
		"DELETE FROM favorite_cities WHERE "+favoriteMatch, city, c, c)
	if err != nil {
		return false, unavailable("failed to remove favorite", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("failed to remove favorite", err)
	}
	return n > 0, nil
}

// ListFavorites returns every favorite, most recently added first
func (db *DB) ListFavorites(ctx context.Context) ([]models.FavoriteCity, error) {
	rows, err := db.query(ctx, db.conn, "favorite_cities",
		"SELECT id, city, country, added_date FROM favorite_cities ORDER BY added_date DESC, id DESC")
	if err != nil {
		return nil, unavailable("failed to list favorites", err)
	}
	defer rows.Close()

	var favorites []models.FavoriteCity
	for rows.Next() {
		var f models.FavoriteCity
		var country, added sql.NullString
		if err := rows.Scan(&f.ID, &f.City, &country, &added); err != nil {
			return nil, unavailable("failed to scan favorite", err)
		}
		f.Country = country.String
		f.AddedDate = parseTime(added.String)
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to list favorites", err)
	}
	return favorites, nil
}

func (db *DB) IsFavorite(ctx context.Context, city, country string) (bool, error) {
	return db.favoriteExists(ctx, db.conn, strings.TrimSpace(city), strings.TrimSpace(country))
}

// ClearFavorites removes every favorite and returns how many were deleted
func (db *DB) ClearFavorites(ctx context.Context) (int64, error) {
	db.favoritesMu.Lock()
	defer db.favoritesMu.Unlock()

	res, err := db.exec(ctx, db.conn, "DELETE", "favorite_cities", "DELETE FROM favorite_cities")
	if err != nil {
		return 0, unavailable("failed to clear favorites", err)
	}
	return res.RowsAffected()
}

func (db *DB) favoriteExists(ctx context.Context, ex execer, city, country string) (bool, error) {
	c := nullString(country)
	rows, err := db.query(ctx, ex, "favorite_cities",
		"SELECT COUNT(*) FROM favorite_cities WHERE "+favoriteMatch, city, c, c)
	if err != nil {
		return false, unavailable("failed to check favorite", err)
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return false, unavailable("failed to check favorite", err)
		}
	}
	return count > 0, rows.Err()
}

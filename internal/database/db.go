package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"weatherdash/internal/metrics"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"

	// DefaultPath is used when the sqlite driver is given no path
	DefaultPath = "data/weather.db"
)

var (
	// ErrStoreUnavailable wraps any failure to open, read or write the store
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound is returned when a lookup or delete matched nothing
	ErrNotFound = errors.New("not found")
	// ErrInvalidRecord is returned for writes missing required identity fields
	ErrInvalidRecord = errors.New("invalid record")
)

// timeLayout is shared by every timestamp column so they sort as text
const timeLayout = "2006-01-02 15:04:05"

// DB is the durable store for weather history, favorites, alert rules and
// alert history. Writes to each collection are serialized independently.
type DB struct {
	conn    *sql.DB
	dialect dialect
	now     func() time.Time

	historyMu   sync.Mutex
	favoritesMu sync.Mutex
	rulesMu     sync.Mutex
	alertsMu    sync.Mutex

	// lastTimestamp keeps appends non-decreasing within this process
	lastTimestamp time.Time
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// NewDB opens the store and brings its schema up to date.
// For sqlite3 the dsn is a file path (parent directories are created);
// for mysql it is "username:password@tcp(host:port)/dbname".
func NewDB(driver, dsn string) (*DB, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		if dsn == "" {
			dsn = DefaultPath
		}
		if dir := filepath.Dir(dsn); dir != "." && dsn != ":memory:" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("%w: failed to create database directory: %w", ErrStoreUnavailable, err)
			}
		}
		log.Printf("Opening database at %s", dsn)
		if !strings.Contains(dsn, "?") {
			dsn += "?_busy_timeout=5000"
		}
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrStoreUnavailable, err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", ErrStoreUnavailable, err)
	}

	if driver == DriverSQLite {
		// sqlite allows a single writer
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	db := &DB{conn: conn, dialect: d, now: time.Now}

	if err := db.initSchema(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: failed to initialize schema: %w", ErrStoreUnavailable, err)
	}

	db.reportStats()
	return db, nil
}

// SetClock replaces the time source used for created/added dates
func (db *DB) SetClock(now func() time.Time) {
	db.now = now
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *DB) reportStats() {
	stats := db.conn.Stats()
	metrics.UpdateDBConnectionStats(stats.OpenConnections, stats.InUse, stats.Idle)
}

func (db *DB) exec(ctx context.Context, ex execer, queryType, table, query string, args ...interface{}) (sql.Result, error) {
	queryStart := time.Now()
	res, err := ex.ExecContext(ctx, query, args...)
	metrics.RecordDBQuery(queryType, table, time.Since(queryStart), err)
	return res, err
}

func (db *DB) query(ctx context.Context, ex execer, table, query string, args ...interface{}) (*sql.Rows, error) {
	queryStart := time.Now()
	rows, err := ex.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("SELECT", table, time.Since(queryStart), err)
	return rows, err
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

var parseLayouts = []string{
	timeLayout,
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05.999999",
	time.RFC3339Nano,
	"2006-01-02",
}

// parseTime reads timestamps written by this store and by older versions of it
func parseTime(s string) time.Time {
	return parseTimeIn(s, time.UTC)
}

// parseTimeIn reads s as wall-clock time in loc unless it carries its own offset
func parseTimeIn(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC()
		}
	}
	log.Printf("Warning: unparseable timestamp %q", s)
	return time.Time{}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

package database

import (
	"context"
	"fmt"
	"log"
	"strings"
)

type columnKind int

const (
	kindText columnKind = iota
	kindLongText
	kindReal
	kindInt
	kindTime
)

// column describes one field. Every column except the id carries a default
// so it can be added to an existing table without touching old rows.
type column struct {
	name    string
	kind    columnKind
	notNull bool
	def     string
}

type index struct {
	name    string
	columns string
}

type table struct {
	name        string
	columns     []column
	constraints []string
	indexes     []index
}

// tables is the current schema. Columns may be appended over time; they are
// never renamed or removed.
var tables = []table{
	{
		name: "weather",
		columns: []column{
			{name: "city", kind: kindText, notNull: true, def: "''"},
			{name: "country", kind: kindText, notNull: true, def: "''"},
			{name: "temperature", kind: kindReal, notNull: true, def: "0"},
			{name: "description", kind: kindText, notNull: true, def: "''"},
			{name: "timestamp", kind: kindTime, notNull: true, def: "''"},
			{name: "state", kind: kindText, notNull: true, def: "''"},
			{name: "feels_like", kind: kindReal, notNull: true, def: "0"},
			{name: "temp_high", kind: kindReal, notNull: true, def: "0"},
			{name: "temp_low", kind: kindReal, notNull: true, def: "0"},
			{name: "humidity", kind: kindInt, notNull: true, def: "0"},
			{name: "precipitation", kind: kindReal, notNull: true, def: "0"},
			{name: "pressure", kind: kindReal, notNull: true, def: "0"},
			{name: "wind_speed", kind: kindReal, notNull: true, def: "0"},
			{name: "wind_direction", kind: kindInt, notNull: true, def: "0"},
			{name: "visibility", kind: kindReal, notNull: true, def: "0"},
			{name: "sunrise", kind: kindText, notNull: true, def: "''"},
			{name: "sunset", kind: kindText, notNull: true, def: "''"},
			{name: "day_length", kind: kindText, notNull: true, def: "''"},
		},
		indexes: []index{{name: "idx_weather_city", columns: "city"}},
	},
	{
		name: "weather_latest",
		columns: []column{
			{name: "history_id", kind: kindInt, notNull: true, def: "0"},
		},
	},
	{
		name: "favorite_cities",
		columns: []column{
			{name: "city", kind: kindText, notNull: true, def: "''"},
			{name: "country", kind: kindText},
			{name: "added_date", kind: kindTime, notNull: true, def: "''"},
		},
		constraints: []string{"UNIQUE(city, country)"},
	},
	{
		name: "alert_rules",
		columns: []column{
			{name: "city", kind: kindText, notNull: true, def: "''"},
			{name: "country", kind: kindText},
			{name: "alert_type", kind: kindText, notNull: true, def: "''"},
			{name: "threshold_value", kind: kindReal},
			{name: "`condition`", kind: kindText, notNull: true, def: "'>='"},
			{name: "is_active", kind: kindInt, notNull: true, def: "1"},
			{name: "created_date", kind: kindTime, notNull: true, def: "''"},
			{name: "last_triggered", kind: kindTime},
		},
		indexes: []index{{name: "idx_alert_rules_city", columns: "city"}},
	},
	{
		name: "alert_history",
		columns: []column{
			{name: "city", kind: kindText, notNull: true, def: "''"},
			{name: "alert_type", kind: kindText, notNull: true, def: "''"},
			{name: "severity", kind: kindText, notNull: true, def: "''"},
			{name: "message", kind: kindLongText},
			{name: "triggered_date", kind: kindTime, notNull: true, def: "''"},
			{name: "weather_data", kind: kindLongText},
			{name: "rule_id", kind: kindInt, notNull: true, def: "0"},
			{name: "event_id", kind: kindText, notNull: true, def: "''"},
		},
		indexes: []index{
			{name: "idx_alert_history_city", columns: "city"},
			{name: "idx_alert_history_triggered", columns: "triggered_date"},
		},
	},
}

// dialect holds the few places sqlite and mysql disagree
type dialect struct {
	name         string
	primaryKey   string
	tableSuffix  string
	inlineIndex  bool
	columnsQuery string
	types        map[columnKind]string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		name:         DriverSQLite,
		primaryKey:   "id INTEGER PRIMARY KEY AUTOINCREMENT",
		columnsQuery: "SELECT name FROM pragma_table_info(?)",
		types: map[columnKind]string{
			kindText:     "TEXT",
			kindLongText: "TEXT",
			kindReal:     "REAL",
			kindInt:      "INTEGER",
			kindTime:     "TEXT",
		},
	},
	DriverMySQL: {
		name:         DriverMySQL,
		primaryKey:   "id BIGINT AUTO_INCREMENT PRIMARY KEY",
		tableSuffix:  " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
		inlineIndex:  true,
		columnsQuery: "SELECT column_name FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ?",
		types: map[columnKind]string{
			kindText:     "VARCHAR(255)",
			kindLongText: "TEXT",
			kindReal:     "DOUBLE",
			kindInt:      "BIGINT",
			kindTime:     "VARCHAR(32)",
		},
	},
}

func dialectFor(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
	return d, nil
}

func (d dialect) columnDef(c column) string {
	def := c.name + " " + d.types[c.kind]
	if c.notNull {
		def += " NOT NULL"
	}
	if c.def != "" {
		def += " DEFAULT " + c.def
	}
	return def
}

func (d dialect) createTable(t table) []string {
	parts := []string{d.primaryKey}
	for _, c := range t.columns {
		parts = append(parts, d.columnDef(c))
	}
	parts = append(parts, t.constraints...)

	var stmts []string
	if d.inlineIndex {
		for _, idx := range t.indexes {
			parts = append(parts, fmt.Sprintf("INDEX %s (%s)", idx.name, idx.columns))
		}
	}
	stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)%s",
		t.name, strings.Join(parts, ",\n\t"), d.tableSuffix))

	if !d.inlineIndex {
		for _, idx := range t.indexes {
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", idx.name, t.name, idx.columns))
		}
	}
	return stmts
}

// initSchema creates missing tables, adds any columns an older schema lacks
// and converts rows older versions wrote
func (db *DB) initSchema(ctx context.Context) error {
	for _, t := range tables {
		for _, stmt := range db.dialect.createTable(t) {
			if _, err := db.exec(ctx, db.conn, "CREATE", t.name, stmt); err != nil {
				return fmt.Errorf("failed to execute schema statement: %w", err)
			}
		}
	}

	for _, t := range tables {
		added, err := db.migrateTable(ctx, t)
		if err != nil {
			return fmt.Errorf("failed to migrate %s: %w", t.name, err)
		}
		if len(added) > 0 {
			log.Printf("✓ Migrated %s: added %s", t.name, strings.Join(added, ", "))
		}
	}
	return db.upgradeLegacyData(ctx)
}

// migrateTable adds every declared column missing from the live table
func (db *DB) migrateTable(ctx context.Context, t table) ([]string, error) {
	existing, err := db.columns(ctx, t.name)
	if err != nil {
		return nil, err
	}

	var added []string
	for _, c := range t.columns {
		name := strings.Trim(c.name, "`")
		if existing[strings.ToLower(name)] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", t.name, db.dialect.columnDef(c))
		if _, err := db.exec(ctx, db.conn, "ALTER", t.name, stmt); err != nil {
			return added, fmt.Errorf("failed to add column %s: %w", name, err)
		}
		added = append(added, name)
	}
	return added, nil
}

func (db *DB) columns(ctx context.Context, tableName string) (map[string]bool, error) {
	rows, err := db.query(ctx, db.conn, tableName, db.dialect.columnsQuery, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

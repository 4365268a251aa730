package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

const (
	defaultMySQLHost     = "localhost"
	defaultMySQLPort     = 3306
	defaultMySQLUser     = "weatherdash"
	defaultMySQLDatabase = "weatherdash"
)

// MySQLConfig is storage.mysql. A non-empty DSN is used as is; otherwise
// the connection string is assembled from the remaining fields.
type MySQLConfig struct {
	DSN      string            `yaml:"dsn"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	User     string            `yaml:"user"`
	Password string            `yaml:"password"`
	Database string            `yaml:"database"`
	Params   map[string]string `yaml:"params"`
}

func (m *MySQLConfig) applyDefaults() {
	if m.Host == "" {
		m.Host = defaultMySQLHost
	}
	if m.Port == 0 {
		m.Port = defaultMySQLPort
	}
	if m.User == "" {
		m.User = defaultMySQLUser
	}
	if m.Database == "" {
		m.Database = defaultMySQLDatabase
	}
}

// applyEnv lets DATABASE_DSN replace the whole connection string and
// DB_HOST, DB_PORT, DB_USER, DB_PASSWORD and DB_NAME override single fields
func (m *MySQLConfig) applyEnv() {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		m.DSN = dsn
	}
	m.Host = getEnv("DB_HOST", m.Host)
	if port, err := strconv.Atoi(os.Getenv("DB_PORT")); err == nil {
		m.Port = port
	}
	m.User = getEnv("DB_USER", m.User)
	m.Password = getEnv("DB_PASSWORD", m.Password)
	m.Database = getEnv("DB_NAME", m.Database)
}

func (m MySQLConfig) validate() error {
	if m.DSN != "" {
		if _, err := mysql.ParseDSN(m.DSN); err != nil {
			return fmt.Errorf("storage.mysql.dsn is invalid: %w", err)
		}
		return nil
	}
	if m.Port < 1 || m.Port > 65535 {
		return fmt.Errorf("storage.mysql.port must be between 1 and 65535, got %d", m.Port)
	}
	return nil
}

// FormatDSN returns the go-sql-driver connection string, always with parseTime enabled
func (m MySQLConfig) FormatDSN() string {
	if m.DSN != "" {
		return m.DSN
	}

	cfg := mysql.NewConfig()
	cfg.User = m.User
	cfg.Passwd = m.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
	cfg.DBName = m.Database
	cfg.ParseTime = true
	if len(m.Params) > 0 {
		cfg.Params = m.Params
	}
	return cfg.FormatDSN()
}

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultUnits             = "imperial"
	defaultDriver            = "sqlite3"
	defaultDatabasePath      = "data/weather.db"
	defaultRetentionDays     = 30
	defaultRetentionSchedule = "@daily"
	defaultServerAddr        = ":8080"
	defaultAPITimeoutSeconds = 10
	defaultMaxMemoryHistory  = 1000
)

var (
	instance *Config
	once     sync.Once
)

type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type StorageConfig struct {
	Driver           string `yaml:"driver"`
	Path             string `yaml:"path"`
	HistoryCSV       string `yaml:"history_csv"`
	MaxMemoryHistory int    `yaml:"max_memory_history"`

	MySQL MySQLConfig `yaml:"mysql"`
}

type AlertsConfig struct {
	RetentionDays     int    `yaml:"retention_days"`
	RetentionSchedule string `yaml:"retention_schedule"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config - values from config.yaml, with .env and environment overrides applied
type Config struct {
	Units    string        `yaml:"units"`
	Timezone string        `yaml:"timezone"`
	API      APIConfig     `yaml:"api"`
	Storage  StorageConfig `yaml:"storage"`
	Alerts   AlertsConfig  `yaml:"alerts"`
	Redis    struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"redis"`
	Server ServerConfig `yaml:"server"`
}

// Load reads configPath once per process. A .env file in the working
// directory is loaded first if present; OPENWEATHER_API_KEY overrides
// api.api_key.
func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		instance = &Config{}

		if envErr := godotenv.Load(); envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
			log.Printf("Warning: failed to load .env: %v", envErr)
		}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file %s: %w", configPath, readErr)
			return
		}

		if parseErr := yaml.Unmarshal(data, instance); parseErr != nil {
			err = fmt.Errorf("failed to parse config: %w", parseErr)
			return
		}

		instance.applyDefaults()
		instance.applyEnv()

		if validateErr := instance.validate(); validateErr != nil {
			err = validateErr
			return
		}
	})

	return instance, err
}

func Get() *Config {
	if instance == nil {
		panic("config not loaded - call config.Load() first")
	}
	return instance
}

// Default returns a config with every default applied, for running without a config file
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	c.applyEnv()
	return c
}

func (c *Config) applyDefaults() {
	if c.Units == "" {
		c.Units = defaultUnits
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = defaultAPITimeoutSeconds
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = defaultDriver
	}
	if c.Storage.Driver == defaultDriver && c.Storage.Path == "" {
		c.Storage.Path = defaultDatabasePath
	}
	c.Storage.MySQL.applyDefaults()
	if c.Storage.MaxMemoryHistory <= 0 {
		c.Storage.MaxMemoryHistory = defaultMaxMemoryHistory
	}
	if c.Alerts.RetentionDays == 0 {
		c.Alerts.RetentionDays = defaultRetentionDays
	}
	if c.Alerts.RetentionSchedule == "" {
		c.Alerts.RetentionSchedule = defaultRetentionSchedule
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultServerAddr
	}
}

func (c *Config) applyEnv() {
	if key := os.Getenv("OPENWEATHER_API_KEY"); key != "" {
		c.API.APIKey = key
	}
	c.Storage.MySQL.applyEnv()
}

// DatabaseDSN is the file path for sqlite3, or the storage.mysql connection string for mysql
func (c *Config) DatabaseDSN() string {
	if c.Storage.Driver == "mysql" {
		return c.Storage.MySQL.FormatDSN()
	}
	return c.Storage.Path
}

func (c *Config) validate() error {
	switch c.Units {
	case "imperial", "metric", "standard":
	default:
		return fmt.Errorf("units must be imperial, metric or standard, got %q", c.Units)
	}
	switch c.Storage.Driver {
	case "sqlite3", "mysql":
	default:
		return fmt.Errorf("storage.driver must be sqlite3 or mysql, got %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "mysql" {
		if err := c.Storage.MySQL.validate(); err != nil {
			return err
		}
	}
	if c.Alerts.RetentionDays < 0 {
		return fmt.Errorf("alerts.retention_days cannot be negative")
	}
	return nil
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	JWT          JWTConfig          `yaml:"jwt"`
	Log          LogConfig          `yaml:"log"`
	APNs         APNsConfig         `yaml:"apns"`
	AWS          AWSConfig          `yaml:"aws"`
	Notification NotificationConfig `yaml:"notification"`
	Availability AvailabilityConfig `yaml:"availability"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// APNsConfig holds the push notification transport configuration
type APNsConfig struct {
	KeyFile    string `yaml:"key_file"`
	KeyID      string `yaml:"key_id"`
	TeamID     string `yaml:"team_id"`
	Topic      string `yaml:"topic"`
	Production bool   `yaml:"production"`
}

// AWSConfig holds the transcript archive storage configuration
type AWSConfig struct {
	Region        string `yaml:"region"`
	ArchiveBucket string `yaml:"archive_bucket"`
}

// NotificationConfig tunes the fan-out worker pool
type NotificationConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// AvailabilityConfig tunes the stale companion availability sweeper
type AvailabilityConfig struct {
	SweepSchedule string `yaml:"sweep_schedule"`
	StaleAfterMin int    `yaml:"stale_after_min"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Notification.Workers <= 0 {
		cfg.Notification.Workers = 4
	}
	if cfg.Notification.QueueSize <= 0 {
		cfg.Notification.QueueSize = 256
	}
	if cfg.Availability.SweepSchedule == "" {
		cfg.Availability.SweepSchedule = "@every 5m"
	}
	if cfg.Availability.StaleAfterMin <= 0 {
		cfg.Availability.StaleAfterMin = 30
	}

	return &cfg, nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// URL returns the PostgreSQL connection URL used by the migration runner
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// Package config loads agent settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the root configuration struct.
type Config struct {
	Database DatabaseConfig
	Model    ModelConfig
	Query    QueryConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD"`
	Name     string `envconfig:"DB_NAME"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// ModelConfig holds language model settings.
type ModelConfig struct {
	Name        string        `envconfig:"MODEL" default:"gemini-1.5-flash"`
	Temperature float32       `envconfig:"TEMPERATURE" default:"0.3"`
	CallTimeout time.Duration `envconfig:"MODEL_CALL_TIMEOUT" default:"45s"`
}

// QueryConfig holds query pipeline settings.
type QueryConfig struct {
	DisplayCap  int           `envconfig:"DISPLAY_CAP" default:"500"`
	Timeout     time.Duration `envconfig:"QUERY_TIMEOUT" default:"20s"`
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"3"`
}

// ConnString builds a lib/pq connection string.
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Load reads .env if present, then processes environment variables.
// A missing .env file is not an error; the environment may already be set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	return &cfg, nil
}

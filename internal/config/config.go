package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port           int    `env:"SERVER_PORT" envDefault:"8080"`
	Debug          bool   `env:"DEBUG" envDefault:"false"`
	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host       string `env:"DB_HOST" envDefault:"localhost"`
	Port       int    `env:"DB_PORT" envDefault:"5432"`
	Username   string `env:"DB_USERNAME" envDefault:"postgres"`
	Password   string `env:"DB_PASSWORD" envDefault:"password"`
	DBName     string `env:"DB_NAME" envDefault:"timebank"`
	SSLMode    string `env:"DB_SSLMODE" envDefault:"disable"`
	TestDBName string `env:"TEST_DB_NAME" envDefault:"timebank_test"` // separate database for testing
}

// AuthConfig holds the authentication and seeding configuration
type AuthConfig struct {
	JWTSecret     string `env:"JWT_SECRET" envDefault:"your-secret-key-here"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"admin123"`
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
	)
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

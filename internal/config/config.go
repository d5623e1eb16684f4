package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Signup   SignupConfig
}

type ServerConfig struct {
	Host        string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port        int    `env:"SERVER_PORT" envDefault:"8080"`
	Secure      bool   `env:"SERVER_SECURE" envDefault:"false"` // Send HSTS
	Environment string `env:"APP_ENV" envDefault:"development"` // "development", "production", "test"
	Debug       bool   `env:"DEBUG" envDefault:"false"`
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"repeat"`
	Password string `env:"DB_PASSWORD" envDefault:"repeat"`
	DBName   string `env:"DB_NAME" envDefault:"repeat"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns int    `env:"DB_MAX_CONNS" envDefault:"25"`
}

type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type SignupConfig struct {
	BcryptCost   int           `env:"BCRYPT_COST" envDefault:"12"`
	RateLimit    int64         `env:"SIGNUP_RATE_LIMIT" envDefault:"10"`
	RateWindow   time.Duration `env:"SIGNUP_RATE_WINDOW" envDefault:"1h"`
	MaxBodyBytes int64         `env:"MAX_REQUEST_BODY_BYTES" envDefault:"1048576"`
	TrustProxy   bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if cfg.Signup.RateLimit <= 0 {
		return nil, fmt.Errorf("SIGNUP_RATE_LIMIT must be positive, got %d", cfg.Signup.RateLimit)
	}
	if cfg.Signup.RateWindow <= 0 {
		return nil, fmt.Errorf("SIGNUP_RATE_WINDOW must be positive, got %s", cfg.Signup.RateWindow)
	}
	if cfg.Signup.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_BYTES must be positive, got %d", cfg.Signup.MaxBodyBytes)
	}

	return cfg, nil
}

package config

import (
	"errors"
	"os"
	"time"
)

// ErrMissingAdminCredential is returned when no usable admin credential is
// configured. The service refuses to run an unguarded admin surface.
var ErrMissingAdminCredential = errors.New("admin credential is required (ADMIN_TOKEN, or ADMIN_USERNAME/ADMIN_PASSWORD with ADMIN_AUTH=basic)")

// Config holds application configuration. Storage is selected by what is set:
// DATABASE_URL picks the Postgres store, otherwise the file store under
// DataDir is used. REDIS_URL optionally enables caching and the import queue.
type Config struct {
	ServerPort  string        `yaml:"server_port" env:"PORT"`
	DataDir     string        `yaml:"data_dir" env:"DATA_DIR"`
	DatabaseURL string        `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL    string        `yaml:"redis_url" env:"REDIS_URL"`
	AdminAuth   string        `yaml:"admin_auth" env:"ADMIN_AUTH"`
	AdminToken  string        `yaml:"admin_token" env:"ADMIN_TOKEN"`
	AdminUser   string        `yaml:"admin_username" env:"ADMIN_USERNAME"`
	AdminPass   string        `yaml:"admin_password" env:"ADMIN_PASSWORD"`
	UserAgent   string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout     time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`
}

// Load builds config from environment variables. If no admin credential is
// set, Load tries to load .env.local and .env from the current directory
// before giving up.
func Load() (*Config, error) {
	if os.Getenv("ADMIN_TOKEN") == "" && os.Getenv("ADMIN_PASSWORD") == "" {
		loadEnvFiles()
	}
	c := &Config{
		ServerPort:  os.Getenv("PORT"),
		DataDir:     os.Getenv("DATA_DIR"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		AdminAuth:   os.Getenv("ADMIN_AUTH"),
		AdminToken:  os.Getenv("ADMIN_TOKEN"),
		AdminUser:   os.Getenv("ADMIN_USERNAME"),
		AdminPass:   os.Getenv("ADMIN_PASSWORD"),
		UserAgent:   os.Getenv("FETCHER_USER_AGENT"),
		Timeout:     30 * time.Second,
	}
	if s := os.Getenv("FETCHER_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.Timeout = d
		}
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.ServerPort == "" {
		c.ServerPort = "8080"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.UserAgent == "" {
		c.UserAgent = "StreamGate/1.0"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

func (c *Config) validate() error {
	switch c.AdminAuth {
	case "", "bearer":
		if c.AdminToken == "" {
			return ErrMissingAdminCredential
		}
	case "basic":
		if c.AdminUser == "" || c.AdminPass == "" {
			return ErrMissingAdminCredential
		}
	}
	// An unknown mode is rejected later by auth.New with a precise message.
	return nil
}

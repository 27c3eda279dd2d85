package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	ServerPort  string `yaml:"server_port"`
	DataDir     string `yaml:"data_dir"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	AdminAuth   string `yaml:"admin_auth"`
	AdminToken  string `yaml:"admin_token"`
	AdminUser   string `yaml:"admin_username"`
	AdminPass   string `yaml:"admin_password"`
	UserAgent   string `yaml:"user_agent"`
	Timeout     string `yaml:"timeout"`
}

// LoadFromFile loads config from a YAML file. An admin credential is required.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	c := &Config{
		ServerPort:  f.ServerPort,
		DataDir:     f.DataDir,
		DatabaseURL: f.DatabaseURL,
		RedisURL:    f.RedisURL,
		AdminAuth:   f.AdminAuth,
		AdminToken:  f.AdminToken,
		AdminUser:   f.AdminUser,
		AdminPass:   f.AdminPass,
		UserAgent:   f.UserAgent,
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			c.Timeout = d
		}
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config application configuration, loaded from configs/config.{env}.yaml
// with environment variable overrides.
type Config struct {
	App struct {
		Env  string `yaml:"env"`
		Port int    `yaml:"port"`
	} `yaml:"app"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		Params   string `yaml:"params"`
	} `yaml:"database"`

	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	JWT struct {
		Secret    string        `yaml:"secret"`
		ExpiresIn time.Duration `yaml:"expires_in"`
	} `yaml:"jwt"`

	Storage struct {
		Enabled         bool   `yaml:"enabled"`
		Endpoint        string `yaml:"endpoint"`
		Region          string `yaml:"region"`
		AccessKeyID     string `yaml:"access_key_id"`
		SecretAccessKey string `yaml:"secret_access_key"`
		Bucket          string `yaml:"bucket"`
		BasePath        string `yaml:"base_path"`
		ForcePathStyle  bool   `yaml:"force_path_style"`
	} `yaml:"storage"`

	CORS struct {
		AllowOrigins string `yaml:"allow_origins"`
	} `yaml:"cors"`
}

// Load reads the yaml config file and applies env var overrides.
// OS env vars always win so deployments can keep secrets out of files.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.App.Port = 8080
	cfg.Redis.PoolSize = 10
	cfg.JWT.ExpiresIn = 24 * time.Hour

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg.App.Env, "APP_ENV")
	applyEnvInt(&cfg.App.Port, "APP_PORT")
	applyEnv(&cfg.Database.Host, "DB_HOST")
	applyEnvInt(&cfg.Database.Port, "DB_PORT")
	applyEnv(&cfg.Database.User, "DB_USER")
	applyEnv(&cfg.Database.Password, "DB_PASSWORD")
	applyEnv(&cfg.Database.Name, "DB_NAME")
	applyEnv(&cfg.Redis.Host, "REDIS_HOST")
	applyEnvInt(&cfg.Redis.Port, "REDIS_PORT")
	applyEnv(&cfg.Redis.Password, "REDIS_PASSWORD")
	applyEnv(&cfg.JWT.Secret, "JWT_SECRET")
	applyEnv(&cfg.Storage.AccessKeyID, "STORAGE_ACCESS_KEY_ID")
	applyEnv(&cfg.Storage.SecretAccessKey, "STORAGE_SECRET_ACCESS_KEY")
	applyEnv(&cfg.CORS.AllowOrigins, "CORS_ALLOW_ORIGINS")

	if cfg.App.Env == "" {
		cfg.App.Env = "local"
	}

	return cfg, nil
}

// DSN builds the MySQL data source name
func (c *Config) DSN() string {
	params := c.Database.Params
	if params == "" {
		params = "charset=utf8mb4&parseTime=True&loc=UTC"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.Database.User, c.Database.Password,
		c.Database.Host, c.Database.Port,
		c.Database.Name, params)
}

// IsDevelopment reports whether the app runs in a dev-like environment
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "local" || c.App.Env == "development" || c.App.Env == "dev"
}

func applyEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyEnvInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

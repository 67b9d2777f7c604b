// Package config loads runtime settings for the server and diaryctl.
//
// Sources, later ones winning:
//
//	defaults → YAML file (optional) → .env file (optional) → environment
//
// The .env file never overrides a non-empty environment variable and is
// never written back into the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the resolved configuration.
type Config struct {
	Port      int
	DBDriver  string // sqlite | postgres
	DBDSN     string // sqlite file path or postgres URL
	StaticDir string
	SeedDir   string // directory holding writer.json and poets.json

	JWTSecret string
	TokenTTL  time.Duration

	LogLevel  string
	LogFormat string

	AuthRateLimitPerMinute int // 0 disables throttling of register/login
	PopularWindow          time.Duration
}

// fileConfig mirrors Config in YAML. Durations stay strings so a typo is
// reported with the key name.
type fileConfig struct {
	Port                   int    `yaml:"port"`
	DBDriver               string `yaml:"dbDriver"`
	DBDSN                  string `yaml:"dbDSN"`
	StaticDir              string `yaml:"staticDir"`
	SeedDir                string `yaml:"seedDir"`
	JWTSecret              string `yaml:"jwtSecret"`
	TokenTTL               string `yaml:"tokenTTL"`
	LogLevel               string `yaml:"logLevel"`
	LogFormat              string `yaml:"logFormat"`
	AuthRateLimitPerMinute *int   `yaml:"authRateLimitPerMinute"`
	PopularWindow          string `yaml:"popularWindow"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Port:                   8080,
		DBDriver:               "sqlite",
		DBDSN:                  "data/diary.db",
		StaticDir:              "web/static",
		SeedDir:                "data",
		TokenTTL:               24 * time.Hour,
		LogLevel:               "info",
		LogFormat:              "text",
		AuthRateLimitPerMinute: 10,
		PopularWindow:          7 * 24 * time.Hour,
	}
}

// Load resolves the configuration. path names a YAML file; when empty,
// CONFIG_FILE is consulted, and when that is empty too no file is read.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return cfg, err
		}
	}

	dotenv, err := godotenv.Read(".env")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("config: reading .env: %w", err)
	}

	if err := applyEnv(&cfg, envLookup(dotenv)); err != nil {
		return cfg, err
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// RequireJWTSecret is checked by the server only; diaryctl never signs tokens.
func (c Config) RequireJWTSecret() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be set and at least 16 characters")
	}
	return nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if fc.Port != 0 {
		cfg.Port = fc.Port
	}
	setString(&cfg.DBDriver, fc.DBDriver)
	setString(&cfg.DBDSN, fc.DBDSN)
	setString(&cfg.StaticDir, fc.StaticDir)
	setString(&cfg.SeedDir, fc.SeedDir)
	setString(&cfg.JWTSecret, fc.JWTSecret)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	if fc.AuthRateLimitPerMinute != nil {
		cfg.AuthRateLimitPerMinute = *fc.AuthRateLimitPerMinute
	}
	if err := setDuration(&cfg.TokenTTL, "tokenTTL", fc.TokenTTL); err != nil {
		return err
	}
	return setDuration(&cfg.PopularWindow, "popularWindow", fc.PopularWindow)
}

// envLookup reads the process environment and falls back to the .env values.
// An exported but empty variable counts as unset in both places.
func envLookup(dotenv map[string]string) func(string) string {
	return func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		cfg.Port = n
	}
	setString(&cfg.DBDriver, getenv("DB_DRIVER"))
	setString(&cfg.DBDSN, getenv("DB_DSN"))
	setString(&cfg.StaticDir, getenv("STATIC_DIR"))
	setString(&cfg.SeedDir, getenv("SEED_DIR"))
	setString(&cfg.JWTSecret, getenv("JWT_SECRET"))
	setString(&cfg.LogLevel, getenv("LOG_LEVEL"))
	setString(&cfg.LogFormat, getenv("LOG_FORMAT"))

	if v := getenv("AUTH_RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid AUTH_RATE_LIMIT_PER_MINUTE %q: %w", v, err)
		}
		cfg.AuthRateLimitPerMinute = n
	}
	if err := setDuration(&cfg.TokenTTL, "TOKEN_TTL", getenv("TOKEN_TTL")); err != nil {
		return err
	}
	return setDuration(&cfg.PopularWindow, "POPULAR_WINDOW", getenv("POPULAR_WINDOW"))
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	switch strings.ToLower(c.DBDriver) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return errors.New("config: DB_DSN is required")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: TOKEN_TTL must be positive")
	}
	if c.PopularWindow <= 0 {
		return errors.New("config: POPULAR_WINDOW must be positive")
	}
	if c.AuthRateLimitPerMinute < 0 {
		return errors.New("config: AUTH_RATE_LIMIT_PER_MINUTE must be >= 0")
	}
	return nil
}

func setString(target *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*target = v
	}
}

func setDuration(target *time.Duration, key, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: invalid %s duration %q: %w", key, v, err)
	}
	*target = d
	return nil
}

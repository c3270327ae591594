// Package config reads runtime settings from TASKLIST_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/tasklist/internal/database"
)

const devJWTSecret = "tasklist-dev-secret-do-not-use-in-production"

// Config holds everything main needs to wire the service.
type Config struct {
	Port              string
	Env               string
	DBDriver          database.Dialect
	DBDSN             string
	JWTSecret         string
	ClientURL         string
	BaseURL           string
	KeepaliveInterval time.Duration
	LogLevel          string

	// TrustProxy keys rate limits on X-Forwarded-For / X-Real-IP.
	TrustProxy bool
}

func (c Config) Production() bool {
	return c.Env == "production"
}

// Load builds a Config from getenv, usually os.Getenv. Unset variables take
// their defaults; malformed ones are an error. JWT_SECRET has a development
// fallback but is required when ENV=production.
func Load(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv("TASKLIST_" + key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Port:      get("PORT", "5000"),
		Env:       strings.ToLower(get("ENV", "development")),
		DBDSN:     get("DB_DSN", "tasklist.db"),
		JWTSecret: get("JWT_SECRET", ""),
		ClientURL: strings.TrimRight(get("CLIENT_URL", "http://localhost:5173"), "/"),
		BaseURL:   strings.TrimRight(get("BASE_URL", ""), "/"),
		LogLevel:  get("LOG_LEVEL", "info"),
	}

	if n, err := strconv.Atoi(cfg.Port); err != nil || n < 1 || n > 65535 {
		return Config{}, fmt.Errorf("invalid TASKLIST_PORT %q", cfg.Port)
	}

	d, err := database.ParseDialect(get("DB_DRIVER", "sqlite"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TASKLIST_DB_DRIVER: %w", err)
	}
	cfg.DBDriver = d

	if cfg.JWTSecret == "" {
		if cfg.Production() {
			return Config{}, errors.New("TASKLIST_JWT_SECRET is required in production")
		}
		cfg.JWTSecret = devJWTSecret
	}

	if err := checkURL("TASKLIST_CLIENT_URL", cfg.ClientURL); err != nil {
		return Config{}, err
	}
	if cfg.BaseURL != "" {
		if err := checkURL("TASKLIST_BASE_URL", cfg.BaseURL); err != nil {
			return Config{}, err
		}
	}

	interval, err := time.ParseDuration(get("KEEPALIVE_INTERVAL", "14m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TASKLIST_KEEPALIVE_INTERVAL: %w", err)
	}
	if interval <= 0 {
		return Config{}, fmt.Errorf("TASKLIST_KEEPALIVE_INTERVAL must be positive, got %s", interval)
	}
	cfg.KeepaliveInterval = interval

	trust, err := strconv.ParseBool(get("TRUST_PROXY", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TASKLIST_TRUST_PROXY: %w", err)
	}
	cfg.TrustProxy = trust

	return cfg, nil
}

func checkURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, raw)
	}
	return nil
}

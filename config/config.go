// Package config loads settings from the environment and an optional .env
// file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the binaries read.
type Config struct {
	Debug      bool
	LogFormat  string
	LocalTZ    string
	IDStrategy string
	ListenAddr string

	Store  StoreConfig
	Notify NotifyConfig
	Auth   AuthConfig
}

type StoreConfig struct {
	Backend         string
	Prefix          string
	RedisConnection string
	SQLitePath      string
	AzureConnection string
	TablesTable     string
	TablesPartition string
	DeduperTTL      time.Duration
}

type NotifyConfig struct {
	Mode    string
	Channel string
	Queue   string
}

type AuthConfig struct {
	Mode     string
	Secret   string
	JWKSURL  string
	Audience string
	Issuer   string
}

var envKeys = map[string]string{
	"debug":                  "DEBUG",
	"log_format":             "LOG_FORMAT",
	"local_tz":               "LOCAL_TZ",
	"id_strategy":            "ID_STRATEGY",
	"listen_addr":            "LISTEN_ADDR",
	"store.backend":          "STORE_BACKEND",
	"store.prefix":           "STORE_PREFIX",
	"store.redis":            "REDIS_CONNECTION_STRING",
	"store.sqlite_path":      "SQLITE_PATH",
	"store.azure":            "STORAGE_CONNECTION_STRING",
	"store.tables_table":     "TABLES_TABLE",
	"store.tables_partition": "TABLES_PARTITION",
	"store.deduper_ttl":      "DEDUPER_TTL",
	"notify.mode":            "NOTIFY_MODE",
	"notify.channel":         "NOTIFY_CHANNEL",
	"notify.queue":           "NOTIFY_QUEUE",
	"auth.mode":              "AUTH_MODE",
	"auth.secret":            "AUTH_SHARED_SECRET",
	"auth.jwks_url":          "AUTH_JWKS_URL",
	"auth.audience":          "AUTH_AUDIENCE",
	"auth.issuer":            "AUTH_ISSUER",
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromViper(viper.New())
}

// FromViper builds a Config from v after applying defaults and env bindings.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	cfg := &Config{
		Debug:      v.GetBool("debug"),
		LogFormat:  strings.ToLower(v.GetString("log_format")),
		LocalTZ:    v.GetString("local_tz"),
		IDStrategy: strings.ToLower(v.GetString("id_strategy")),
		ListenAddr: v.GetString("listen_addr"),
		Store: StoreConfig{
			Backend:         strings.ToLower(v.GetString("store.backend")),
			Prefix:          v.GetString("store.prefix"),
			RedisConnection: v.GetString("store.redis"),
			SQLitePath:      v.GetString("store.sqlite_path"),
			AzureConnection: v.GetString("store.azure"),
			TablesTable:     v.GetString("store.tables_table"),
			TablesPartition: v.GetString("store.tables_partition"),
			DeduperTTL:      v.GetDuration("store.deduper_ttl"),
		},
		Notify: NotifyConfig{
			Mode:    strings.ToLower(v.GetString("notify.mode")),
			Channel: v.GetString("notify.channel"),
			Queue:   v.GetString("notify.queue"),
		},
		Auth: AuthConfig{
			Mode:     strings.ToLower(v.GetString("auth.mode")),
			Secret:   v.GetString("auth.secret"),
			JWKSURL:  v.GetString("auth.jwks_url"),
			Audience: v.GetString("auth.audience"),
			Issuer:   v.GetString("auth.issuer"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "text")
	v.SetDefault("local_tz", "Local")
	v.SetDefault("id_strategy", "uuid")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("store.backend", "redis")
	v.SetDefault("store.redis", "redis://localhost:6379/0")
	v.SetDefault("store.sqlite_path", "data/party.db")
	v.SetDefault("store.tables_table", "partyplanner")
	v.SetDefault("store.tables_partition", "device")
	v.SetDefault("store.deduper_ttl", 24*time.Hour)
	v.SetDefault("notify.mode", "none")
	v.SetDefault("notify.channel", "party-updates")
	v.SetDefault("notify.queue", "party-updates")
	v.SetDefault("auth.mode", "none")
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "redis":
		if c.Store.RedisConnection == "" {
			return errors.New("REDIS_CONNECTION_STRING is required for the redis backend")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite backend")
		}
	case "tables":
		if c.Store.AzureConnection == "" || c.Store.TablesTable == "" {
			return errors.New("STORAGE_CONNECTION_STRING and TABLES_TABLE are required for the tables backend")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.Store.Backend)
	}

	switch c.Notify.Mode {
	case "none":
	case "redis":
		if c.Store.RedisConnection == "" {
			return errors.New("NOTIFY_MODE=redis needs REDIS_CONNECTION_STRING")
		}
	case "queue":
		if c.Store.AzureConnection == "" || c.Notify.Queue == "" {
			return errors.New("NOTIFY_MODE=queue needs STORAGE_CONNECTION_STRING and NOTIFY_QUEUE")
		}
	default:
		return fmt.Errorf("unsupported NOTIFY_MODE %q", c.Notify.Mode)
	}

	switch c.Auth.Mode {
	case "none":
	case "hs256":
		if c.Auth.Secret == "" {
			return errors.New("AUTH_SHARED_SECRET must be set when AUTH_MODE=hs256")
		}
	case "jwks":
		if c.Auth.JWKSURL == "" || c.Auth.Audience == "" {
			return errors.New("AUTH_JWKS_URL and AUTH_AUDIENCE must be set when AUTH_MODE=jwks")
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.Auth.Mode)
	}

	switch c.IDStrategy {
	case "uuid", "monotonic":
	default:
		return fmt.Errorf("unsupported ID_STRATEGY %q", c.IDStrategy)
	}
	if c.Store.DeduperTTL <= 0 {
		return errors.New("DEDUPER_TTL must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves LOCAL_TZ; "Local" or empty means the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.LocalTZ == "" || strings.EqualFold(c.LocalTZ, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.LocalTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid LOCAL_TZ: %w", err)
	}
	return loc, nil
}

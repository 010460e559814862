// Package config declares the application settings as a schema and resolves
// them from an optional YAML file, an optional .env file and REPOMETA_*
// environment variables, in increasing order of precedence.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ericfisherdev/repometa/internal/schema"
)

// EnvPrefix prefixes every environment variable Load reads.
const EnvPrefix = "REPOMETA"

const (
	// EnvFileVar names the .env file to read. Defaults to ".env"; a missing
	// default file is ignored, a missing explicit file is an error.
	EnvFileVar = "REPOMETA_ENV_FILE"

	// ConfigFileVar names an optional YAML settings file.
	ConfigFileVar = "REPOMETA_CONFIG_FILE"

	defaultEnvFile = ".env"
)

// Field names of the application schema.
const (
	FieldGitHubToken        = "github_token"
	FieldAPIURL             = "api_url"
	FieldTimeout            = "timeout"
	FieldDBPath             = "db_path"
	FieldListenAddr         = "listen_addr"
	FieldLogLevel           = "log_level"
	FieldHTTPCache          = "http_cache"
	FieldWaitSecondaryLimit = "wait_secondary_limit"
	FieldSecretKey          = "secret_key"
	FieldSnapshotPath       = "snapshot_path"
	FieldSnapshotSchemaPath = "snapshot_schema_path"
)

// Config holds the resolved application configuration.
type Config struct {
	GitHubToken        string
	APIURL             string
	Timeout            time.Duration
	DBPath             string // empty disables snapshot history and stored credentials
	ListenAddr         string
	LogLevel           string
	HTTPCache          bool
	WaitSecondaryLimit bool
	SecretKey          []byte // nil when not configured
	SnapshotPath       string
	SnapshotSchemaPath string // empty disables writing the inferred schema

	// Settings is the validated settings instance the fields above were read from.
	Settings schema.Settings
}

// HasDatabase reports whether a SQLite database path is configured.
func (c *Config) HasDatabase() bool {
	return c.DBPath != ""
}

// Schema returns the application settings definition.
func Schema() (*schema.Definition, error) {
	return schema.Define(
		schema.Field{Name: FieldGitHubToken, Type: schema.String, Default: "",
			Description: "GitHub personal access token; empty falls back to a stored token"},
		schema.Field{Name: FieldAPIURL, Type: schema.String, Default: "https://api.github.com/",
			Predicate: schema.Tag("url"), Description: "GitHub REST API base URL"},
		schema.Field{Name: FieldTimeout, Type: schema.Duration, Default: "10s",
			Predicate: positiveDuration(), Description: "per-request transport timeout"},
		schema.Field{Name: FieldDBPath, Type: schema.String, Default: "",
			Description: "SQLite database for snapshot history and credentials; empty disables both"},
		schema.Field{Name: FieldListenAddr, Type: schema.String, Default: "127.0.0.1:8080",
			Predicate: schema.Tag("hostname_port"), Description: "HTTP API listen address"},
		schema.Field{Name: FieldLogLevel, Type: schema.String, Default: "info",
			Predicate: schema.OneOf("debug", "info", "warn", "error"), Description: "minimum log level"},
		schema.Field{Name: FieldHTTPCache, Type: schema.Bool, Default: false,
			Description: "revalidate GET responses with ETags through an in-memory cache"},
		schema.Field{Name: FieldWaitSecondaryLimit, Type: schema.Bool, Default: false,
			Description: "sleep through GitHub secondary rate limits instead of failing"},
		schema.Field{Name: FieldSecretKey, Type: schema.String, Default: "",
			Predicate: secretKey(), Description: "64 hex characters (AES-256 key) for stored credentials"},
		schema.Field{Name: FieldSnapshotPath, Type: schema.String, Default: "repos.yaml",
			Predicate: schema.Tag("required"), Description: "access snapshot YAML file"},
		schema.Field{Name: FieldSnapshotSchemaPath, Type: schema.String, Default: "repos.schema.json",
			Description: "JSON Schema inferred from the access snapshot; empty disables it"},
	)
}

// Load resolves the configuration from the process environment, the .env
// file named by REPOMETA_ENV_FILE and the YAML file named by
// REPOMETA_CONFIG_FILE.
func Load() (*Config, error) {
	def, err := Schema()
	if err != nil {
		return nil, fmt.Errorf("define config schema: %w", err)
	}

	var sources []map[string]any

	if path := os.Getenv(ConfigFileVar); path != "" {
		raw, err := schema.FromYAML(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, raw)
	}

	envFile, explicit := os.LookupEnv(EnvFileVar)
	if !explicit || envFile == "" {
		envFile = defaultEnvFile
	}
	dotenv, err := schema.FromDotenv(def, EnvPrefix, envFile)
	switch {
	case err == nil:
		sources = append(sources, dotenv)
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// No default .env file; nothing to merge.
	default:
		return nil, err
	}

	sources = append(sources, schema.FromEnv(def, EnvPrefix))

	settings, err := schema.Generate(def, schema.Merge(sources...))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return fromSettings(settings)
}

func fromSettings(s schema.Settings) (*Config, error) {
	cfg := &Config{
		GitHubToken:        s.String(FieldGitHubToken),
		APIURL:             s.String(FieldAPIURL),
		Timeout:            s.Duration(FieldTimeout),
		DBPath:             s.String(FieldDBPath),
		ListenAddr:         s.String(FieldListenAddr),
		LogLevel:           s.String(FieldLogLevel),
		HTTPCache:          s.Bool(FieldHTTPCache),
		WaitSecondaryLimit: s.Bool(FieldWaitSecondaryLimit),
		SnapshotPath:       s.String(FieldSnapshotPath),
		SnapshotSchemaPath: s.String(FieldSnapshotSchemaPath),
		Settings:           s,
	}

	if hexKey := s.String(FieldSecretKey); hexKey != "" {
		key, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", schema.EnvKey(EnvPrefix, FieldSecretKey), err)
		}
		cfg.SecretKey = key
	}

	return cfg, nil
}

// Redacted returns the resolved settings with secrets masked, for display.
func (c *Config) Redacted() map[string]any {
	m := c.Settings.Map()
	for _, name := range []string{FieldGitHubToken, FieldSecretKey} {
		if v, ok := m[name].(string); ok && v != "" {
			m[name] = "********"
		}
	}
	return m
}

func positiveDuration() *schema.Predicate {
	return schema.Func("positive", func(v any) error {
		if d, ok := v.(time.Duration); !ok || d <= 0 {
			return fmt.Errorf("must be a positive duration, got %v", v)
		}
		return nil
	})
}

func secretKey() *schema.Predicate {
	return schema.Func("empty or 64 hex characters", func(v any) error {
		s, _ := v.(string)
		if s == "" {
			return nil
		}
		if len(s) != 64 {
			return fmt.Errorf("must be 64 hex characters, got %d", len(s))
		}
		if _, err := hex.DecodeString(s); err != nil {
			return fmt.Errorf("must be hex: %w", err)
		}
		return nil
	})
}

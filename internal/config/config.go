// Package config provides configuration loading for the PP-Structure service.
// Supports YAML files and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the extraction service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Engine        EngineConfig        `yaml:"engine"`
	Staging       StagingConfig       `yaml:"staging"`
	Cache         CacheConfig         `yaml:"cache"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"` // 0 disables
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes"`
	CORS             CORSConfig    `yaml:"cors"`
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// EngineConfig holds the table-extraction engine settings.
type EngineConfig struct {
	Backend     string        `yaml:"backend"` // tabula, command or remote
	Language    string        `yaml:"language"`
	UseGPU      bool          `yaml:"use_gpu"`
	Table       bool          `yaml:"table"`
	OCR         bool          `yaml:"ocr"`
	Layout      bool          `yaml:"layout"`
	ShowLog     bool          `yaml:"show_log"`
	WarmOnStart bool          `yaml:"warm_on_start"`
	Tabula      TabulaConfig  `yaml:"tabula"`
	Command     CommandConfig `yaml:"command"`
	Remote      RemoteConfig  `yaml:"remote"`
}

// TabulaConfig tunes the native geometric table detector.
type TabulaConfig struct {
	MinRows            int     `yaml:"min_rows"`
	MinCols            int     `yaml:"min_cols"`
	MinConfidence      float64 `yaml:"min_confidence"`
	UseLines           bool    `yaml:"use_lines"`
	UseWhitespace      bool    `yaml:"use_whitespace"`
	DetectMergedCells  bool    `yaml:"detect_merged_cells"`
	MaxCellGap         float64 `yaml:"max_cell_gap"`
	AlignmentTolerance float64 `yaml:"alignment_tolerance"`
	OCRFallback        bool    `yaml:"ocr_fallback"`
	OCRDPI             float64 `yaml:"ocr_dpi"`
}

// CommandConfig holds settings for the helper-process backend.
type CommandConfig struct {
	Path    string        `yaml:"path"`
	Args    []string      `yaml:"args"`
	Timeout time.Duration `yaml:"timeout"` // 0 disables
}

// RemoteConfig holds settings for the remote HTTP backend.
type RemoteConfig struct {
	URL          string        `yaml:"url"`
	HealthPath   string        `yaml:"health_path"`
	APIKey       string        `yaml:"api_key"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// StagingConfig controls where request PDFs are written during extraction.
type StagingConfig struct {
	Dir    string `yaml:"dir"` // empty means os.TempDir()
	Suffix string `yaml:"suffix"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Driver    string        `yaml:"driver"` // none, memory or redis
	TTL       time.Duration `yaml:"ttl"`
	MaxSizeMB int           `yaml:"max_size_mb"`
	Redis     RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// StorageConfig holds job audit store settings.
type StorageConfig struct {
	Driver   string         `yaml:"driver"` // none, sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ObservabilityConfig holds logging settings and service identity.
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"` // json or console
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
}

// Load reads configuration from a YAML file, then applies environment overrides.
// An empty path uses defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}

		if cfg.Storage.SQLite.Path != "" {
			cfg.Storage.SQLite.Path = ResolveRelativePath(path, cfg.Storage.SQLite.Path)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8866,
			ReadTimeout:      60 * time.Second,
			WriteTimeout:     0,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
			MaxBodyBytes:     64 << 20,
			CORS: CORSConfig{
				AllowedOrigins: []string{
					"http://localhost:9002",
					"http://localhost:3000",
					"http://127.0.0.1:9002",
					"http://127.0.0.1:3000",
				},
				AllowCredentials: true,
			},
		},
		Engine: EngineConfig{
			Backend:     "tabula",
			Language:    "en",
			UseGPU:      false,
			Table:       true,
			OCR:         true,
			Layout:      false,
			ShowLog:     true,
			WarmOnStart: true,
			Tabula: TabulaConfig{
				MinRows:            2,
				MinCols:            2,
				MinConfidence:      0.5,
				UseLines:           true,
				UseWhitespace:      true,
				DetectMergedCells:  true,
				MaxCellGap:         5.0,
				AlignmentTolerance: 2.0,
				OCRFallback:        false,
				OCRDPI:             300,
			},
			Command: CommandConfig{
				Path: "python3",
				Args: []string{"scripts/ppstructure_runner.py"},
			},
			Remote: RemoteConfig{
				HealthPath:   "/health",
				Timeout:      5 * time.Minute,
				MaxRetries:   3,
				RetryBackoff: time.Second,
			},
		},
		Staging: StagingConfig{
			Dir:    "",
			Suffix: ".pdf",
		},
		Cache: CacheConfig{
			Driver:    "none",
			TTL:       time.Hour,
			MaxSizeMB: 256,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "ppstructure:",
			},
		},
		Storage: StorageConfig{
			Driver: "none",
			SQLite: SQLiteConfig{
				Path:         "data/jobs.db",
				MaxOpenConns: 1,
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			ServiceName:    "PaddleOCR PP-Structure V3",
			ServiceVersion: "1.0.0",
		},
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}

	switch c.Engine.Backend {
	case "tabula", "command":
	case "remote":
		if c.Engine.Remote.URL == "" {
			return fmt.Errorf("remote engine backend requires engine.remote.url")
		}
	default:
		return fmt.Errorf("invalid engine backend: %s", c.Engine.Backend)
	}

	if c.Engine.Language == "" {
		return fmt.Errorf("engine language must not be empty")
	}

	if c.Staging.Suffix == "" {
		return fmt.Errorf("staging suffix must not be empty")
	}

	if c.Cache.Driver != "none" && c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	switch c.Storage.Driver {
	case "none", "sqlite":
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("postgres storage requires storage.postgres.dsn")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s", c.Storage.Driver)
	}

	return nil
}

// Address returns the host:port the HTTP server listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// StorageDSN returns the DSN for the configured storage driver.
func (c *Config) StorageDSN() string {
	if c.Storage.Driver == "postgres" {
		return c.Storage.Postgres.DSN
	}
	return c.Storage.SQLite.Path
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORS.AllowedOrigins = origins
	}

	if v := os.Getenv("ENGINE_BACKEND"); v != "" {
		cfg.Engine.Backend = v
	}

	if v := os.Getenv("ENGINE_LANG"); v != "" {
		cfg.Engine.Language = v
	}

	if fields := strings.Fields(os.Getenv("PADDLEOCR_COMMAND")); len(fields) > 0 {
		cfg.Engine.Command.Path = fields[0]
		cfg.Engine.Command.Args = fields[1:]
	}

	if v := os.Getenv("PADDLEOCR_REMOTE_URL"); v != "" {
		cfg.Engine.Remote.URL = v
	}

	if v := os.Getenv("PADDLEOCR_API_KEY"); v != "" {
		cfg.Engine.Remote.APIKey = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Storage.Driver = "sqlite"
			cfg.Storage.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Storage.Driver = "postgres"
			cfg.Storage.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

// ResolveRelativePath resolves targetPath relative to the directory holding configPath.
func ResolveRelativePath(configPath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	return filepath.Join(filepath.Dir(configPath), targetPath)
}

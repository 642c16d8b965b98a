// Package config loads onaykontrol configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/rt0111/onayformukontrol/internal/logging"
)

// EnvPrefix is the prefix of environment overrides
const EnvPrefix = "ONAY_"

const maxConfigFileSize = 1024 * 1024 // 1MB

// Rule sources
const (
	RulesEmbedded = "embedded"
	RulesFile     = "file"
	RulesPostgres = "postgres"
)

// Config holds all configuration for onaykontrol.
type Config struct {
	Log      logging.Config `koanf:"log"`
	Rules    RulesConfig    `koanf:"rules"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Server   ServerConfig   `koanf:"server"`
	LLM      LLMConfig      `koanf:"llm"`
	Report   ReportConfig   `koanf:"report"`
}

// RulesConfig selects where the ruleset is loaded from.
type RulesConfig struct {
	Source string `koanf:"source"`
	Path   string `koanf:"path"`
}

// DatabaseConfig configures the PostgreSQL rule store.
type DatabaseConfig struct {
	URL      string `koanf:"url"`
	MaxConns int32  `koanf:"max_conns"`
}

// RedisConfig configures the job store; an empty URL keeps jobs in memory.
type RedisConfig struct {
	URL string `koanf:"url"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	MaxUploadMB     int64         `koanf:"max_upload_mb"`
	Workers         int           `koanf:"workers"`
	QueueSize       int           `koanf:"queue_size"`
	JobTTL          time.Duration `koanf:"job_ttl"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LLMConfig configures the optional narrative generator.
type LLMConfig struct {
	Enabled bool          `koanf:"enabled"`
	Host    string        `koanf:"host"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

// ReportConfig sets report defaults.
type ReportConfig struct {
	Format string `koanf:"format"`
}

// Load reads configuration from an optional YAML file, then overrides with
// environment variables.
//
// Environment variables carry the ONAY_ prefix and map the first underscore
// to a section separator:
//
//	ONAY_SERVER_ADDR     -> server.addr
//	ONAY_LOG_LEVEL       -> log.level
//	ONAY_SERVER_JOB_TTL  -> server.job_ttl
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps ONAY_SECTION_FIELD_NAME to section.field_name
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// Default returns the configuration used without file or environment.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	def := logging.NewDefaultConfig()
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Format
	}

	if cfg.Rules.Source == "" {
		cfg.Rules.Source = RulesEmbedded
		if cfg.Rules.Path != "" {
			cfg.Rules.Source = RulesFile
		}
	}

	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 4
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 20
	}
	if cfg.Server.Workers == 0 {
		cfg.Server.Workers = 3
	}
	if cfg.Server.QueueSize == 0 {
		cfg.Server.QueueSize = 64
	}
	if cfg.Server.JobTTL == 0 {
		cfg.Server.JobTTL = time.Hour
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama3"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}

	if cfg.Report.Format == "" {
		cfg.Report.Format = "text"
	}
}

// Validate returns the first configuration problem found.
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	switch c.Rules.Source {
	case RulesEmbedded:
	case RulesFile:
		if c.Rules.Path == "" {
			return fmt.Errorf("rules.path is required when rules.source is file")
		}
	case RulesPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required when rules.source is postgres")
		}
	default:
		return fmt.Errorf("rules.source must be one of embedded, file, postgres; got %q", c.Rules.Source)
	}

	if c.Database.MaxConns < 0 {
		return fmt.Errorf("database.max_conns must not be negative")
	}
	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("redis.url must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if c.Server.MaxUploadMB < 0 {
		return fmt.Errorf("server.max_upload_mb must not be negative")
	}
	if c.Server.Workers < 1 {
		return fmt.Errorf("server.workers must be at least 1, got %d", c.Server.Workers)
	}
	if c.Server.QueueSize < 1 {
		return fmt.Errorf("server.queue_size must be at least 1, got %d", c.Server.QueueSize)
	}

	if c.LLM.Enabled && c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required when llm.enabled is true")
	}

	switch c.Report.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("report.format must be one of text, json, yaml; got %q", c.Report.Format)
	}

	return nil
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"aiaudit/internal/audit"
	"aiaudit/internal/rules"
)

// FileName is the config file base name looked up in the repository root.
// Any extension viper understands is accepted (.yaml, .yml, .json, .toml).
const FileName = ".aiaudit"

// EnvPrefix prefixes environment overrides, e.g. AIAUDIT_SCAN_WORKERS.
const EnvPrefix = "AIAUDIT"

// CurrentVersion is the config schema version.
const CurrentVersion = 1

// Config represents the complete aiaudit configuration
type Config struct {
	Version int `json:"version" yaml:"version" toml:"version" mapstructure:"version"`

	Scan    ScanConfig    `json:"scan" yaml:"scan" toml:"scan" mapstructure:"scan"`
	Output  OutputConfig  `json:"output" yaml:"output" toml:"output" mapstructure:"output"`
	Logging LoggingConfig `json:"logging" yaml:"logging" toml:"logging" mapstructure:"logging"`
	Server  ServerConfig  `json:"server" yaml:"server" toml:"server" mapstructure:"server"`
	GitHub  GitHubConfig  `json:"github" yaml:"github" toml:"github" mapstructure:"github"`
}

// ScanConfig selects categories, threshold and scan tuning
type ScanConfig struct {
	AIPatterns        bool          `json:"aiPatterns" yaml:"aiPatterns" toml:"aiPatterns" mapstructure:"aiPatterns"`
	Security          bool          `json:"security" yaml:"security" toml:"security" mapstructure:"security"`
	Licenses          bool          `json:"licenses" yaml:"licenses" toml:"licenses" mapstructure:"licenses"`
	PII               bool          `json:"pii" yaml:"pii" toml:"pii" mapstructure:"pii"`
	SeverityThreshold string        `json:"severityThreshold" yaml:"severityThreshold" toml:"severityThreshold" mapstructure:"severityThreshold"`
	FailOnFindings    bool          `json:"failOnFindings" yaml:"failOnFindings" toml:"failOnFindings" mapstructure:"failOnFindings"`
	Workers           int           `json:"workers" yaml:"workers" toml:"workers" mapstructure:"workers"` // 0 = one per CPU
	MatchTimeout      time.Duration `json:"matchTimeout" yaml:"matchTimeout" toml:"matchTimeout" mapstructure:"matchTimeout"`
}

// OutputConfig contains report rendering options
type OutputConfig struct {
	Format string `json:"format" yaml:"format" toml:"format" mapstructure:"format"` // human, json, yaml, markdown, sarif
	Color  string `json:"color" yaml:"color" toml:"color" mapstructure:"color"`     // auto, always, never
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" yaml:"format" toml:"format" mapstructure:"format"`
	Level      string `json:"level" yaml:"level" toml:"level" mapstructure:"level"`
	File       string `json:"file,omitempty" yaml:"file,omitempty" toml:"file,omitempty" mapstructure:"file"`
	MaxSize    string `json:"maxSize,omitempty" yaml:"maxSize,omitempty" toml:"maxSize,omitempty" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups,omitempty" yaml:"maxBackups,omitempty" toml:"maxBackups,omitempty" mapstructure:"maxBackups"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr" toml:"addr" mapstructure:"addr"`
	MaxBodyBytes    int64         `json:"maxBodyBytes" yaml:"maxBodyBytes" toml:"maxBodyBytes" mapstructure:"maxBodyBytes"`
	ReadTimeout     time.Duration `json:"readTimeout" yaml:"readTimeout" toml:"readTimeout" mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `json:"writeTimeout" yaml:"writeTimeout" toml:"writeTimeout" mapstructure:"writeTimeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout" toml:"shutdownTimeout" mapstructure:"shutdownTimeout"`
	CORSOrigins     []string      `json:"corsOrigins,omitempty" yaml:"corsOrigins,omitempty" toml:"corsOrigins,omitempty" mapstructure:"corsOrigins"`
}

// GitHubConfig contains code host settings for the action command
type GitHubConfig struct {
	APIURL            string        `json:"apiUrl" yaml:"apiUrl" toml:"apiUrl" mapstructure:"apiUrl"`
	RequestsPerSecond float64       `json:"requestsPerSecond" yaml:"requestsPerSecond" toml:"requestsPerSecond" mapstructure:"requestsPerSecond"`
	Burst             int           `json:"burst" yaml:"burst" toml:"burst" mapstructure:"burst"`
	Timeout           time.Duration `json:"timeout" yaml:"timeout" toml:"timeout" mapstructure:"timeout"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Scan: ScanConfig{
			AIPatterns:        true,
			Security:          true,
			Licenses:          true,
			PII:               true,
			SeverityThreshold: string(rules.SeverityLow),
			FailOnFindings:    false,
			Workers:           0,
			MatchTimeout:      rules.DefaultMatchTimeout,
		},
		Output: OutputConfig{
			Format: "human",
			Color:  "auto",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
		},
		Server: ServerConfig{
			Addr:            "localhost:8480",
			MaxBodyBytes:    10 << 20,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		GitHub: GitHubConfig{
			APIURL:            "https://api.github.com",
			RequestsPerSecond: 10,
			Burst:             5,
			Timeout:           30 * time.Second,
		},
	}
}

// defaults registers every key so that AutomaticEnv can override it.
func defaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)

	v.SetDefault("scan.aiPatterns", d.Scan.AIPatterns)
	v.SetDefault("scan.security", d.Scan.Security)
	v.SetDefault("scan.licenses", d.Scan.Licenses)
	v.SetDefault("scan.pii", d.Scan.PII)
	v.SetDefault("scan.severityThreshold", d.Scan.SeverityThreshold)
	v.SetDefault("scan.failOnFindings", d.Scan.FailOnFindings)
	v.SetDefault("scan.workers", d.Scan.Workers)
	v.SetDefault("scan.matchTimeout", d.Scan.MatchTimeout)

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.color", d.Output.Color)

	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.maxBodyBytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.readTimeout", d.Server.ReadTimeout)
	v.SetDefault("server.writeTimeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdownTimeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.corsOrigins", d.Server.CORSOrigins)

	v.SetDefault("github.apiUrl", d.GitHub.APIURL)
	v.SetDefault("github.requestsPerSecond", d.GitHub.RequestsPerSecond)
	v.SetDefault("github.burst", d.GitHub.Burst)
	v.SetDefault("github.timeout", d.GitHub.Timeout)
}

// LoadConfig loads configuration. An explicit path must exist; otherwise
// .aiaudit.{yaml,yml,json,toml} is looked up in repoRoot and its absence
// yields the defaults. AIAUDIT_* environment variables override both.
func LoadConfig(path, repoRoot string) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(repoRoot)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, &ConfigError{Field: "file", Message: err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "file", Message: err.Error()}
	}
	return &cfg, nil
}

// Save writes the configuration, choosing the encoding from the extension.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	case ".toml":
		data, err = toml.Marshal(c)
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		return fmt.Errorf("unsupported config extension %q (use .yaml, .json or .toml)", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var (
	outputFormats = []string{"human", "json", "yaml", "markdown", "sarif"}
	logFormats    = []string{"human", "json"}
	colorModes    = []string{"auto", "always", "never"}
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if _, err := rules.ParseSeverity(c.Scan.SeverityThreshold); err != nil {
		return &ConfigError{Field: "scan.severityThreshold", Message: err.Error()}
	}
	if c.Scan.Workers < 0 {
		return &ConfigError{Field: "scan.workers", Message: "must not be negative"}
	}
	if c.Scan.MatchTimeout <= 0 {
		return &ConfigError{Field: "scan.matchTimeout", Message: "must be positive"}
	}
	if !oneOf(c.Output.Format, outputFormats) {
		return &ConfigError{Field: "output.format", Message: "must be one of " + strings.Join(outputFormats, ", ")}
	}
	if !oneOf(c.Output.Color, colorModes) {
		return &ConfigError{Field: "output.color", Message: "must be one of " + strings.Join(colorModes, ", ")}
	}
	if !oneOf(c.Logging.Format, logFormats) {
		return &ConfigError{Field: "logging.format", Message: "must be one of " + strings.Join(logFormats, ", ")}
	}
	if c.Server.Addr == "" {
		return &ConfigError{Field: "server.addr", Message: "must not be empty"}
	}
	if c.Server.MaxBodyBytes <= 0 {
		return &ConfigError{Field: "server.maxBodyBytes", Message: "must be positive"}
	}
	if c.GitHub.RequestsPerSecond <= 0 || c.GitHub.Burst < 1 {
		return &ConfigError{Field: "github.requestsPerSecond", Message: "rate limit must be positive with burst >= 1"}
	}
	return nil
}

// ScanOptions converts the scan section into engine options. Call Validate first.
func (c *Config) ScanOptions() audit.ScanConfig {
	sev, err := rules.ParseSeverity(c.Scan.SeverityThreshold)
	if err != nil {
		sev = rules.SeverityLow
	}
	workers := c.Scan.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return audit.ScanConfig{
		AIPatterns:        c.Scan.AIPatterns,
		Security:          c.Scan.Security,
		Licenses:          c.Scan.Licenses,
		PII:               c.Scan.PII,
		SeverityThreshold: sev,
		FailOnFindings:    c.Scan.FailOnFindings,
		Workers:           workers,
		MatchTimeout:      c.Scan.MatchTimeout,
	}
}

func oneOf(s string, allowed []string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

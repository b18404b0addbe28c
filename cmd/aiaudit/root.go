package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"aiaudit/internal/config"
	"aiaudit/internal/rules"
	"aiaudit/internal/slogutil"
	"aiaudit/internal/version"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logFormat  string
	logLevel   string
	verbosity  int
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "aiaudit",
	Short: "aiaudit - audit AI-generated code changes",
	Long: `aiaudit inspects changed source files for four classes of risk: security
vulnerabilities, copyleft license contamination, PII and secret leaks, and
patterns typical of machine-generated code.

It scans local files, unified diffs and GitHub pull requests, and reports
severity-ranked findings for terminals, CI systems and pull request comments.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("aiaudit version {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default: .aiaudit.{yaml,json,toml} in the repository root)")
	pf.StringVar(&logFormat, "log-format", "", "Log format: human, json (default from config)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	pf.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Suppress log output")
}

// exitError ends the process with code after printing msg, if any.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("exit status %d", e.code)
}

// env is what every command needs: validated config, a logger and the
// catalogs compiled with the configured match timeout.
type env struct {
	repoRoot string
	cfg      *config.Config
	logger   *slog.Logger
	rules    *rules.Set
	closer   io.Closer
}

func (e *env) Close() error {
	return e.closer.Close()
}

// newEnv loads config and sets up logging.
// Precedence for the log level: -q/-v > --log-level > config.
func newEnv() (*env, error) {
	repoRoot, err := getRepoRoot()
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(configPath, repoRoot)
	if err != nil {
		return nil, err
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := slogutil.LevelFromString(cfg.Logging.Level)
	switch {
	case quiet || verbosity > 0:
		level = slogutil.LevelFromVerbosity(verbosity, quiet)
	case logLevel != "":
		level = slogutil.LevelFromString(logLevel)
	}

	logger, closer, err := slogutil.Setup(os.Stderr, slogutil.Options{
		Format:     cfg.Logging.Format,
		Level:      level,
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return nil, err
	}

	set, err := loadRules(cfg)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	logger.Debug("Configuration loaded",
		"repoRoot", repoRoot,
		"config", configPath,
		"rules", set.RuleCount(),
	)

	return &env{
		repoRoot: repoRoot,
		cfg:      cfg,
		logger:   logger,
		rules:    set,
		closer:   closer,
	}, nil
}

// loadRules returns the shared catalogs unless a custom match timeout
// requires compiling a private copy.
func loadRules(cfg *config.Config) (*rules.Set, error) {
	if cfg.Scan.MatchTimeout == rules.DefaultMatchTimeout {
		return rules.Default(), nil
	}
	return rules.Load(rules.Options{MatchTimeout: cfg.Scan.MatchTimeout})
}

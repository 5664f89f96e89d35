// Package config loads the speechcost settings from .env files and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/j-veylop/speechcost-tui/internal/models"
)

// Config holds the application configuration. The env tag names the
// variable each field is read from.
type Config struct {
	DatabasePath           string           `env:"DATABASE_PATH" validate:"required"`
	PricingPath            string           `env:"PRICING_PATH"`
	InboxPath              string           `env:"INBOX_PATH"`
	LogPath                string           `env:"LOG_PATH"`
	LogLevel               string           `env:"LOG_LEVEL"`
	MonthlyUsers           int              `env:"MONTHLY_USERS" validate:"gte=0"`
	MonthlyBudgetUSD       float64          `env:"MONTHLY_BUDGET_USD" validate:"gte=0"`
	ProfileRefreshInterval time.Duration    `env:"PROFILE_REFRESH_INTERVAL" validate:"gt=0"`
	ProfileWindow          models.TimeRange `env:"PROFILE_WINDOW"`
	RetentionDays          int              `env:"RETENTION_DAYS" validate:"gte=0"`
}

const (
	defaultMonthlyUsers           = 1000
	defaultProfileRefreshInterval = 30 * time.Second
	defaultProfileWindow          = models.TimeRange7Days
	defaultLogLevel               = "info"

	appDirName = "speechcost"
)

var validate = newValidator()

// newValidator reports fields by their environment variable name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})
	return v
}

// Load reads the first .env file found by envFileCandidates, then the
// environment. Variables already set in the environment win over the file.
func Load() (*Config, error) {
	for _, path := range envFileCandidates() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	dir := defaultDir()
	cfg := &Config{
		DatabasePath:           envOr("DATABASE_PATH", filepath.Join(dir, "usage.db"), parseString),
		PricingPath:            envOr("PRICING_PATH", filepath.Join(dir, "pricing.yaml"), parseString),
		InboxPath:              envOr("INBOX_PATH", filepath.Join(dir, "inbox"), parseString),
		LogPath:                envOr("LOG_PATH", filepath.Join(dir, "sct.log"), parseString),
		LogLevel:               strings.ToLower(envOr("LOG_LEVEL", defaultLogLevel, parseString)),
		MonthlyUsers:           envOr("MONTHLY_USERS", defaultMonthlyUsers, strconv.Atoi),
		MonthlyBudgetUSD:       envOr("MONTHLY_BUDGET_USD", 0, parseFloat),
		ProfileRefreshInterval: envOr("PROFILE_REFRESH_INTERVAL", defaultProfileRefreshInterval, parseDuration),
		RetentionDays:          envOr("RETENTION_DAYS", 0, strconv.Atoi),
	}

	window, err := models.ParseTimeRange(envOr("PROFILE_WINDOW", defaultProfileWindow.Flag(), parseString))
	if err != nil {
		return nil, fmt.Errorf("invalid PROFILE_WINDOW: %w", err)
	}
	cfg.ProfileWindow = window

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, d := range []string{filepath.Dir(cfg.DatabasePath), filepath.Dir(cfg.LogPath)} {
		if err := ensureDir(d); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Validate rejects values that have no sensible fallback. Errors name the
// offending environment variable.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}

	msgs := make([]string, 0, len(fields))
	for _, fe := range fields {
		msgs = append(msgs, fmt.Sprintf("%s=%v fails %s%s", fe.Field(), fe.Value(), fe.Tag(), paramSuffix(fe.Param())))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

// Retention returns how long raw request rows are kept (0 = forever).
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// envFileCandidates lists .env locations in lookup order: the working
// directory, the per-user config dirs, then two parents of the working
// directory for running from a source checkout.
func envFileCandidates() []string {
	var paths []string
	cwd, cwdErr := os.Getwd()
	if cwdErr == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", appDirName, ".env"),
			filepath.Join(home, "."+appDirName, ".env"),
		)
	}
	if cwdErr == nil {
		parent := filepath.Dir(cwd)
		paths = append(paths, filepath.Join(parent, ".env"), filepath.Join(filepath.Dir(parent), ".env"))
	}
	return paths
}

// defaultDir holds the database, rate card, inbox and log by default.
func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", appDirName)
}

// envOr parses the variable key, falling back to def when it is unset,
// blank or does not parse.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func parseString(s string) (string, error) { return s, nil }

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// parseDuration accepts Go durations ("30s", "2m") or bare seconds ("60").
func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(secs) * time.Second, nil
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return nil
}

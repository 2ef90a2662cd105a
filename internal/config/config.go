package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	IndexDir  string `toml:"index_dir"`
	LogDir    string `toml:"log_dir"`
	ExportDir string `toml:"export_dir"`
}

// Catalog contains configuration for the external card catalog API.
type Catalog struct {
	APIKey               string `toml:"api_key"`
	BaseURL              string `toml:"base_url"`
	RequestTimeout       int    `toml:"request_timeout"`
	PageSize             int    `toml:"page_size"`
	MinRequestIntervalMS int    `toml:"min_request_interval_ms"`
	BackoffScheduleMS    []int  `toml:"backoff_schedule_ms"`
}

// Matcher contains configuration for the visual match pipeline and the
// text-resolution acceptance threshold.
type Matcher struct {
	SearchTopK        int     `toml:"search_top_k"`
	RerankTopK        int     `toml:"rerank_top_k"`
	AcceptConfidence  float64 `toml:"accept_confidence"`
	ReviewConfidence  float64 `toml:"review_confidence"`
	MaxFeatures       int     `toml:"max_features"`
	RatioTest         float64 `toml:"ratio_test"`
	RANSACThresholdPx float64 `toml:"ransac_threshold_px"`
	MinResolveScore   float64 `toml:"min_resolve_score"`
}

// Cache contains freshness settings for the local resolution cache.
type Cache struct {
	PriceMaxAgeHours int `toml:"price_max_age_hours"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Resolved       bool   `toml:"resolved"`
	NoMatch        bool   `toml:"no_match"`
	Errors         bool   `toml:"errors"`
	Batch          bool   `toml:"batch"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cardscan.
//
// Configuration sections by subsystem:
//   - Paths: data, index, log, and export directories
//   - Catalog: external card catalog API, rate limit, and retry schedule
//   - Matcher: visual search/verification knobs and resolve acceptance
//   - Cache: price snapshot freshness window
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Catalog       Catalog       `toml:"catalog"`
	Matcher       Matcher       `toml:"matcher"`
	Cache         Cache         `toml:"cache"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cardscan/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/cardscan/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cardscan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories batch processing writes to.
// The index directory is excluded: it is produced by "index build" and its
// absence must surface as the index-unavailable startup error instead.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.ExportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "cardscan.db")
}

// LockPath returns the lock file guarding batch runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "cardscan.lock")
}

// Timeout returns the catalog request timeout as a duration.
func (c *Catalog) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// MinRequestInterval returns the minimum spacing between outbound catalog requests.
func (c *Catalog) MinRequestInterval() time.Duration {
	return time.Duration(c.MinRequestIntervalMS) * time.Millisecond
}

// BackoffSchedule returns the retry delays as durations.
func (c *Catalog) BackoffSchedule() []time.Duration {
	schedule := make([]time.Duration, 0, len(c.BackoffScheduleMS))
	for _, ms := range c.BackoffScheduleMS {
		schedule = append(schedule, time.Duration(ms)*time.Millisecond)
	}
	return schedule
}

// PriceMaxAge returns the price freshness window as a duration.
func (c *Cache) PriceMaxAge() time.Duration {
	return time.Duration(c.PriceMaxAgeHours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

package testsupport

import (
	"path/filepath"
	"testing"

	"cardscan/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.IndexDir = filepath.Join(base, "index")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ExportDir = filepath.Join(base, "exports")
	cfgVal.Catalog.APIKey = "test"
	cfgVal.Catalog.MinRequestIntervalMS = 1
	cfgVal.Catalog.BackoffScheduleMS = []int{1, 1, 1}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCatalogBaseURL points the catalog client at a test server.
func WithCatalogBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.BaseURL = url
	}
}

// WithCatalogAPIKey sets the catalog API key on the test config.
func WithCatalogAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.APIKey = key
	}
}

// WithMinRequestInterval overrides the rate limiter spacing in milliseconds.
func WithMinRequestInterval(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.MinRequestIntervalMS = ms
	}
}

// WithBackoffSchedule overrides the retry delays in milliseconds.
func WithBackoffSchedule(ms ...int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.BackoffScheduleMS = ms
	}
}

// WithPriceMaxAgeHours overrides the price cache freshness window.
func WithPriceMaxAgeHours(hours int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.PriceMaxAgeHours = hours
	}
}

// WithNtfyTopic enables push notifications against the provided topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
		b.cfg.Notifications.Resolved = true
		b.cfg.Notifications.NoMatch = true
		b.cfg.Notifications.Errors = true
		b.cfg.Notifications.Batch = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

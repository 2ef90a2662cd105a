package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalog()
	c.normalizeMatcher()
	c.normalizeCache()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.IndexDir) == "" {
		c.Paths.IndexDir = defaultIndexDir
	}
	if c.Paths.IndexDir, err = expandPath(c.Paths.IndexDir); err != nil {
		return fmt.Errorf("paths.index_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalog() {
	c.Catalog.APIKey = strings.TrimSpace(c.Catalog.APIKey)
	if c.Catalog.APIKey == "" {
		if value, ok := os.LookupEnv("CARDSCAN_CATALOG_API_KEY"); ok {
			c.Catalog.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("POKEMON_TCG_API_KEY"); ok {
			c.Catalog.APIKey = strings.TrimSpace(value)
		}
	}
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaultCatalogBaseURL
	}
	if c.Catalog.RequestTimeout <= 0 {
		c.Catalog.RequestTimeout = defaultCatalogTimeout
	}
	if c.Catalog.PageSize <= 0 {
		c.Catalog.PageSize = defaultCatalogPageSize
	}
	if c.Catalog.MinRequestIntervalMS <= 0 {
		c.Catalog.MinRequestIntervalMS = defaultMinRequestIntervalMS
	}
	if len(c.Catalog.BackoffScheduleMS) == 0 {
		c.Catalog.BackoffScheduleMS = defaultBackoffScheduleMS()
	}
}

func (c *Config) normalizeMatcher() {
	if c.Matcher.SearchTopK <= 0 {
		c.Matcher.SearchTopK = defaultSearchTopK
	}
	if c.Matcher.RerankTopK <= 0 {
		c.Matcher.RerankTopK = defaultRerankTopK
	}
	if c.Matcher.AcceptConfidence == 0 {
		c.Matcher.AcceptConfidence = defaultAcceptConfidence
	}
	if c.Matcher.ReviewConfidence == 0 {
		c.Matcher.ReviewConfidence = defaultReviewConfidence
	}
	if c.Matcher.MaxFeatures <= 0 {
		c.Matcher.MaxFeatures = defaultMaxFeatures
	}
	if c.Matcher.RatioTest <= 0 {
		c.Matcher.RatioTest = defaultRatioTest
	}
	if c.Matcher.RANSACThresholdPx <= 0 {
		c.Matcher.RANSACThresholdPx = defaultRANSACThresholdPx
	}
	if c.Matcher.MinResolveScore <= 0 {
		c.Matcher.MinResolveScore = defaultMinResolveScore
	}
}

func (c *Config) normalizeCache() {
	if c.Cache.PriceMaxAgeHours < 0 {
		c.Cache.PriceMaxAgeHours = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

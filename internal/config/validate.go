package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateMatcher(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.IndexDir) == "" {
		return errors.New("paths.index_dir must be set")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	parsed, err := url.Parse(c.Catalog.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("catalog.base_url %q is not a valid URL", c.Catalog.BaseURL)
	}
	if c.Catalog.RequestTimeout <= 0 {
		return errors.New("catalog.request_timeout must be positive (seconds)")
	}
	if c.Catalog.PageSize <= 0 {
		return errors.New("catalog.page_size must be positive")
	}
	if c.Catalog.MinRequestIntervalMS <= 0 {
		return errors.New("catalog.min_request_interval_ms must be positive")
	}
	for _, ms := range c.Catalog.BackoffScheduleMS {
		if ms <= 0 {
			return errors.New("catalog.backoff_schedule_ms entries must be positive")
		}
	}
	return nil
}

func (c *Config) validateMatcher() error {
	if c.Matcher.AcceptConfidence <= 0 || c.Matcher.AcceptConfidence > 1 {
		return errors.New("matcher.accept_confidence must be in (0, 1]")
	}
	if c.Matcher.ReviewConfidence <= 0 || c.Matcher.ReviewConfidence > 1 {
		return errors.New("matcher.review_confidence must be in (0, 1]")
	}
	if c.Matcher.ReviewConfidence > c.Matcher.AcceptConfidence {
		return errors.New("matcher.review_confidence must not exceed matcher.accept_confidence")
	}
	if c.Matcher.RatioTest <= 0 || c.Matcher.RatioTest >= 1 {
		return errors.New("matcher.ratio_test must be in (0, 1)")
	}
	if c.Matcher.RerankTopK > c.Matcher.SearchTopK {
		return errors.New("matcher.rerank_top_k must not exceed matcher.search_top_k")
	}
	if c.Matcher.MinResolveScore <= 0 || c.Matcher.MinResolveScore >= 100 {
		return errors.New("matcher.min_resolve_score must be in (0, 100)")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic %q must be a full ntfy topic URL", c.Notifications.NtfyTopic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

package config

const (
	defaultDataDir   = "~/.local/share/cardscan"
	defaultIndexDir  = "~/.local/share/cardscan/index"
	defaultLogDir    = "~/.local/share/cardscan/logs"
	defaultExportDir = "~/.local/share/cardscan/exports"

	defaultCatalogBaseURL        = "https://api.pokemontcg.io/v2"
	defaultCatalogTimeout        = 10
	defaultCatalogPageSize       = 10
	defaultMinRequestIntervalMS  = 200
	defaultNotifyRequestTimeout  = 10
	defaultPriceMaxAgeHours      = 24
	defaultSearchTopK            = 10
	defaultRerankTopK            = 5
	defaultAcceptConfidence      = 0.85
	defaultReviewConfidence      = 0.70
	defaultMaxFeatures           = 1000
	defaultRatioTest             = 0.75
	defaultRANSACThresholdPx     = 5.0
	defaultMinResolveScore       = 60
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// defaultBackoffScheduleMS is the fixed retry schedule for transient catalog
// failures. Three retries, then the error propagates.
func defaultBackoffScheduleMS() []int {
	return []int{200, 1000, 3000}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			IndexDir:  defaultIndexDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
		},
		Catalog: Catalog{
			BaseURL:              defaultCatalogBaseURL,
			RequestTimeout:       defaultCatalogTimeout,
			PageSize:             defaultCatalogPageSize,
			MinRequestIntervalMS: defaultMinRequestIntervalMS,
			BackoffScheduleMS:    defaultBackoffScheduleMS(),
		},
		Matcher: Matcher{
			SearchTopK:        defaultSearchTopK,
			RerankTopK:        defaultRerankTopK,
			AcceptConfidence:  defaultAcceptConfidence,
			ReviewConfidence:  defaultReviewConfidence,
			MaxFeatures:       defaultMaxFeatures,
			RatioTest:         defaultRatioTest,
			RANSACThresholdPx: defaultRANSACThresholdPx,
			MinResolveScore:   defaultMinResolveScore,
		},
		Cache: Cache{
			PriceMaxAgeHours: defaultPriceMaxAgeHours,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Resolved:       true,
			NoMatch:        true,
			Errors:         true,
			Batch:          true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

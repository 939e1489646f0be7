package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// config holds every knob the addon's components need, assembled from
// flags with environment variable overrides, matching the teacher's
// parseConfig/isArgSet pattern.
type config struct {
	Host string
	Port int

	LogLevel string

	CacheEnabled      bool
	CacheMaxMemoryMB  int
	CacheDefaultTTL   time.Duration
	CacheMaxEntries   int
	CacheSweepPeriod  time.Duration

	SearchMaxResults       int
	SearchTimeout          time.Duration
	MaxConcurrentSearches  int

	SnapshotSources string // comma-separated "name=path_or_url" pairs

	AggregatorBaseURL  string
	AggregatorLanguage string

	CinemetaBaseURL string

	YTSEnabled      bool
	YTSBaseURL      string
	YTSRateLimit    int
	YTSTimeout      time.Duration
	LeetxEnabled    bool
	LeetxBaseURL    string
	LeetxRateLimit  int
	LeetxTimeout    time.Duration
	IbitEnabled     bool
	IbitBaseURL     string
	IbitRateLimit   int
	IbitTimeout     time.Duration
}

func parseConfig() config {
	var (
		host = flag.String("host", "0.0.0.0", `Interface to bind to. "0.0.0.0" binds to all network interfaces.`)
		port = flag.Int("port", 8080, "Port to listen on")

		logLevel = flag.String("logLevel", "info", `Log level: "debug", "info", "warn", "error".`)

		cacheEnabled     = flag.Bool("cacheEnabled", true, "Parsed but has no effect: the in-memory stream cache is always built")
		cacheMaxMemoryMB = flag.Int("cacheMaxMemoryMB", 64, "Max megabytes the stream cache may hold before evicting")
		cacheDefaultTTL  = flag.Duration("cacheDefaultTTL", 30*time.Minute, "TTL for cache entries stored without one; adaptive stream TTLs start from the built-in 30m, not this value")
		cacheMaxEntries  = flag.Int("cacheMaxEntries", 1000, "Max number of cache entries before LRU eviction")
		cacheSweepPeriod = flag.Duration("cacheSweepPeriod", 5*time.Minute, "Interval between background expired-entry sweeps")

		searchMaxResults      = flag.Int("searchMaxResults", 50, "Max results returned by /api/search")
		searchTimeout         = flag.Duration("searchTimeout", 15*time.Second, "Parsed but has no effect: each provider search uses the built-in 15s timeout")
		maxConcurrentSearches = flag.Int("maxConcurrentSearches", 3, "Max providers queried concurrently per search")

		snapshotSources = flag.String("snapshotSources", "", `Comma-separated "name=path_or_url" snapshot store list`)

		aggregatorBaseURL  = flag.String("aggregatorBaseURL", "", "Base URL for the remote magnet aggregator")
		aggregatorLanguage = flag.String("aggregatorLanguage", "en", "Default language for aggregator requests")

		cinemetaBaseURL = flag.String("cinemetaBaseURL", "", "Base URL for the Cinemeta metadata service (empty uses the public instance)")

		ytsEnabled   = flag.Bool("ytsEnabled", true, "Enable the YTS search provider")
		ytsBaseURL   = flag.String("ytsBaseURL", "https://yts.mx", "Base URL for YTS")
		ytsRateLimit = flag.Int("ytsRateLimit", 30, "Parsed but has no effect: YTS is limited to a fixed 30 requests per minute")
		ytsTimeout   = flag.Duration("ytsTimeout", 8*time.Second, "YTS request timeout")

		leetxEnabled   = flag.Bool("leetxEnabled", true, "Enable the 1337x search provider")
		leetxBaseURL   = flag.String("leetxBaseURL", "https://1337x.to", "Base URL for 1337x")
		leetxRateLimit = flag.Int("leetxRateLimit", 20, "Parsed but has no effect: 1337x is limited to a fixed 20 requests per minute")
		leetxTimeout   = flag.Duration("leetxTimeout", 8*time.Second, "1337x request timeout")

		ibitEnabled   = flag.Bool("ibitEnabled", true, "Enable the ibit search provider")
		ibitBaseURL   = flag.String("ibitBaseURL", "https://ibit.am", "Base URL for ibit")
		ibitRateLimit = flag.Int("ibitRateLimit", 20, "Parsed but has no effect: ibit is limited to a fixed 20 requests per minute")
		ibitTimeout   = flag.Duration("ibitTimeout", 8*time.Second, "ibit request timeout")
	)

	flag.Parse()

	overrideString(host, "HOST")
	overrideInt(port, "PORT")
	overrideString(logLevel, "LOG_LEVEL")
	overrideBool(cacheEnabled, "CACHE_ENABLED")
	overrideInt(cacheMaxMemoryMB, "CACHE_MAX_MEMORY_MB")
	overrideDuration(cacheDefaultTTL, "CACHE_DEFAULT_TTL")
	overrideInt(cacheMaxEntries, "CACHE_MAX_ENTRIES")
	overrideDuration(cacheSweepPeriod, "CACHE_SWEEP_PERIOD")
	overrideInt(searchMaxResults, "SEARCH_MAX_RESULTS")
	overrideDuration(searchTimeout, "SEARCH_TIMEOUT")
	overrideInt(maxConcurrentSearches, "MAX_CONCURRENT_SEARCHES")
	overrideString(snapshotSources, "SNAPSHOT_SOURCES")
	overrideString(aggregatorBaseURL, "AGGREGATOR_BASE_URL")
	overrideString(aggregatorLanguage, "AGGREGATOR_LANGUAGE")
	overrideString(cinemetaBaseURL, "CINEMETA_BASE_URL")
	overrideBool(ytsEnabled, "YTS_ENABLED")
	overrideString(ytsBaseURL, "YTS_BASE_URL")
	overrideInt(ytsRateLimit, "YTS_RATE_LIMIT")
	overrideDuration(ytsTimeout, "YTS_TIMEOUT")
	overrideBool(leetxEnabled, "LEETX_ENABLED")
	overrideString(leetxBaseURL, "LEETX_BASE_URL")
	overrideInt(leetxRateLimit, "LEETX_RATE_LIMIT")
	overrideDuration(leetxTimeout, "LEETX_TIMEOUT")
	overrideBool(ibitEnabled, "IBIT_ENABLED")
	overrideString(ibitBaseURL, "IBIT_BASE_URL")
	overrideInt(ibitRateLimit, "IBIT_RATE_LIMIT")
	overrideDuration(ibitTimeout, "IBIT_TIMEOUT")

	return config{
		Host:                  *host,
		Port:                  *port,
		LogLevel:              *logLevel,
		CacheEnabled:          *cacheEnabled,
		CacheMaxMemoryMB:      *cacheMaxMemoryMB,
		CacheDefaultTTL:       *cacheDefaultTTL,
		CacheMaxEntries:       *cacheMaxEntries,
		CacheSweepPeriod:      *cacheSweepPeriod,
		SearchMaxResults:      *searchMaxResults,
		SearchTimeout:         *searchTimeout,
		MaxConcurrentSearches: *maxConcurrentSearches,
		SnapshotSources:       *snapshotSources,
		AggregatorBaseURL:     *aggregatorBaseURL,
		AggregatorLanguage:    *aggregatorLanguage,
		CinemetaBaseURL:       *cinemetaBaseURL,
		YTSEnabled:            *ytsEnabled,
		YTSBaseURL:            *ytsBaseURL,
		YTSRateLimit:          *ytsRateLimit,
		YTSTimeout:            *ytsTimeout,
		LeetxEnabled:          *leetxEnabled,
		LeetxBaseURL:          *leetxBaseURL,
		LeetxRateLimit:        *leetxRateLimit,
		LeetxTimeout:          *leetxTimeout,
		IbitEnabled:           *ibitEnabled,
		IbitBaseURL:           *ibitBaseURL,
		IbitRateLimit:         *ibitRateLimit,
		IbitTimeout:           *ibitTimeout,
	}
}

// validate fails fast on nonsensical combinations, mirroring the
// teacher's config.validate step.
func (c config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.CacheMaxMemoryMB <= 0 {
		return fmt.Errorf("cacheMaxMemoryMB must be positive")
	}
	if c.SearchMaxResults <= 0 {
		return fmt.Errorf("searchMaxResults must be positive")
	}
	if c.MaxConcurrentSearches <= 0 {
		return fmt.Errorf("maxConcurrentSearches must be positive")
	}
	return nil
}

// snapshotSourceList parses the "name=path_or_url,name=path_or_url" form
// into ordered (name, source) pairs.
func (c config) snapshotSourceList() [][2]string {
	var out [][2]string
	if c.SnapshotSources == "" {
		return out
	}
	for _, pair := range strings.Split(c.SnapshotSources, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out = append(out, [2]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])})
	}
	return out
}

// isArgSet returns true if arg was actually set as a command line flag,
// so an environment variable never clobbers an explicit flag value.
func isArgSet(arg string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == arg {
			found = true
		}
	})
	return found
}

func overrideString(target *string, envVar string) {
	if isArgSet(flagNameFor(envVar)) {
		return
	}
	if val, ok := os.LookupEnv(envVar); ok {
		*target = val
	}
}

func overrideInt(target *int, envVar string) {
	if isArgSet(flagNameFor(envVar)) {
		return
	}
	if val, ok := os.LookupEnv(envVar); ok {
		if n, err := strconv.Atoi(val); err == nil {
			*target = n
		}
	}
}

func overrideBool(target *bool, envVar string) {
	if isArgSet(flagNameFor(envVar)) {
		return
	}
	if val, ok := os.LookupEnv(envVar); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			*target = b
		}
	}
}

func overrideDuration(target *time.Duration, envVar string) {
	if isArgSet(flagNameFor(envVar)) {
		return
	}
	if val, ok := os.LookupEnv(envVar); ok {
		if d, err := time.ParseDuration(val); err == nil {
			*target = d
		}
	}
}

// flagNameFor maps an UPPER_SNAKE_CASE env var to its camelCase flag
// name, e.g. "CACHE_MAX_ENTRIES" -> "cacheMaxEntries". The acronyms URL,
// MB and TTL stay upper-case, e.g. "YTS_BASE_URL" -> "ytsBaseURL".
func flagNameFor(envVar string) string {
	parts := strings.Split(strings.ToLower(envVar), "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			b.WriteString(p)
			continue
		}
		if p == "url" || p == "mb" || p == "ttl" {
			b.WriteString(strings.ToUpper(p))
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

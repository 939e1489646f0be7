// Package search implements the SearchOrchestrator component: parallel
// fan-out to scraping providers with per-provider rate limiting and
// timeout, result merge, dedup, sort and truncation.
package search

import (
	"fmt"
	"strings"
	"time"
)

// Query is the canonical SearchQuery from spec.md §3. Identity for
// caching is its CacheKey.
type Query struct {
	Term     string
	Type     string // movie, series, anime
	ImdbID   string
	Year     string
	Quality  string
	Language string
	Season   int
	Episode  int
}

// CacheKey returns a stable string derived from every normalized field,
// suitable as a cache key and as part of the per-provider-set cache key.
func (q Query) CacheKey() string {
	return strings.ToLower(strings.Join([]string{
		q.Term, q.Type, q.ImdbID, q.Year, q.Quality, q.Language,
		fmt.Sprintf("s%de%d", q.Season, q.Episode),
	}, "|"))
}

// ProviderStatus is the outcome of a single provider's fan-out task.
type ProviderStatus string

const (
	ProviderStatusSuccess ProviderStatus = "success"
	ProviderStatusError   ProviderStatus = "error"
)

// ProviderStats is the per-provider availability snapshot exposed by
// GET /api/providers/stats.
type ProviderStats struct {
	ID               string     `json:"id"`
	Available        bool       `json:"available"`
	LastRequestAt    *time.Time `json:"lastRequestAt,omitempty"`
	RequestsInWindow int        `json:"requestsInWindow"`
	SuccessCount     int64      `json:"successCount"`
	FailureCount     int64      `json:"failureCount"`
	LastFailureAt    *time.Time `json:"lastFailureAt,omitempty"`
	CircuitState     string     `json:"circuitState"` // closed, open
}

// SortBy selects the merge sort criterion.
type SortBy string

const (
	SortByQuality SortBy = "quality"
	SortBySeeders SortBy = "seeders"
	SortBySize    SortBy = "size"
	SortByDate    SortBy = "date"
)

const (
	DefaultMaxConcurrentSearches = 3
	DefaultProviderTimeout       = 15 * time.Second
	DefaultMaxResults            = 50
	HardMaxResults               = 100
	DefaultCacheTTL               = 30 * time.Minute
)

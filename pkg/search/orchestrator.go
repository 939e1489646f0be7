package search

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tst4ckr/streamio-magnet-resolver/pkg/cachestore"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/magnet"
)

// TaskResult is one provider's outcome within a single Search call.
type TaskResult struct {
	ProviderID   string
	Results      []*magnet.Descriptor
	Status       ProviderStatus
	ResponseTime time.Duration
	Error        string
}

// Result is the Orchestrator.Search return shape.
type Result struct {
	Results       []*magnet.Descriptor
	ProviderStats map[string]TaskResult
	FromCache     bool
}

// Config carries Orchestrator construction parameters.
type Config struct {
	MaxConcurrentSearches int
	MaxResults            int
	CacheTTL              time.Duration
}

// Orchestrator implements SearchOrchestrator: it fans a query out to a
// bounded set of providers, enforcing a per-provider rate limit and
// timeout, then merges, dedups, sorts and truncates the combined result.
type Orchestrator struct {
	providers []Provider
	limiters  map[string]*rate.Limiter
	cache     *cachestore.Cache
	logger    *zap.Logger

	maxConcurrent int
	maxResults    int
	cacheTTL      time.Duration

	mu    sync.Mutex
	stats map[string]*ProviderStats
}

// New constructs an Orchestrator over providers, sharing cache for
// result memoization.
func New(providers []Provider, cache *cachestore.Cache, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.MaxConcurrentSearches <= 0 {
		cfg.MaxConcurrentSearches = DefaultMaxConcurrentSearches
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.MaxResults > HardMaxResults {
		cfg.MaxResults = HardMaxResults
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	o := &Orchestrator{
		providers:     providers,
		limiters:      make(map[string]*rate.Limiter, len(providers)),
		cache:         cache,
		logger:        logger,
		maxConcurrent: cfg.MaxConcurrentSearches,
		maxResults:    cfg.MaxResults,
		cacheTTL:      cfg.CacheTTL,
		stats:         make(map[string]*ProviderStats, len(providers)),
	}
	for _, p := range providers {
		o.limiters[p.ID()] = rate.NewLimiter(rate.Limit(float64(p.RequestsPerMinute())/60.0), p.RequestsPerMinute())
		o.stats[p.ID()] = &ProviderStats{ID: p.ID(), Available: true, CircuitState: "closed"}
	}
	return o
}

// Search runs query across the selected providers (or all enabled ones
// when providerIDs is empty), merges their results, and returns them
// sorted by sortBy.
func (o *Orchestrator) Search(ctx context.Context, q Query, providerIDs []string, skipCache bool, sortBy SortBy) Result {
	cacheKey := "search:" + q.CacheKey() + ":" + providerSetKey(providerIDs)
	if !skipCache {
		if cached, ok := o.cache.Get(cacheKey); ok {
			if r, ok := cached.(Result); ok {
				r.FromCache = true
				return r
			}
		}
	}

	selected := o.selectProviders(providerIDs)

	taskResults := o.fanOut(ctx, selected, q)

	var merged []*magnet.Descriptor
	for _, tr := range taskResults {
		merged = append(merged, tr.Results...)
	}
	merged = magnet.DedupByInfoHash(merged)
	sortResults(merged, sortBy)
	if len(merged) > o.maxResults {
		merged = merged[:o.maxResults]
	}

	result := Result{
		Results:       merged,
		ProviderStats: taskResults,
		FromCache:     false,
	}
	o.cache.Set(cacheKey, result, o.cacheTTL, nil)
	return result
}

func (o *Orchestrator) selectProviders(providerIDs []string) []Provider {
	if len(providerIDs) == 0 {
		selected := o.providers
		if len(selected) > o.maxConcurrent {
			selected = selected[:o.maxConcurrent]
		}
		return selected
	}

	wanted := make(map[string]struct{}, len(providerIDs))
	for _, id := range providerIDs {
		wanted[id] = struct{}{}
	}

	var selected []Provider
	for _, p := range o.providers {
		if _, ok := wanted[p.ID()]; ok {
			selected = append(selected, p)
			if len(selected) == o.maxConcurrent {
				break
			}
		}
	}
	return selected
}

func (o *Orchestrator) fanOut(ctx context.Context, providers []Provider, q Query) map[string]TaskResult {
	results := make(map[string]TaskResult, len(providers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, p := range providers {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr := o.runProvider(ctx, p, q)
			mu.Lock()
			results[p.ID()] = tr
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) runProvider(ctx context.Context, p Provider, q Query) TaskResult {
	limiter := o.limiters[p.ID()]
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return o.recordFailure(p.ID(), 0, err)
		}
	}

	providerCtx, cancel := context.WithTimeout(ctx, DefaultProviderTimeout)
	defer cancel()

	start := time.Now()
	results, err := p.Search(providerCtx, q)
	elapsed := time.Since(start)

	if err != nil {
		return o.recordFailure(p.ID(), elapsed, err)
	}

	p.Rank(results)
	o.recordSuccess(p.ID(), elapsed)

	return TaskResult{
		ProviderID:   p.ID(),
		Results:      results,
		Status:       ProviderStatusSuccess,
		ResponseTime: elapsed,
	}
}

func (o *Orchestrator) recordSuccess(providerID string, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.stats[providerID]
	if s == nil {
		return
	}
	now := time.Now()
	s.LastRequestAt = &now
	s.SuccessCount++
	s.Available = true
	s.CircuitState = "closed"
}

func (o *Orchestrator) recordFailure(providerID string, elapsed time.Duration, err error) TaskResult {
	o.mu.Lock()
	s := o.stats[providerID]
	if s != nil {
		now := time.Now()
		s.LastRequestAt = &now
		s.LastFailureAt = &now
		s.FailureCount++
	}
	o.mu.Unlock()

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	if o.logger != nil {
		o.logger.Warn("Provider search failed", zap.String("provider", providerID), zap.Error(err))
	}
	return TaskResult{
		ProviderID:   providerID,
		Status:       ProviderStatusError,
		ResponseTime: elapsed,
		Error:        errMsg,
	}
}

// Stats returns a snapshot of every provider's availability.
func (o *Orchestrator) Stats() []ProviderStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ProviderStats, 0, len(o.stats))
	for _, s := range o.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func providerSetKey(providerIDs []string) string {
	if len(providerIDs) == 0 {
		return "all"
	}
	sorted := append([]string(nil), providerIDs...)
	sort.Strings(sorted)
	key := ""
	for _, id := range sorted {
		key += id + ","
	}
	return key
}

func sortResults(results []*magnet.Descriptor, sortBy SortBy) {
	switch sortBy {
	case SortByQuality:
		sort.SliceStable(results, func(i, j int) bool {
			ri, rj := magnet.QualityRank(results[i].Quality), magnet.QualityRank(results[j].Quality)
			if ri != rj {
				return ri > rj
			}
			return results[i].SizeBytes > results[j].SizeBytes
		})
	case SortBySeeders:
		sort.SliceStable(results, func(i, j int) bool {
			return seedersOf(results[i]) > seedersOf(results[j])
		})
	case SortBySize:
		sort.SliceStable(results, func(i, j int) bool { return results[i].SizeBytes > results[j].SizeBytes })
	case SortByDate:
		sort.SliceStable(results, func(i, j int) bool {
			return uploadedAtOf(results[i]).After(uploadedAtOf(results[j]))
		})
	default:
		magnet.SortByDefault(results)
	}
}

func seedersOf(d *magnet.Descriptor) int {
	if d.Seeders == nil {
		return 0
	}
	return *d.Seeders
}

func uploadedAtOf(d *magnet.Descriptor) time.Time {
	if d.UploadedAt == nil {
		return time.Time{}
	}
	return *d.UploadedAt
}

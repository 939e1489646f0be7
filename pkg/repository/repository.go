// Package repository implements the CascadingMagnetRepository component:
// ordered fan-out lookup across local snapshot stores with a remote
// aggregator fallback, cache-backed and exhausted-source aware.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tst4ckr/streamio-magnet-resolver/pkg/cachestore"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/identifier"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/magnet"
)

// ErrNotFound is returned when every tier, including the aggregator,
// comes back empty.
var ErrNotFound = errors.New("repository: content not found in any source")

const defaultExhaustedWindow = 10 * time.Minute

// SnapshotSource is the subset of snapshot.Store's contract the
// repository depends on, so tests can substitute fakes without importing
// the snapshot package.
type SnapshotSource interface {
	Name() string
	ByContentID(ctx context.Context, contentID string, opts SnapshotOptions) ([]*magnet.Descriptor, error)
}

// SnapshotOptions mirrors snapshot.Options to keep this package
// independent of the snapshot package's internal types.
type SnapshotOptions struct {
	Season  int
	Episode int
}

// Aggregator is the subset of aggregator.Client's contract the repository
// depends on.
type Aggregator interface {
	SearchByID(ctx context.Context, id, contentType string, languagePriority []string) ([]*magnet.Descriptor, error)
}

// Options carries per-lookup parameters.
type Options struct {
	Season           int
	Episode          int
	LanguagePriority []string
	SkipCache        bool
}

// Repository orchestrates lookup across snapshot tiers and a remote
// aggregator, per spec.md §4.5.
type Repository struct {
	stores     []SnapshotSource
	aggregator Aggregator
	cache      *cachestore.Cache
	detector   *identifier.Detector
	exhausted  *gocache.Cache
	logger     *zap.Logger
}

// New constructs a Repository. stores are queried concurrently, in the
// order given (primary, secondary, anime, english-fallback, ...).
func New(stores []SnapshotSource, agg Aggregator, cache *cachestore.Cache, detector *identifier.Detector, logger *zap.Logger) *Repository {
	return &Repository{
		stores:     stores,
		aggregator: agg,
		cache:      cache,
		detector:   detector,
		exhausted:  gocache.New(defaultExhaustedWindow, defaultExhaustedWindow/2),
		logger:     logger,
	}
}

// Lookup resolves contentID/contentType into a deduplicated,
// default-ordered list of descriptors, or ErrNotFound.
func (r *Repository) Lookup(ctx context.Context, contentID, contentType string, opts Options) ([]*magnet.Descriptor, error) {
	det := r.detector.Detect(contentID)

	cacheKey := cachestore.StreamKey(contentType, contentID, string(det.Type), opts.Season, opts.Episode)
	if !opts.SkipCache {
		if cached, ok := r.cache.Get(cacheKey); ok {
			if descriptors, ok := cached.([]*magnet.Descriptor); ok {
				return descriptors, nil
			}
		}
	}

	baseContentID := magnet.StripEmbeddedEpisode(contentID)
	results := r.fanOutSnapshots(ctx, baseContentID, opts)

	if len(results) == 0 {
		aggResults, err := r.aggregator.SearchByID(ctx, contentID, contentType, opts.LanguagePriority)
		if err != nil {
			// Propagated rather than swallowed: the caller (RequestPipeline)
			// routes this through ErrorRouter so NETWORK/TIMEOUT failures
			// retry and trip the operation's circuit breaker.
			return nil, err
		}
		results = aggResults
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, contentID)
	}

	results = magnet.DedupByInfoHash(results)
	magnet.SortByDefault(results)

	ttl := cachestore.AdaptiveTTL(cachestore.DefaultTTL, cachestore.AdaptiveTTLInput{
		ContentType: contentType,
		StreamCount: len(results),
		IDType:      string(det.Type),
	})
	r.cache.Set(cacheKey, results, ttl, nil)

	return results, nil
}

// fanOutSnapshots queries every store concurrently, skipping stores whose
// exhausted flag is still set for this (store, baseContentID,
// season, episode) window, and marking empty-returning stores exhausted
// afterward. Per spec.md §4.5, a partial success from one store does not
// require the others to be exhausted before the repository returns.
func (r *Repository) fanOutSnapshots(ctx context.Context, baseContentID string, opts Options) []*magnet.Descriptor {
	perStore := make([][]*magnet.Descriptor, len(r.stores))

	g, gctx := errgroup.WithContext(ctx)
	for i, store := range r.stores {
		i, store := i, store
		g.Go(func() error {
			key := r.exhaustedKey(store.Name(), baseContentID, opts.Season, opts.Episode)
			if _, found := r.exhausted.Get(key); found {
				return nil
			}

			found, err := store.ByContentID(gctx, baseContentID, SnapshotOptions{Season: opts.Season, Episode: opts.Episode})
			if err != nil {
				if r.logger != nil {
					r.logger.Warn("Snapshot store lookup failed",
						zap.String("store", store.Name()), zap.String("contentId", baseContentID), zap.Error(err))
				}
				return nil
			}
			if len(found) == 0 {
				r.exhausted.SetDefault(key, struct{}{})
				return nil
			}
			perStore[i] = found
			return nil
		})
	}
	// Errors are never returned by the goroutines above; a store failure
	// degrades to an empty result instead of aborting the fan-out.
	_ = g.Wait()

	var merged []*magnet.Descriptor
	for _, r := range perStore {
		merged = append(merged, r...)
	}
	return merged
}

func (r *Repository) exhaustedKey(store, baseContentID string, season, episode int) string {
	return fmt.Sprintf("%s|%s|%d|%d", store, baseContentID, season, episode)
}

// ClearExhaustedSourcesCache resets all per-store exhausted-source state,
// exposed so diagnostics/admin endpoints can force a re-probe of sources
// that have since been refreshed.
func (r *Repository) ClearExhaustedSourcesCache() {
	r.exhausted.Flush()
}

// Package pipeline implements the RequestPipeline component: the
// top-level coordinator for one stream request, composing id detection,
// validation, optional metadata enrichment, repository lookup and stream
// assembly, with every boundary routed through ErrorRouter.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tst4ckr/streamio-magnet-resolver/pkg/assembler"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/cachestore"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/errorrouter"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/identifier"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/magnet"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/repository"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/stremio"
)

const (
	validationCacheMaxAge = 60
	networkCacheMaxAge    = 30
	rateLimitCacheMaxAge  = 900
	repositoryCacheMaxAge = 300
)

// MetadataClient is the external MetadataEnrichment collaborator
// contract from spec.md §6: given a content id, returns title/year.
type MetadataClient interface {
	FetchMetadata(ctx context.Context, contentID string) (*assembler.Metadata, error)
}

// Repository is the subset of repository.Repository's contract Pipeline
// depends on.
type Repository interface {
	Lookup(ctx context.Context, contentID, contentType string, opts repository.Options) ([]*magnet.Descriptor, error)
}

// Request is one stream resolution request.
type Request struct {
	Type string
	ID   string
}

// Pipeline is the top-level coordinator for stream requests.
type Pipeline struct {
	detector   *identifier.Detector
	validator  *identifier.Validator
	repository Repository
	metadata   MetadataClient
	cache      *cachestore.Cache
	router     *errorrouter.Router
	logger     *zap.Logger

	requestCounter int64
}

// New constructs a Pipeline. metadata may be nil, in which case
// enrichment is always skipped.
func New(detector *identifier.Detector, validator *identifier.Validator, repo Repository, metadata MetadataClient, cache *cachestore.Cache, router *errorrouter.Router, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		detector:   detector,
		validator:  validator,
		repository: repo,
		metadata:   metadata,
		cache:      cache,
		router:     router,
		logger:     logger,
	}
}

// Handle resolves one stream request into a StreamResponse. It never
// returns an error: every failure mode is represented as a response shape
// per spec.md §7.
func (p *Pipeline) Handle(ctx context.Context, req Request) stremio.StreamResponse {
	p.requestCounter++
	requestID := fmt.Sprintf("req-%d-%d", time.Now().UnixNano(), p.requestCounter)
	logger := p.logger
	if logger != nil {
		logger = logger.With(zap.String("requestId", requestID), zap.String("type", req.Type), zap.String("id", req.ID))
		logger.Debug("Handling stream request")
	}

	season, episode, _ := magnet.ParseEmbeddedEpisode(req.ID)

	det := p.detector.Detect(req.ID)
	cacheKey := cachestore.StreamKey(req.Type, req.ID, string(det.Type), season, episode) + ":response"
	if cached, ok := p.cache.Get(cacheKey); ok {
		if resp, ok := cached.(stremio.StreamResponse); ok {
			return resp
		}
	}

	validation := p.validator.Validate(det, identifier.ContextStreamRequest)
	if !validation.Valid {
		return errorResponse("VALIDATION_ERROR", validationMessage(validation), validationCacheMaxAge)
	}

	meta := p.enrichMetadata(ctx, req.ID, det, logger)

	opts := repository.Options{Season: season, Episode: episode}
	lookupResult, category, err := p.router.ExecuteWithCategory(ctx, "repository.lookup", func(ctx context.Context) (interface{}, error) {
		return p.repository.Lookup(ctx, req.ID, req.Type, opts)
	}, []*magnet.Descriptor(nil))
	if err != nil {
		return errorResponse(errorTypeFor(category), err.Error(), validationCacheMaxAge)
	}

	descriptors, _ := lookupResult.([]*magnet.Descriptor)
	if len(descriptors) == 0 {
		maxAge := cacheMaxAgeFor(category)
		resp := stremio.StreamResponse{Streams: []stremio.StreamItem{}, CacheMaxAge: maxAge}
		p.cache.Set(cacheKey, resp, time.Duration(maxAge)*time.Second, nil)
		return resp
	}

	streams := assembler.Assemble(descriptors, assembler.Options{
		ContentType: req.Type,
		Detection:   &det,
		Metadata:    meta,
	})

	ttl := cachestore.AdaptiveTTL(cachestore.DefaultTTL, cachestore.AdaptiveTTLInput{
		ContentType: req.Type,
		StreamCount: len(streams),
		IDType:      string(det.Type),
	})
	resp := stremio.StreamResponse{Streams: streams, CacheMaxAge: int(ttl.Seconds())}
	p.cache.Set(cacheKey, resp, ttl, nil)
	return resp
}

// enrichMetadata fetches title/year enrichment unless the id is numeric
// or otherwise invalid, per spec.md §4.11. A failure here never fails the
// request: it just means the response ships without enrichment.
func (p *Pipeline) enrichMetadata(ctx context.Context, contentID string, det identifier.Detection, logger *zap.Logger) *assembler.Metadata {
	if p.metadata == nil || det.Type == identifier.TypeNumeric || !det.IsValid {
		return nil
	}

	baseID := magnet.StripEmbeddedEpisode(contentID)
	result, err := p.router.Execute(ctx, "metadata.fetch", func(ctx context.Context) (interface{}, error) {
		return p.metadata.FetchMetadata(ctx, baseID)
	}, (*assembler.Metadata)(nil))
	if err != nil {
		if logger != nil {
			logger.Warn("Metadata enrichment skipped", zap.Error(err))
		}
		return nil
	}
	meta, _ := result.(*assembler.Metadata)
	return meta
}

func validationMessage(v identifier.ValidationResult) string {
	if v.Err != nil {
		return v.Err.Error()
	}
	return "validation failed"
}

func errorResponse(errorType, message string, cacheMaxAge int) stremio.StreamResponse {
	return stremio.StreamResponse{
		Streams:     []stremio.StreamItem{},
		CacheMaxAge: cacheMaxAge,
		Error:       message,
		ErrorType:   errorType,
	}
}

// cacheMaxAgeFor selects the response TTL for an empty repository result,
// per spec.md §7: NETWORK/TIMEOUT failures get the shortest TTL,
// RATE_LIMIT the longest (avoid hammering a throttled upstream), and a
// clean "nothing found anywhere" (or any other category) the mid-length
// REPOSITORY default.
func cacheMaxAgeFor(category errorrouter.Category) int {
	switch category {
	case errorrouter.CategoryNetwork, errorrouter.CategoryTimeout:
		return networkCacheMaxAge
	case errorrouter.CategoryRateLimit:
		return rateLimitCacheMaxAge
	default:
		return repositoryCacheMaxAge
	}
}

// errorTypeFor reports the client-visible errorType for a fail-fast
// category reaching Handle's repository.lookup branch. VALIDATION,
// AUTHENTICATION and CONFIGURATION are distinct per spec.md §4.9 and must
// not collapse onto one label.
func errorTypeFor(category errorrouter.Category) string {
	switch category {
	case errorrouter.CategoryAuthentication:
		return "AUTHENTICATION_ERROR"
	case errorrouter.CategoryConfiguration:
		return "CONFIGURATION_ERROR"
	default:
		return "VALIDATION_ERROR"
	}
}

package identifier

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// MappingClient is the external mapping-service collaborator contract from
// spec.md §6: given a (type, id, targetType) triple it returns a converted
// id, or ("", nil) when the service has no mapping for it.
type MappingClient interface {
	Convert(ctx context.Context, fromType Type, id string, targetType Type) (string, error)
}

// UnifiedIdService converts identifiers across namespaces, memoizing
// results so repeated conversions of the same (type, id, targetType) never
// hit the network twice.
type UnifiedIdService struct {
	mapping MappingClient
	memo    *gocache.Cache
	group   singleflight.Group
	logger  *zap.Logger

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Option configures a UnifiedIdService at construction time.
type Option func(*UnifiedIdService)

// WithRetryPolicy overrides the default bounded exponential-backoff policy
// used around MappingClient calls.
func WithRetryPolicy(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(s *UnifiedIdService) {
		s.maxRetries = maxRetries
		s.baseDelay = baseDelay
		s.maxDelay = maxDelay
	}
}

// WithMemoTTL overrides the memoization TTL (default 24h).
func WithMemoTTL(ttl time.Duration) Option {
	return func(s *UnifiedIdService) {
		s.memo = gocache.New(ttl, ttl*2)
	}
}

// NewUnifiedIdService constructs a UnifiedIdService. mapping may be nil, in
// which case every cross-namespace conversion fails gracefully.
func NewUnifiedIdService(mapping MappingClient, logger *zap.Logger, opts ...Option) *UnifiedIdService {
	s := &UnifiedIdService{
		mapping:    mapping,
		memo:       gocache.New(24*time.Hour, 48*time.Hour),
		logger:     logger,
		maxRetries: 3,
		baseDelay:  1 * time.Second,
		maxDelay:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Convert converts id (of the type implied by context) to targetType. It
// never returns an error through the ConversionResult.Err boundary for
// persistent upstream failure - it returns Success: false instead, per
// spec.md §4.3.
func (s *UnifiedIdService) Convert(ctx context.Context, fromType Type, id string, targetType Type) ConversionResult {
	if fromType == targetType {
		return ConversionResult{Success: true, ConvertedID: id, Method: "identity"}
	}

	key := memoKey(fromType, id, targetType)
	if cached, ok := s.memo.Get(key); ok {
		return cached.(ConversionResult)
	}

	if s.mapping == nil {
		return ConversionResult{Success: false}
	}

	resultIface, err, _ := s.group.Do(key, func() (interface{}, error) {
		convertedID, callErr := s.convertWithRetry(ctx, fromType, id, targetType)
		return convertedID, callErr
	})

	var result ConversionResult
	if err != nil || resultIface.(string) == "" {
		if err != nil {
			s.logger.Warn("Mapping service conversion failed, giving up gracefully",
				zap.String("fromType", string(fromType)), zap.String("id", id),
				zap.String("targetType", string(targetType)), zap.Error(err))
		}
		result = ConversionResult{Success: false}
	} else {
		result = ConversionResult{Success: true, ConvertedID: resultIface.(string), Method: "mapping-service"}
	}

	// Memoize both hits and persistent misses, to avoid repeatedly hammering
	// a mapping service that has no entry for this id.
	s.memo.Set(key, result, gocache.DefaultExpiration)
	return result
}

func (s *UnifiedIdService) convertWithRetry(ctx context.Context, fromType Type, id string, targetType Type) (string, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.baseDelay
	policy.MaxInterval = s.maxDelay
	policy.MaxElapsedTime = 0
	bounded := backoff.WithMaxRetries(policy, uint64(s.maxRetries-1))

	var convertedID string
	operation := func() error {
		var err error
		convertedID, err = s.mapping.Convert(ctx, fromType, id, targetType)
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(bounded, ctx)); err != nil {
		return "", fmt.Errorf("mapping service exhausted retries: %w", err)
	}
	return convertedID, nil
}

func memoKey(fromType Type, id string, targetType Type) string {
	return string(fromType) + "|" + id + "|" + string(targetType)
}

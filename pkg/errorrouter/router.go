package errorrouter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 10 * time.Second
	defaultMaxRetries = 3
	defaultCooldown   = 5 * time.Minute
)

// Operation is the unit of work ErrorRouter executes: given a context, it
// either succeeds with a value or fails with an error ErrorRouter will
// classify.
type Operation func(ctx context.Context) (interface{}, error)

// Router classifies failures, retries transient ones with backoff, and
// trips a per-operation circuit breaker after a final failure.
type Router struct {
	baseDelay  time.Duration
	maxDelay   time.Duration
	maxRetries int
	cooldown   time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[interface{}]
}

// Option configures a Router.
type Option func(*Router)

// WithRetryPolicy overrides the default backoff parameters.
func WithRetryPolicy(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(r *Router) {
		r.maxRetries = maxRetries
		r.baseDelay = baseDelay
		r.maxDelay = maxDelay
	}
}

// WithCooldown overrides the default circuit breaker cooldown window.
func WithCooldown(cooldown time.Duration) Option {
	return func(r *Router) { r.cooldown = cooldown }
}

// New constructs a Router.
func New(logger *zap.Logger, opts ...Option) *Router {
	r := &Router{
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		maxRetries: defaultMaxRetries,
		cooldown:   defaultCooldown,
		logger:     logger,
		breakers:   make(map[string]*gobreaker.CircuitBreaker[interface{}]),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs op under operationName's circuit breaker and discards the
// failure category. Most callers that only care about the value should
// use this; callers that need to pick a response shape based on why an
// operation failed (e.g. the request pipeline's cacheMaxAge selection)
// should use ExecuteWithCategory instead.
func (r *Router) Execute(ctx context.Context, operationName string, op Operation, fallback interface{}) (interface{}, error) {
	result, _, err := r.ExecuteWithCategory(ctx, operationName, op, fallback)
	return result, err
}

// ExecuteWithCategory runs op under operationName's circuit breaker. On
// transient failure categories (NETWORK, TIMEOUT, RATE_LIMIT) it retries
// with exponential backoff before giving up. On final failure it applies
// the category's strategy: REPOSITORY and CACHE/UNKNOWN degrade to
// fallback, VALIDATION/AUTHENTICATION/CONFIGURATION propagate the error
// untouched. The returned Category is empty on success.
func (r *Router) ExecuteWithCategory(ctx context.Context, operationName string, op Operation, fallback interface{}) (interface{}, Category, error) {
	breaker := r.breakerFor(operationName)

	result, err := breaker.Execute(func() (interface{}, error) {
		return r.runWithRetry(ctx, op)
	})
	if err == nil {
		return result, "", nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		if r.logger != nil {
			r.logger.Warn("Circuit breaker open, serving fallback", zap.String("operation", operationName))
		}
		return fallback, CategoryUnknown, nil
	}

	category := Classify(err)
	switch StrategyFor(category) {
	case StrategyFailFast:
		return nil, category, err
	default:
		if r.logger != nil {
			r.logger.Warn("Operation failed, serving fallback",
				zap.String("operation", operationName), zap.String("category", string(category)), zap.Error(err))
		}
		return fallback, category, nil
	}
}

func (r *Router) runWithRetry(ctx context.Context, op Operation) (interface{}, error) {
	var result interface{}

	attempt := func() error {
		v, err := op(ctx)
		if err != nil {
			result = nil
			if !isRetryable(Classify(err)) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.baseDelay
	policy.MaxInterval = r.maxDelay
	policy.Multiplier = 2
	policy.MaxElapsedTime = 0

	bounded := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.maxRetries-1)), ctx)
	err := backoff.Retry(attempt, bounded)
	return result, err
}

func isRetryable(c Category) bool {
	return StrategyFor(c) == StrategyRetry
}

func (r *Router) breakerFor(operationName string) *gobreaker.CircuitBreaker[interface{}] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[operationName]; ok {
		return b
	}

	settings := gobreaker.Settings{
		Name:        operationName,
		MaxRequests: 1,
		Timeout:     r.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	}
	if r.logger != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			r.logger.Info("Circuit breaker state change",
				zap.String("operation", name), zap.String("from", from.String()), zap.String("to", to.String()))
		}
	}

	b := gobreaker.NewCircuitBreaker[interface{}](settings)
	r.breakers[operationName] = b
	return b
}

// Reset forces operationName's breaker back to closed, discarding its
// current failure/cooldown state.
func (r *Router) Reset(operationName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.breakers, operationName)
}

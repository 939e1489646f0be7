package errorrouter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassifyMatchesKnownSubstrings(t *testing.T) {
	cases := map[string]Category{
		"dial tcp: connection refused ECONNREFUSED": CategoryNetwork,
		"context deadline exceeded: timeout":        CategoryTimeout,
		"429 too many requests":                     CategoryRateLimit,
		"401 unauthorized":                          CategoryAuthentication,
		"validation failed: invalid id":             CategoryValidation,
		"something unexplained":                     CategoryUnknown,
	}
	for msg, want := range cases {
		assert.Equal(t, want, Classify(errors.New(msg)), msg)
	}
}

func TestStrategyForMatchesTaxonomy(t *testing.T) {
	assert.Equal(t, StrategyRetry, StrategyFor(CategoryNetwork))
	assert.Equal(t, StrategyFallback, StrategyFor(CategoryRepository))
	assert.Equal(t, StrategyGracefulDegradation, StrategyFor(CategoryCache))
	assert.Equal(t, StrategyFailFast, StrategyFor(CategoryValidation))
}

func TestExecuteReturnsResultOnSuccess(t *testing.T) {
	router := New(zap.NewNop())
	result, err := router.Execute(context.Background(), "op", func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	}, "fallback")
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestExecuteRetriesTransientFailures(t *testing.T) {
	router := New(zap.NewNop(), WithRetryPolicy(3, time.Millisecond, time.Millisecond))
	attempts := 0
	result, err := router.Execute(context.Background(), "op-retry", func(ctx context.Context) (interface{}, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("network unreachable")
		}
		return "recovered", nil
	}, "fallback")
	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, 2, attempts)
}

func TestExecuteFailFastPropagatesValidationError(t *testing.T) {
	router := New(zap.NewNop())
	_, err := router.Execute(context.Background(), "op-validate", func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("validation failed")
	}, "fallback")
	assert.Error(t, err)
}

func TestExecuteFallsBackOnRepositoryError(t *testing.T) {
	router := New(zap.NewNop())
	result, err := router.Execute(context.Background(), "op-repo", func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("repository lookup failed")
	}, []string{})
	require.NoError(t, err)
	assert.Equal(t, []string{}, result)
}

func TestExecuteOpensBreakerAfterFinalFailure(t *testing.T) {
	router := New(zap.NewNop(), WithRetryPolicy(1, time.Millisecond, time.Millisecond), WithCooldown(time.Hour))
	calls := 0
	failing := func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, errors.New("repository down")
	}

	_, err := router.Execute(context.Background(), "op-breaker", failing, "fallback")
	require.NoError(t, err)
	firstCalls := calls

	_, err = router.Execute(context.Background(), "op-breaker", failing, "fallback")
	require.NoError(t, err)
	assert.Equal(t, firstCalls, calls, "breaker should short-circuit without invoking op again")
}

func TestResetClosesBreakerImmediately(t *testing.T) {
	router := New(zap.NewNop(), WithRetryPolicy(1, time.Millisecond, time.Millisecond), WithCooldown(time.Hour))
	failing := func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("repository down")
	}

	_, _ = router.Execute(context.Background(), "op-reset", failing, "fallback")
	router.Reset("op-reset")

	calls := 0
	_, _ = router.Execute(context.Background(), "op-reset", func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, errors.New("repository down")
	}, "fallback")
	assert.Equal(t, 1, calls)
}

// Package errorrouter implements the ErrorRouter component: error
// classification, a per-category recovery strategy, bounded retry with
// backoff, and a per-operation circuit breaker.
package errorrouter

import "strings"

// Category is the error taxonomy ErrorRouter classifies any failure into.
type Category string

const (
	CategoryValidation     Category = "VALIDATION"
	CategoryNetwork        Category = "NETWORK"
	CategoryTimeout        Category = "TIMEOUT"
	CategoryRepository     Category = "REPOSITORY"
	CategoryCache          Category = "CACHE"
	CategoryRateLimit      Category = "RATE_LIMIT"
	CategoryAuthentication Category = "AUTHENTICATION"
	CategoryConfiguration  Category = "CONFIGURATION"
	CategoryUnknown        Category = "UNKNOWN"
)

// Strategy is the recovery action associated with a Category.
type Strategy string

const (
	StrategyRetry               Strategy = "retry"
	StrategyFallback            Strategy = "fallback"
	StrategyGracefulDegradation Strategy = "graceful_degradation"
	StrategyFailFast            Strategy = "fail_fast"
)

type classificationRule struct {
	substrings []string
	category   Category
}

// Order matters: first matching rule wins, mirroring IdDetector's
// first-match classification style.
var classificationRules = []classificationRule{
	{[]string{"rate limit", "too many", "429"}, CategoryRateLimit},
	{[]string{"timeout", "etimedout", "abort"}, CategoryTimeout},
	{[]string{"econnrefused", "enotfound", "network"}, CategoryNetwork},
	{[]string{"unauthorized", "forbidden", "401", "403"}, CategoryAuthentication},
	{[]string{"validation", "invalid"}, CategoryValidation},
	{[]string{"repository", "not_found", "not found"}, CategoryRepository},
	{[]string{"cache"}, CategoryCache},
	{[]string{"configuration", "config"}, CategoryConfiguration},
}

// Classify maps an error to a Category by matching its message (and, for
// *ClassifiedError, its code) against the rule table. Unmatched errors are
// CategoryUnknown.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	if ce, ok := err.(*ClassifiedError); ok && ce.Category != "" {
		return ce.Category
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range classificationRules {
		for _, s := range rule.substrings {
			if strings.Contains(msg, s) {
				return rule.category
			}
		}
	}
	return CategoryUnknown
}

// strategyByCategory is the fixed category→strategy map from spec.md §4.9.
var strategyByCategory = map[Category]Strategy{
	CategoryNetwork:        StrategyRetry,
	CategoryTimeout:        StrategyRetry,
	CategoryRateLimit:      StrategyRetry,
	CategoryRepository:     StrategyFallback,
	CategoryCache:          StrategyGracefulDegradation,
	CategoryValidation:     StrategyFailFast,
	CategoryAuthentication: StrategyFailFast,
	CategoryConfiguration:  StrategyFailFast,
	CategoryUnknown:        StrategyGracefulDegradation,
}

// StrategyFor returns the recovery strategy for a category.
func StrategyFor(c Category) Strategy {
	if s, ok := strategyByCategory[c]; ok {
		return s
	}
	return StrategyGracefulDegradation
}

// ClassifiedError carries an explicit category and structured cause,
// bypassing substring classification when the caller already knows the
// category.
type ClassifiedError struct {
	Category Category
	Cause    error
}

func (e *ClassifiedError) Error() string {
	if e.Cause == nil {
		return string(e.Category)
	}
	return string(e.Category) + ": " + e.Cause.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// NewClassifiedError wraps cause with an explicit category.
func NewClassifiedError(category Category, cause error) *ClassifiedError {
	return &ClassifiedError{Category: category, Cause: cause}
}

package cachestore

import "time"

// AdaptiveTTLInput carries the signals the adaptive TTL rules key off of.
type AdaptiveTTLInput struct {
	ContentType string
	StreamCount int
	IDType      string
}

// isAnimeFamilyLabel reports whether an id type string (loosely, so callers
// can pass either identifier.Type string values or plain labels) belongs to
// the anime bucket of the adaptive TTL rules; isIMDbFamilyLabel checks the
// IMDb bucket.
func isAnimeFamilyLabel(idType string) bool {
	switch idType {
	case "kitsu", "mal", "anilist", "anidb":
		return true
	default:
		return false
	}
}

func isIMDbFamilyLabel(idType string) bool {
	return idType == "imdb" || idType == "imdb-series"
}

// AdaptiveTTL computes the TTL for a stream-resolution cache entry, per
// spec.md §4.4's adaptive TTL rules, applied in order on top of the base TTL
// the caller passes.
func AdaptiveTTL(base time.Duration, in AdaptiveTTLInput) time.Duration {
	ttl := base

	if in.StreamCount == 0 {
		if ttl > 300*time.Second {
			ttl = 300 * time.Second
		}
	} else if in.StreamCount > 10 {
		if ttl < 1800*time.Second {
			ttl = 1800 * time.Second
		}
	}

	if isAnimeFamilyLabel(in.IDType) {
		ttl = time.Duration(float64(ttl) * 1.5)
	} else if !isIMDbFamilyLabel(in.IDType) && in.IDType != "" {
		ttl = time.Duration(float64(ttl) * 0.5)
	}

	return ttl
}

package search

import (
	"context"

	"github.com/tst4ckr/streamio-magnet-resolver/pkg/magnet"
)

// Provider is a single scraping or API-backed torrent source. Every
// provider declares its own rate-limit shape and ranking bias but shares
// the Orchestrator's fan-out, timeout and merge logic.
type Provider interface {
	ID() string
	// RequestsPerMinute bounds how often Search may be called.
	RequestsPerMinute() int
	Search(ctx context.Context, q Query) ([]*magnet.Descriptor, error)
	// Rank reorders results in place to reflect this provider's ranking
	// bias (e.g. a 4K-oriented provider pushes 2160p to the top).
	Rank(results []*magnet.Descriptor)
}

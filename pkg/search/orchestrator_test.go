package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tst4ckr/streamio-magnet-resolver/pkg/cachestore"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/magnet"
)

type fakeProvider struct {
	id      string
	results []*magnet.Descriptor
	err     error
	calls   int
}

func (f *fakeProvider) ID() string            { return f.id }
func (f *fakeProvider) RequestsPerMinute() int { return 6000 }
func (f *fakeProvider) Search(ctx context.Context, q Query) ([]*magnet.Descriptor, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}
func (f *fakeProvider) Rank(results []*magnet.Descriptor) {
	magnet.SortByDefault(results)
}

func newTestOrchestrator(providers []Provider, cfg Config) *Orchestrator {
	c := cachestore.New(cachestore.Config{SweepPeriod: time.Hour}, zap.NewNop())
	return New(providers, c, cfg, zap.NewNop())
}

func descriptor(hash string, size int64) *magnet.Descriptor {
	return &magnet.Descriptor{ContentID: "tt0133093", InfoHash: hash, SizeBytes: size, DisplayName: hash}
}

func TestSearchMergesAndDedupsAcrossProviders(t *testing.T) {
	a := &fakeProvider{id: "a", results: []*magnet.Descriptor{descriptor("aaaa", 100)}}
	b := &fakeProvider{id: "b", results: []*magnet.Descriptor{descriptor("aaaa", 100), descriptor("bbbb", 200)}}
	o := newTestOrchestrator([]Provider{a, b}, Config{})

	result := o.Search(context.Background(), Query{Term: "the matrix"}, nil, true, SortByQuality)
	assert.Len(t, result.Results, 2)
	assert.False(t, result.FromCache)
}

func TestSearchOneProviderFailingDoesNotAbortOthers(t *testing.T) {
	failing := &fakeProvider{id: "failing", err: assertError("boom")}
	ok := &fakeProvider{id: "ok", results: []*magnet.Descriptor{descriptor("cccc", 300)}}
	o := newTestOrchestrator([]Provider{failing, ok}, Config{})

	result := o.Search(context.Background(), Query{Term: "x"}, nil, true, SortByQuality)
	require.Len(t, result.Results, 1)
	assert.Equal(t, ProviderStatusError, result.ProviderStats["failing"].Status)
	assert.Equal(t, ProviderStatusSuccess, result.ProviderStats["ok"].Status)
}

func TestSearchSecondCallReturnsFromCache(t *testing.T) {
	provider := &fakeProvider{id: "a", results: []*magnet.Descriptor{descriptor("aaaa", 100)}}
	o := newTestOrchestrator([]Provider{provider}, Config{})

	_ = o.Search(context.Background(), Query{Term: "x"}, nil, false, SortByQuality)
	second := o.Search(context.Background(), Query{Term: "x"}, nil, false, SortByQuality)

	assert.True(t, second.FromCache)
	assert.Equal(t, 1, provider.calls)
}

func TestSearchCapsResultsAtMaxResults(t *testing.T) {
	var many []*magnet.Descriptor
	for i := 0; i < 10; i++ {
		many = append(many, descriptor(randHash(i), int64(i)))
	}
	provider := &fakeProvider{id: "a", results: many}
	o := newTestOrchestrator([]Provider{provider}, Config{MaxResults: 3})

	result := o.Search(context.Background(), Query{Term: "x"}, nil, true, SortByQuality)
	assert.Len(t, result.Results, 3)
}

func TestStatsTracksSuccessAndFailureCounts(t *testing.T) {
	provider := &fakeProvider{id: "a", results: []*magnet.Descriptor{descriptor("aaaa", 100)}}
	o := newTestOrchestrator([]Provider{provider}, Config{})

	_ = o.Search(context.Background(), Query{Term: "x"}, nil, true, SortByQuality)

	stats := o.Stats()
	require.Len(t, stats, 1)
	assert.EqualValues(t, 1, stats[0].SuccessCount)
}

type assertError string

func (e assertError) Error() string { return string(e) }

func randHash(i int) string {
	base := "0000000000000000000000000000000000000"
	return base + string(rune('a'+i))
}

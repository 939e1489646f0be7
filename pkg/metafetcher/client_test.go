package metafetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tst4ckr/streamio-magnet-resolver/pkg/cachestore"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	cache := cachestore.New(cachestore.Config{SweepPeriod: time.Hour}, zap.NewNop())
	return New(server.URL, time.Second, cache, zap.NewNop()), &calls
}

func TestFetchMetadataReturnsMovieTitleAndYear(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meta/movie/tt0133093.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"meta":{"name":"The Matrix","year":"1999"}}`))
	})

	meta, err := client.FetchMetadata(context.Background(), "tt0133093")
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", meta.Title)
	assert.Equal(t, "1999", meta.Year)
}

func TestFetchMetadataFallsBackToSeriesEndpoint(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/meta/movie/tt0903747.json":
			http.NotFound(w, r)
		case "/meta/series/tt0903747.json":
			w.Write([]byte(`{"meta":{"name":"Breaking Bad","year":"2008-2013"}}`))
		default:
			http.NotFound(w, r)
		}
	})

	meta, err := client.FetchMetadata(context.Background(), "tt0903747")
	require.NoError(t, err)
	assert.Equal(t, "Breaking Bad", meta.Title)
	assert.Equal(t, "2008", meta.Year)
}

func TestFetchMetadataReturnsErrorWhenBothEndpointsFail(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.FetchMetadata(context.Background(), "tt9999999")
	assert.Error(t, err)
}

func TestFetchMetadataSecondCallHitsCache(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta":{"name":"The Matrix","year":"1999"}}`))
	})

	_, err := client.FetchMetadata(context.Background(), "tt0133093")
	require.NoError(t, err)
	_, err = client.FetchMetadata(context.Background(), "tt0133093")
	require.NoError(t, err)

	assert.Equal(t, int32(1), *calls)
}

package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeCSV(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const sampleCSV = `content_id,imdb_id,infoHash,magnet,name,quality,sizeBytes,seeders,peers,provider,language,season,episode,trackers
tt0133093,,AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA,,The Matrix,1080p,1500000000,100,10,snapshot,en,,,
tt0133093:1:1,tt0133093,BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB,,The Matrix S01E01,720p,800000000,50,5,snapshot,en,1,1,udp://tracker.example:80
this-row-is-missing-an-infohash,,,,,,,,,,,,,
`

func TestByContentIDReturnsMatchingRows(t *testing.T) {
	path := writeCSV(t, sampleCSV)
	s := New("primary", path, 0, zap.NewNop())

	results, err := s.ByContentID(context.Background(), "tt0133093", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", results[0].InfoHash)
}

func TestByContentIDFiltersBySeasonEpisode(t *testing.T) {
	path := writeCSV(t, sampleCSV)
	s := New("primary", path, 0, zap.NewNop())

	results, err := s.ByContentID(context.Background(), "tt0133093", Options{Season: 1, Episode: 1})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestByContentIDMatchesEpisodeContentIDOnly(t *testing.T) {
	path := writeCSV(t, sampleCSV)
	s := New("primary", path, 0, zap.NewNop())

	results, err := s.ByContentID(context.Background(), "tt0133093", Options{Season: 1, Episode: 1})
	require.NoError(t, err)
	assert.Empty(t, results)

	episodeResults, err := s.ByContentID(context.Background(), "tt0133093:1:1", Options{})
	require.NoError(t, err)
	require.Len(t, episodeResults, 1)
	assert.Equal(t, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", episodeResults[0].InfoHash)
}

func TestMalformedRowsAreSkippedNotFatal(t *testing.T) {
	path := writeCSV(t, sampleCSV)
	s := New("primary", path, 0, zap.NewNop())

	results, err := s.ByContentID(context.Background(), "tt0133093", Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestUnknownContentIDReturnsEmptyNotError(t *testing.T) {
	path := writeCSV(t, sampleCSV)
	s := New("primary", path, 0, zap.NewNop())

	results, err := s.ByContentID(context.Background(), "tt9999999", Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLoadIsIdempotentAcrossCalls(t *testing.T) {
	path := writeCSV(t, sampleCSV)
	s := New("primary", path, 0, zap.NewNop())

	first, err := s.ByContentID(context.Background(), "tt0133093", Options{})
	require.NoError(t, err)
	second, err := s.ByContentID(context.Background(), "tt0133093", Options{})
	require.NoError(t, err)
	assert.Equal(t, len(first), len(second))
}

func TestMissingSourceSurfacesErrorOnQuery(t *testing.T) {
	s := New("primary", "/no/such/file.csv", 0, zap.NewNop())
	_, err := s.ByContentID(context.Background(), "tt0133093", Options{})
	assert.Error(t, err)
}

// The documented snapshot format's exact required/optional column names
// (content_id, name, magnet, quality, size, imdb_id, provider, filename,
// seeders, peers, season, episode, language, fansub) must be accepted
// as-is, not just the camelCase aliases used elsewhere in this file.
const documentedHeaderCSV = `content_id,name,magnet,quality,size,imdb_id,provider,filename,seeders,peers,season,episode,language,fansub
tt0110912,Pulp Fiction,magnet:?xt=urn:btih:CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC,1080p,2.1 GB,,snapshot,Pulp.Fiction.1080p.mkv,200,20,,,en,
`

func TestDocumentedColumnNamesAreAccepted(t *testing.T) {
	path := writeCSV(t, documentedHeaderCSV)
	s := New("primary", path, 0, zap.NewNop())

	results, err := s.ByContentID(context.Background(), "tt0110912", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "cccccccccccccccccccccccccccccccccccccccc", results[0].InfoHash)
	assert.Equal(t, "Pulp Fiction", results[0].DisplayName)
	assert.Equal(t, int64(2_254_857_830), results[0].SizeBytes)
}

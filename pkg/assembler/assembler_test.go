package assembler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tst4ckr/streamio-magnet-resolver/pkg/identifier"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/magnet"
)

func seeders(n int) *int { return &n }
func season(n int) *int  { return &n }

func TestAssembleBuildsImdbTitleAndVideoSize(t *testing.T) {
	d := &magnet.Descriptor{
		ContentID: "tt0133093",
		InfoHash:  "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		Quality:   magnet.Quality1080p,
		SizeBytes: 2_684_354_560,
		Seeders:   seeders(500),
	}
	det := identifier.Detection{Type: identifier.TypeIMDb, IsValid: true}

	items := Assemble([]*magnet.Descriptor{d}, Options{ContentType: "movie", Detection: &det})
	require.Len(t, items, 1)
	assert.Equal(t, "🎬 1080p | Unknown (500S)", items[0].Title)
	assert.EqualValues(t, 2_684_354_560, items[0].BehaviorHints.VideoSize)
	assert.Equal(t, "magnet-AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", items[0].BehaviorHints.BingeGroup)
}

func TestAssembleDiscardsDescriptorsMissingInfoHash(t *testing.T) {
	d := &magnet.Descriptor{ContentID: "tt0133093", Quality: magnet.Quality1080p}
	items := Assemble([]*magnet.Descriptor{d}, Options{ContentType: "movie"})
	assert.Empty(t, items)
}

func TestAssembleIncludesEpisodeTagWhenPresent(t *testing.T) {
	d := &magnet.Descriptor{
		ContentID: "tt0903747:3:9",
		InfoHash:  "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB",
		Quality:   magnet.Quality720p,
		Season:    season(3),
		Episode:   season(9),
	}
	items := Assemble([]*magnet.Descriptor{d}, Options{ContentType: "series"})
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Title, "T3E9")
}

func TestAssembleSourcesArePrefixedWithTracker(t *testing.T) {
	d := &magnet.Descriptor{
		ContentID: "tt0133093",
		InfoHash:  "CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC",
		Trackers:  []string{"udp://tracker.example:80", "not-a-valid-scheme"},
	}
	items := Assemble([]*magnet.Descriptor{d}, Options{})
	require.Len(t, items, 1)
	require.Len(t, items[0].Sources, 1)
	assert.Equal(t, "tracker:udp://tracker.example:80", items[0].Sources[0])
}

func TestAssembleOrdersByDescendingVideoSize(t *testing.T) {
	small := &magnet.Descriptor{ContentID: "a", InfoHash: "1111111111111111111111111111111111111111", SizeBytes: 100, DisplayName: "a"}
	large := &magnet.Descriptor{ContentID: "b", InfoHash: "2222222222222222222222222222222222222222", SizeBytes: 500, DisplayName: "b"}
	items := Assemble([]*magnet.Descriptor{small, large}, Options{})
	require.Len(t, items, 2)
	assert.EqualValues(t, 500, items[0].BehaviorHints.VideoSize)
	assert.EqualValues(t, 100, items[1].BehaviorHints.VideoSize)
}

func TestAssembleAnimeEmoji(t *testing.T) {
	d := &magnet.Descriptor{ContentID: "kitsu:11665", InfoHash: "3333333333333333333333333333333333333333", Quality: magnet.Quality1080p}
	det := identifier.Detection{Type: identifier.TypeKitsu, IsValid: true}
	items := Assemble([]*magnet.Descriptor{d}, Options{Detection: &det})
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Title, "🎌")
}

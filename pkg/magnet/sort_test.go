package magnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(n int) *int { return &n }

func TestDedupByInfoHash(t *testing.T) {
	in := []*Descriptor{
		{InfoHash: "abc", DisplayName: "first"},
		{InfoHash: "abc", DisplayName: "duplicate"},
		{InfoHash: "def", DisplayName: "second"},
		nil,
	}
	out := DedupByInfoHash(in)
	assert.Len(t, out, 2)
	assert.Equal(t, "first", out[0].DisplayName)
	assert.Equal(t, "second", out[1].DisplayName)
}

func TestDedupByInfoHashFallsBackToTitleAndSizeWithoutInfoHash(t *testing.T) {
	in := []*Descriptor{
		{DisplayName: "no hash", SizeBytes: 100},
		{DisplayName: "no hash", SizeBytes: 100},
		{DisplayName: "no hash", SizeBytes: 200},
		{InfoHash: "abc", DisplayName: "no hash", SizeBytes: 100},
	}
	out := DedupByInfoHash(in)
	assert.Len(t, out, 3)
}

func TestSortByDefault(t *testing.T) {
	descriptors := []*Descriptor{
		{DisplayName: "b", SizeBytes: 100},
		{DisplayName: "a", SizeBytes: 200},
		{DisplayName: "c", SizeBytes: 200},
	}
	SortByDefault(descriptors)
	assert.Equal(t, []string{"a", "c", "b"}, names(descriptors))
}

func TestSortBySeedersThenQuality(t *testing.T) {
	descriptors := []*Descriptor{
		{DisplayName: "low-seeders", Seeders: intPtr(5), Quality: Quality1080p},
		{DisplayName: "no-seeders", Quality: Quality2160p},
		{DisplayName: "high-seeders-lower-quality", Seeders: intPtr(50), Quality: Quality480p},
		{DisplayName: "high-seeders-higher-quality", Seeders: intPtr(50), Quality: Quality2160p},
	}
	SortBySeedersThenQuality(descriptors)
	assert.Equal(t, []string{
		"high-seeders-higher-quality",
		"high-seeders-lower-quality",
		"low-seeders",
		"no-seeders",
	}, names(descriptors))
}

func names(descriptors []*Descriptor) []string {
	out := make([]string, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.DisplayName
	}
	return out
}

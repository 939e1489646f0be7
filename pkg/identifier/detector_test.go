package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectTable(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		id         string
		wantType   Type
		wantValid  bool
		wantConf   float64
	}{
		{"tt0133093", TypeIMDb, true, 1.0},
		{"tt0903747:3:9", TypeIMDbEpisode, true, 1.0},
		{"kitsu:11665", TypeKitsu, true, 1.0},
		{"mal:123", TypeMAL, true, 1.0},
		{"anilist:456", TypeAniList, true, 1.0},
		{"anidb:789", TypeAniDB, true, 1.0},
		{"12345", TypeNumeric, true, 0.5},
		{"garbage-id", TypeUnknown, false, 0},
		{"", TypeUnknown, false, 0},
	}
	for _, tt := range tests {
		got := d.Detect(tt.id)
		assert.Equal(t, tt.wantType, got.Type, tt.id)
		assert.Equal(t, tt.wantValid, got.IsValid, tt.id)
		assert.Equal(t, tt.wantConf, got.Confidence, tt.id)
	}
}

func TestDetectEmptyHasError(t *testing.T) {
	d := NewDetector()
	got := d.Detect("")
	assert.NotEmpty(t, got.Error)
	assert.False(t, got.IsValid)
}

func TestDetectIdempotent(t *testing.T) {
	d := NewDetector()
	for _, id := range []string{"tt0133093", "kitsu:11665", "mal:123", "12345"} {
		first := d.Detect(id)
		if !first.IsValid {
			continue
		}
		second := d.Detect(first.NormalizedID)
		assert.Equal(t, first.Type, second.Type, id)
	}
}

// Package magnet defines the core magnet descriptor entity shared by every
// tier of the resolution pipeline, plus the parsing helpers that turn raw
// snapshot rows and aggregator/provider JSON into descriptors.
package magnet

import "time"

// Quality is the enumerated video quality/source label for a descriptor.
type Quality string

const (
	Quality2160p  Quality = "2160p"
	Quality1080p  Quality = "1080p"
	Quality720p   Quality = "720p"
	Quality480p   Quality = "480p"
	QualitySD     Quality = "SD"
	QualityBluRay Quality = "BluRay"
	QualityWEBRip Quality = "WEBRip"
	QualityDVDRip Quality = "DVDRip"
	QualityUnknown Quality = "Unknown"
)

// Feature is an unordered descriptor tag such as HDR or REMUX.
type Feature string

const (
	FeatureHDR        Feature = "HDR"
	FeatureDolbyVision Feature = "DolbyVision"
	FeatureAtmos      Feature = "Atmos"
	FeatureREMUX      Feature = "REMUX"
	FeatureHEVC       Feature = "HEVC"
)

// Descriptor is the core, immutable-after-construction magnet entity.
// InfoHash is its identity: two descriptors with the same InfoHash are
// duplicates of each other.
type Descriptor struct {
	ContentID   string
	InfoHash    string
	MagnetURI   string
	DisplayName string
	Quality     Quality
	SizeBytes   int64
	Seeders     *int
	Leechers    *int
	Provider    string
	Language    string
	Season      *int
	Episode     *int
	Fansub      string
	Filename    string
	FileIndex   *int
	Trackers    []string
	Features    map[Feature]struct{}
	UploadedAt  *time.Time
}

// HasFeature reports whether the descriptor carries the given feature tag.
func (d Descriptor) HasFeature(f Feature) bool {
	if d.Features == nil {
		return false
	}
	_, ok := d.Features[f]
	return ok
}

// MatchesEpisode reports whether the descriptor matches the given season and
// episode, either through its own Season/Episode fields or through a
// ":S:E" suffix embedded in its ContentID. Both sides must be positive to
// request an exact match; a single-sided filter (season-only or
// episode-only) matches only the given side. A descriptor exposing no
// episode signal at all is excluded from an exact (both-sided) match.
func (d Descriptor) MatchesEpisode(season, episode int) bool {
	wantSeason := season > 0
	wantEpisode := episode > 0
	if !wantSeason && !wantEpisode {
		return true
	}

	if d.Season != nil && d.Episode != nil &&
		matchesSignal(*d.Season, *d.Episode, wantSeason, season, wantEpisode, episode) {
		return true
	}
	if s, e, ok := ParseEmbeddedEpisode(d.ContentID); ok &&
		matchesSignal(s, e, wantSeason, season, wantEpisode, episode) {
		return true
	}
	return false
}

func matchesSignal(ownSeason, ownEpisode int, wantSeason bool, season int, wantEpisode bool, episode int) bool {
	if wantSeason && ownSeason != season {
		return false
	}
	if wantEpisode && ownEpisode != episode {
		return false
	}
	return true
}

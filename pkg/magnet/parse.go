package magnet

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	infoHashRegex  = regexp.MustCompile(`(?i)btih:([0-9a-f]{40})`)
	sizeRegex      = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(KB|MB|GB|TB)`)
	embeddedEpRegex = regexp.MustCompile(`:(\d{1,3}):(\d{1,3})$`)

	sizeMultiplier = map[string]int64{
		"KB": 1024,
		"MB": 1024 * 1024,
		"GB": 1024 * 1024 * 1024,
		"TB": 1024 * 1024 * 1024 * 1024,
	}

	trackerSchemes = []string{"http://", "https://", "udp://"}
)

// InfoHashFromMagnetURI extracts the 40-hex-char info hash from a
// "magnet:?xt=urn:btih:HASH&..." URI. Returns "" if none is found.
func InfoHashFromMagnetURI(magnetURI string) string {
	m := infoHashRegex.FindStringSubmatch(magnetURI)
	if len(m) != 2 {
		return ""
	}
	return strings.ToLower(m[1])
}

// ParseSize converts a human size string like "1.2 GB" into bytes.
// Unmatched input returns 0.
func ParseSize(s string) int64 {
	m := sizeRegex.FindStringSubmatch(s)
	if len(m) != 3 {
		return 0
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	mult, ok := sizeMultiplier[strings.ToUpper(m[2])]
	if !ok {
		return 0
	}
	return int64(value * float64(mult))
}

// ParseEmbeddedEpisode extracts a trailing ":S:E" suffix from a content ID,
// e.g. "tt0903747:3:9" -> (3, 9, true).
func ParseEmbeddedEpisode(contentID string) (season, episode int, ok bool) {
	m := embeddedEpRegex.FindStringSubmatch(contentID)
	if len(m) != 3 {
		return 0, 0, false
	}
	s, err1 := strconv.Atoi(m[1])
	e, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return s, e, true
}

// StripEmbeddedEpisode returns the content ID with any trailing ":S:E"
// suffix removed.
func StripEmbeddedEpisode(contentID string) string {
	return embeddedEpRegex.ReplaceAllString(contentID, "")
}

// NormalizeQuality maps a free-text quality string into the enumerated
// Quality type, falling back to QualityUnknown.
func NormalizeQuality(raw string) Quality {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(lower, "2160") || strings.Contains(lower, "4k"):
		return Quality2160p
	case strings.Contains(lower, "1080"):
		return Quality1080p
	case strings.Contains(lower, "720"):
		return Quality720p
	case strings.Contains(lower, "480"):
		return Quality480p
	case strings.Contains(lower, "bluray") || strings.Contains(lower, "blu-ray"):
		return QualityBluRay
	case strings.Contains(lower, "webrip") || strings.Contains(lower, "web-rip") || strings.Contains(lower, "web"):
		return QualityWEBRip
	case strings.Contains(lower, "dvdrip") || strings.Contains(lower, "dvd"):
		return QualityDVDRip
	case strings.Contains(lower, "sd"):
		return QualitySD
	default:
		return QualityUnknown
	}
}

// QualityRank gives a coarse ordinal used by rank-based (as opposed to
// size-based) ordering strategies.
func QualityRank(q Quality) int {
	switch q {
	case Quality2160p:
		return 4
	case Quality1080p:
		return 3
	case Quality720p:
		return 2
	case Quality480p:
		return 1
	default:
		return 0
	}
}

// FilterTrackers keeps only trackers with a recognized scheme
// (http://, https://, udp://), preserving order.
func FilterTrackers(trackers []string) []string {
	out := make([]string, 0, len(trackers))
	for _, t := range trackers {
		for _, scheme := range trackerSchemes {
			if strings.HasPrefix(strings.ToLower(t), scheme) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// Package assembler implements the StreamAssembler component: it turns
// magnet descriptors into the addon's stream response shape.
package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tst4ckr/streamio-magnet-resolver/pkg/identifier"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/magnet"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/stremio"
)

const maxFilenameDisplayLen = 60

// Metadata is the optional enrichment attached to an assembly, sourced
// from the metadata collaborator (title/year).
type Metadata struct {
	Title string
	Year  string
}

// Options carries the inputs StreamAssembler needs beyond the descriptor
// list itself.
type Options struct {
	ContentType string
	Detection   *identifier.Detection
	Metadata    *Metadata
	// CountryWhitelist, when non-empty, is attached to every stream's
	// behaviorHints.
	CountryWhitelist []string
}

// Assemble converts descriptors into stream items, discarding any
// descriptor with no infoHash, and orders the result by descending
// videoSize with an alphabetical title tie-break.
func Assemble(descriptors []*magnet.Descriptor, opts Options) []stremio.StreamItem {
	items := make([]stremio.StreamItem, 0, len(descriptors))
	for _, d := range descriptors {
		if d.InfoHash == "" {
			continue
		}
		items = append(items, assembleOne(d, opts))
	}

	sortItems(items)
	return items
}

func assembleOne(d *magnet.Descriptor, opts Options) stremio.StreamItem {
	trackers := magnet.FilterTrackers(d.Trackers)
	sources := make([]string, 0, len(trackers))
	for _, t := range trackers {
		sources = append(sources, "tracker:"+t)
	}

	item := stremio.StreamItem{
		Title:    buildTitle(d, opts.Detection),
		InfoHash: d.InfoHash,
		Sources:  sources,
		BehaviorHints: stremio.StreamBehaviorHints{
			BingeGroup: "magnet-" + d.InfoHash,
			VideoSize:  d.SizeBytes,
			Filename:   d.Filename,
		},
	}
	item.Description = buildDescription(d, opts.Metadata)
	if d.FileIndex != nil {
		item.FileIndex = uint8(*d.FileIndex)
	}
	if len(opts.CountryWhitelist) > 0 {
		item.BehaviorHints.CountryWhitelist = opts.CountryWhitelist
	}
	return item
}

func buildTitle(d *magnet.Descriptor, det *identifier.Detection) string {
	emoji := emojiFor(det)

	provider := d.Provider
	if provider == "" {
		provider = "Unknown"
	}

	var b strings.Builder
	if emoji != "" {
		b.WriteString(emoji)
		b.WriteString(" ")
	}
	b.WriteString(string(d.Quality))
	b.WriteString(" | ")
	b.WriteString(provider)

	if d.Season != nil && d.Episode != nil {
		fmt.Fprintf(&b, " | T%dE%d", *d.Season, *d.Episode)
	}
	if d.Seeders != nil && *d.Seeders > 0 {
		fmt.Fprintf(&b, " (%dS)", *d.Seeders)
	}
	return b.String()
}

func emojiFor(det *identifier.Detection) string {
	if det == nil {
		return ""
	}
	switch {
	case det.Type.IsAnimeFamily():
		return "🎌"
	case det.Type.IsIMDbFamily():
		return "🎬"
	default:
		return ""
	}
}

func buildDescription(d *magnet.Descriptor, meta *Metadata) string {
	var lines []string

	if meta != nil && meta.Title != "" {
		title := meta.Title
		if meta.Year != "" {
			title += " (" + meta.Year + ")"
		}
		lines = append(lines, title)
	}

	if d.Filename != "" {
		lines = append(lines, truncate(d.Filename, maxFilenameDisplayLen))
	}

	lines = append(lines, technicalLine(d))

	return strings.Join(lines, "\n")
}

func technicalLine(d *magnet.Descriptor) string {
	parts := []string{d.Provider, string(d.Quality)}
	if d.SizeBytes > 0 {
		parts = append(parts, humanSize(d.SizeBytes))
	}
	if d.Season != nil && d.Episode != nil {
		parts = append(parts, fmt.Sprintf("S%02dE%02d", *d.Season, *d.Episode))
	}
	if d.Language != "" {
		parts = append(parts, d.Language)
	}
	if d.Fansub != "" {
		parts = append(parts, d.Fansub)
	}
	if d.Seeders != nil {
		leechers := 0
		if d.Leechers != nil {
			leechers = *d.Leechers
		}
		parts = append(parts, fmt.Sprintf("%dS/%dP", *d.Seeders, leechers))
	}

	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, " | ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGT"[exp])
}

func sortItems(items []stremio.StreamItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].BehaviorHints.VideoSize != items[j].BehaviorHints.VideoSize {
			return items[i].BehaviorHints.VideoSize > items[j].BehaviorHints.VideoSize
		}
		return items[i].Title < items[j].Title
	})
}

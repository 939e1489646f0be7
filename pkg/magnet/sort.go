package magnet

import (
	"sort"
	"strconv"
)

// DedupByInfoHash keeps the first descriptor seen per dedup key, discarding
// later duplicates. InfoHash is the preferred key; a descriptor with no
// infoHash falls back to a {displayName, sizeBytes} key instead of being
// dropped, so a caller that hasn't already filtered infoHash-less results
// still gets a sane dedup instead of silent data loss.
func DedupByInfoHash(descriptors []*Descriptor) []*Descriptor {
	seen := make(map[string]struct{}, len(descriptors))
	out := make([]*Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if d == nil {
			continue
		}
		key := dedupKey(d)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	return out
}

func dedupKey(d *Descriptor) string {
	if d.InfoHash != "" {
		return "hash:" + d.InfoHash
	}
	return "ts:" + d.DisplayName + "|" + strconv.FormatInt(d.SizeBytes, 10)
}

// SortByDefault orders descriptors by descending size and, as a
// tie-breaker, alphabetically by display name. This is the primary
// ordering used when merging repository tiers.
func SortByDefault(descriptors []*Descriptor) {
	sort.SliceStable(descriptors, func(i, j int) bool {
		if descriptors[i].SizeBytes != descriptors[j].SizeBytes {
			return descriptors[i].SizeBytes > descriptors[j].SizeBytes
		}
		return descriptors[i].DisplayName < descriptors[j].DisplayName
	})
}

// SortBySeedersThenQuality orders descriptors by descending seeder count
// (nil treated as zero) and, as a tie-breaker, descending quality rank.
// This is the alternative ordering providers may declare.
func SortBySeedersThenQuality(descriptors []*Descriptor) {
	sort.SliceStable(descriptors, func(i, j int) bool {
		si, sj := seedersOf(descriptors[i]), seedersOf(descriptors[j])
		if si != sj {
			return si > sj
		}
		return QualityRank(descriptors[i].Quality) > QualityRank(descriptors[j].Quality)
	})
}

func seedersOf(d *Descriptor) int {
	if d.Seeders == nil {
		return 0
	}
	return *d.Seeders
}

package cachestore

import "strconv"

// StreamKey builds the cache key for a stream-resolution result, per
// spec.md §4.4: "stream:{type}:{contentId}:{idType}" and, when season and
// episode are both positive, a ":s{S}e{E}" suffix.
func StreamKey(contentType, contentID, idType string, season, episode int) string {
	key := "stream:" + contentType + ":" + contentID + ":" + idType
	if season > 0 && episode > 0 {
		key += ":s" + strconv.Itoa(season) + "e" + strconv.Itoa(episode)
	}
	return key
}

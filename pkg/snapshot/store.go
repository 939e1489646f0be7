// Package snapshot implements the TabularSnapshotStore component: a
// once-loaded, in-memory index of magnet descriptors read from a flat CSV
// snapshot, either on local disk or fetched from a URL on first lookup.
package snapshot

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tst4ckr/streamio-magnet-resolver/pkg/magnet"
)

// Options filters a Store lookup by season/episode, mirroring the options
// bag CascadingMagnetRepository threads through to every tier.
type Options struct {
	Season  int
	Episode int
}

const defaultLoadTimeout = 30 * time.Second

// Store is a lazily-loaded, indexed snapshot of magnet descriptors. The
// zero value is not usable; construct with New. A Store loads at most
// once: the first call to ByContentID triggers the load, and every
// subsequent call reuses the same result (success or failure).
type Store struct {
	name    string
	source  string // local file path, or an http(s):// URL
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger

	once       sync.Once
	loadErr    error
	mu         sync.RWMutex
	byContent  map[string][]*magnet.Descriptor
	byLegacyID map[string][]*magnet.Descriptor
}

// New constructs a Store reading from source, which may be a local file
// path or an http(s) URL. timeout bounds a remote fetch; it's ignored for
// local files.
func New(name, source string, timeout time.Duration, logger *zap.Logger) *Store {
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}
	return &Store{
		name:       name,
		source:     source,
		timeout:    timeout,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
		byContent:  make(map[string][]*magnet.Descriptor),
		byLegacyID: make(map[string][]*magnet.Descriptor),
	}
}

// Name returns the store's configured label, used in exhausted-source
// bookkeeping and logging.
func (s *Store) Name() string {
	return s.name
}

// ByContentID returns every descriptor indexed under contentID (or, absent
// that, under a matching legacy imdbID), filtered by season/episode when
// either is positive. Triggers the lazy load on first call.
func (s *Store) ByContentID(ctx context.Context, contentID string, opts Options) ([]*magnet.Descriptor, error) {
	s.once.Do(func() {
		s.loadErr = s.load(ctx)
	})
	if s.loadErr != nil {
		return nil, s.loadErr
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates, ok := s.byContent[contentID]
	if !ok {
		candidates = s.byLegacyID[contentID]
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	if opts.Season <= 0 && opts.Episode <= 0 {
		out := make([]*magnet.Descriptor, len(candidates))
		copy(out, candidates)
		return out, nil
	}

	filtered := make([]*magnet.Descriptor, 0, len(candidates))
	for _, d := range candidates {
		if d.MatchesEpisode(opts.Season, opts.Episode) {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

func (s *Store) load(ctx context.Context) error {
	reader, closeFn, err := s.openSource(ctx)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", s.name, err)
	}
	defer closeFn()

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("snapshot %s: reading header: %w", s.name, err)
	}
	cols := indexHeader(header)

	rowNum := 1
	skipped := 0
	loaded := 0
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			s.logf("malformed row, skipping", rowNum, err)
			skipped++
			continue
		}

		d, err := parseRow(record, cols)
		if err != nil {
			s.logf("malformed row, skipping", rowNum, err)
			skipped++
			continue
		}

		s.mu.Lock()
		s.byContent[d.ContentID] = append(s.byContent[d.ContentID], d)
		if legacy := field(record, cols, "imdbid"); legacy != "" && legacy != d.ContentID {
			s.byLegacyID[legacy] = append(s.byLegacyID[legacy], d)
		}
		s.mu.Unlock()
		loaded++
	}

	if s.logger != nil {
		s.logger.Info("Snapshot store loaded",
			zap.String("store", s.name),
			zap.Int("loaded", loaded),
			zap.Int("skipped", skipped))
	}
	return nil
}

func (s *Store) openSource(ctx context.Context) (io.Reader, func(), error) {
	if strings.HasPrefix(s.source, "http://") || strings.HasPrefix(s.source, "https://") {
		reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.source, nil)
		if err != nil {
			cancel()
			return nil, nil, err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			cancel()
			return nil, nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			cancel()
			return nil, nil, fmt.Errorf("unexpected status %d fetching snapshot", resp.StatusCode)
		}
		return resp.Body, func() { resp.Body.Close(); cancel() }, nil
	}

	f, err := os.Open(s.source)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func (s *Store) logf(msg string, row int, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg, zap.String("store", s.name), zap.Int("row", row), zap.Error(err))
}

// indexHeader maps each column name to its position, normalized by
// lowercasing and stripping underscores so the snapshot format's
// documented "content_id" and a hand-written "contentId" resolve to the
// same lookup key.
func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[normalizeColumn(col)] = i
	}
	return idx
}

func normalizeColumn(col string) string {
	col = strings.ToLower(strings.TrimSpace(col))
	return strings.ReplaceAll(col, "_", "")
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// firstField returns the first non-empty value among several accepted
// column aliases, so both the documented snapshot format's names and a
// few common synonyms are understood.
func firstField(record []string, cols map[string]int, names ...string) string {
	for _, name := range names {
		if v := field(record, cols, name); v != "" {
			return v
		}
	}
	return ""
}

func parseRow(record []string, cols map[string]int) (*magnet.Descriptor, error) {
	contentID := field(record, cols, "contentid")
	magnetURI := firstField(record, cols, "magnet", "magneturi")
	if contentID == "" {
		return nil, fmt.Errorf("missing content_id")
	}

	infoHash := field(record, cols, "infohash")
	if infoHash == "" {
		infoHash = magnet.InfoHashFromMagnetURI(magnetURI)
	}
	if infoHash == "" {
		return nil, fmt.Errorf("row %q has no derivable infoHash", contentID)
	}

	d := &magnet.Descriptor{
		ContentID:   contentID,
		InfoHash:    strings.ToLower(infoHash),
		MagnetURI:   magnetURI,
		DisplayName: firstField(record, cols, "name", "displayname"),
		Quality:     magnet.NormalizeQuality(field(record, cols, "quality")),
		Provider:    field(record, cols, "provider"),
		Language:    field(record, cols, "language"),
		Fansub:      field(record, cols, "fansub"),
		Filename:    field(record, cols, "filename"),
	}

	if sizeStr := field(record, cols, "sizebytes"); sizeStr != "" {
		if n, err := strconv.ParseInt(sizeStr, 10, 64); err == nil {
			d.SizeBytes = n
		}
	} else if humanSize := field(record, cols, "size"); humanSize != "" {
		d.SizeBytes = magnet.ParseSize(humanSize)
	}

	if seeders, err := strconv.Atoi(field(record, cols, "seeders")); err == nil {
		d.Seeders = &seeders
	}
	if leechers, err := strconv.Atoi(firstField(record, cols, "peers", "leechers")); err == nil {
		d.Leechers = &leechers
	}
	if season, err := strconv.Atoi(field(record, cols, "season")); err == nil && season > 0 {
		d.Season = &season
	}
	if episode, err := strconv.Atoi(field(record, cols, "episode")); err == nil && episode > 0 {
		d.Episode = &episode
	}
	if fileIndex, err := strconv.Atoi(field(record, cols, "fileindex")); err == nil {
		d.FileIndex = &fileIndex
	}

	if trackers := field(record, cols, "trackers"); trackers != "" {
		d.Trackers = magnet.FilterTrackers(strings.Split(trackers, "|"))
	}

	if features := field(record, cols, "features"); features != "" {
		d.Features = make(map[magnet.Feature]struct{})
		for _, f := range strings.Split(features, ",") {
			f = strings.TrimSpace(f)
			if f != "" {
				d.Features[magnet.Feature(f)] = struct{}{}
			}
		}
	}

	if uploaded := field(record, cols, "uploadedat"); uploaded != "" {
		if t, err := time.Parse(time.RFC3339, uploaded); err == nil {
			d.UploadedAt = &t
		}
	}

	return d, nil
}

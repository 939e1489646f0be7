// Package metafetcher implements the title/year half of the metadata
// enrichment collaborator: a thin Cinemeta HTTP client satisfying
// pipeline.MetadataClient, backed by the addon's own byte-budgeted cache
// instead of a dedicated one.
package metafetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/tst4ckr/streamio-magnet-resolver/pkg/assembler"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/cachestore"
)

const (
	defaultBaseURL = "https://v3-cinemeta.strem.io"
	defaultTimeout = 5 * time.Second
	cacheTTL       = 30 * 24 * time.Hour
)

// Client fetches title/year metadata for a content id from Cinemeta,
// trying the movie endpoint before the series endpoint since the caller
// doesn't know the content type at enrichment time.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *cachestore.Cache
	logger     *zap.Logger
}

// New constructs a Client. baseURL defaults to the public Cinemeta
// instance when empty.
func New(baseURL string, timeout time.Duration, cache *cachestore.Cache, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		logger:     logger,
	}
}

// FetchMetadata implements pipeline.MetadataClient.
func (c *Client) FetchMetadata(ctx context.Context, contentID string) (*assembler.Metadata, error) {
	cacheKey := "meta:" + contentID
	if c.cache != nil {
		if cached, ok := c.cache.Get(cacheKey); ok {
			if meta, ok := cached.(*assembler.Metadata); ok {
				return meta, nil
			}
		}
	}

	meta, err := c.fetch(ctx, "movie", contentID)
	if err != nil {
		meta, err = c.fetch(ctx, "series", contentID)
	}
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(cacheKey, meta, cacheTTL, nil)
	}
	return meta, nil
}

func (c *Client) fetch(ctx context.Context, contentType, contentID string) (*assembler.Metadata, error) {
	reqURL := fmt.Sprintf("%s/meta/%s/%s.json", c.baseURL, contentType, contentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cinemeta request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cinemeta returned status %d for %s", res.StatusCode, contentID)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("couldn't read cinemeta response: %w", err)
	}

	name := gjson.GetBytes(body, "meta.name").String()
	if name == "" {
		return nil, fmt.Errorf("cinemeta response for %s has no meta.name", contentID)
	}

	year := gjson.GetBytes(body, "meta.year").String()
	year = normalizeYear(year)

	if c.logger != nil {
		c.logger.Debug("Fetched metadata", zap.String("contentId", contentID), zap.String("contentType", contentType), zap.String("name", name))
	}

	return &assembler.Metadata{Title: name, Year: year}, nil
}

// normalizeYear trims a Cinemeta "releaseInfo"-style year range
// (e.g. "2008-2013") down to its first 4 digits, and drops it entirely
// if it doesn't parse as a year.
func normalizeYear(year string) string {
	if len(year) > 4 {
		year = year[:4]
	}
	if _, err := strconv.Atoi(year); err != nil {
		return ""
	}
	return year
}

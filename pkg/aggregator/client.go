// Package aggregator implements the RemoteAggregatorClient component: a
// last-resort HTTP lookup against an external multi-provider aggregator,
// used when every local snapshot store comes back empty.
package aggregator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/tst4ckr/streamio-magnet-resolver/pkg/magnet"
)

const defaultTimeout = 8 * time.Second

// Client calls an external aggregator API that fans a query out to its own
// set of providers and returns a flat stream list per content type.
type Client struct {
	baseURL         string
	providersByType map[string][]string
	defaultLanguage string
	timeout         time.Duration
	httpClient      *http.Client
	logger          *zap.Logger
}

// Config carries Client construction parameters.
type Config struct {
	BaseURL         string
	ProvidersByType map[string][]string
	DefaultLanguage string
	Timeout         time.Duration
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		providersByType: cfg.ProvidersByType,
		defaultLanguage: cfg.DefaultLanguage,
		timeout:         cfg.Timeout,
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		logger:          logger,
	}
}

// SearchByID fetches descriptors for id/contentType, trying languages in
// order: languagePriority (as given), then the client's configured
// default, then "en". It returns the first non-empty result; if every
// attempt comes back empty and at least one request errored outright, the
// last such error is returned.
func (c *Client) SearchByID(ctx context.Context, id, contentType string, languagePriority []string) ([]*magnet.Descriptor, error) {
	langs := buildLanguageChain(languagePriority, c.defaultLanguage)

	var lastErr error
	for _, lang := range langs {
		results, err := c.fetch(ctx, id, contentType, lang)
		if err != nil {
			lastErr = err
			if c.logger != nil {
				c.logger.Warn("Aggregator request failed",
					zap.String("contentId", id), zap.String("language", lang), zap.Error(err))
			}
			continue
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	return nil, lastErr
}

func buildLanguageChain(priority []string, defaultLang string) []string {
	seen := make(map[string]struct{})
	var chain []string
	add := func(lang string) {
		lang = strings.TrimSpace(lang)
		if lang == "" {
			return
		}
		if _, ok := seen[lang]; ok {
			return
		}
		seen[lang] = struct{}{}
		chain = append(chain, lang)
	}
	for _, lang := range priority {
		add(lang)
	}
	add(defaultLang)
	add("en")
	return chain
}

func (c *Client) fetch(ctx context.Context, id, contentType, lang string) ([]*magnet.Descriptor, error) {
	providers := c.providersByType[contentType]

	reqURL := fmt.Sprintf("%s/%s/%s?lang=%s", c.baseURL, contentType, id, lang)
	if len(providers) > 0 {
		reqURL += "&providers=" + strings.Join(providers, ",")
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aggregator returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return parseStreams(body, lang), nil
}

func parseStreams(body []byte, lang string) []*magnet.Descriptor {
	streams := gjson.GetBytes(body, "streams")
	if !streams.Exists() {
		streams = gjson.ParseBytes(body)
	}
	if !streams.IsArray() {
		return nil
	}

	var out []*magnet.Descriptor
	streams.ForEach(func(_, item gjson.Result) bool {
		d := descriptorFromJSON(item, lang)
		if d != nil {
			out = append(out, d)
		}
		return true
	})
	return out
}

func descriptorFromJSON(item gjson.Result, lang string) *magnet.Descriptor {
	magnetURI := item.Get("magnetUri").String()
	infoHash := item.Get("infoHash").String()
	if infoHash == "" {
		infoHash = magnet.InfoHashFromMagnetURI(magnetURI)
	}
	if infoHash == "" {
		return nil
	}

	d := &magnet.Descriptor{
		ContentID:   item.Get("contentId").String(),
		InfoHash:    strings.ToLower(infoHash),
		MagnetURI:   magnetURI,
		DisplayName: item.Get("title").String(),
		Quality:     magnet.NormalizeQuality(item.Get("quality").String()),
		Provider:    item.Get("provider").String(),
		Language:    lang,
	}

	if sizeBytes := item.Get("sizeBytes"); sizeBytes.Exists() {
		d.SizeBytes = sizeBytes.Int()
	} else if size := item.Get("size"); size.Exists() {
		d.SizeBytes = magnet.ParseSize(size.String())
	}

	if seeders := item.Get("seeders"); seeders.Exists() {
		n := int(seeders.Int())
		d.Seeders = &n
	}
	if leechers := item.Get("leechers"); leechers.Exists() {
		n := int(leechers.Int())
		d.Leechers = &n
	}

	if trackers := item.Get("trackers"); trackers.IsArray() {
		var list []string
		trackers.ForEach(func(_, t gjson.Result) bool {
			list = append(list, t.String())
			return true
		})
		d.Trackers = magnet.FilterTrackers(list)
	}

	return d
}

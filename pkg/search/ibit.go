package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/tst4ckr/streamio-magnet-resolver/pkg/magnet"
)

// spanishMarkers are title substrings ibit uses to flag Spanish/Latino
// audio releases, since the site doesn't expose a structured language
// field.
var spanishMarkers = []string{"latino", "espanol", "español", "castellano", "spanish"}

// IbitProvider is a goquery-based HTML scraping provider specialized for
// Spanish-language content: Latino/Spanish releases rank above others.
type IbitProvider struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewIbitProvider constructs an IbitProvider.
func NewIbitProvider(baseURL string, timeout time.Duration, logger *zap.Logger) *IbitProvider {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &IbitProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (p *IbitProvider) ID() string            { return "ibit" }
func (p *IbitProvider) RequestsPerMinute() int { return 20 }

func (p *IbitProvider) Search(ctx context.Context, q Query) ([]*magnet.Descriptor, error) {
	reqURL := p.baseURL + "/torrent-search/" + url.QueryEscape(q.Term)

	doc, err := p.getDoc(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	isPreferredLanguage := q.Language == "es" || q.Language == "es-latino" || q.Language == "es-sub"

	var results []*magnet.Descriptor
	doc.Find("table.table tbody tr").Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find("a.title").First().Text())
		if title == "" {
			return
		}
		if !meetsOverlapThreshold(q.Term, title, isPreferredLanguage) {
			return
		}

		magnetURI, ok := s.Find("a[href^='magnet:?']").Attr("href")
		if !ok || magnetURI == "" {
			return
		}
		infoHash := magnet.InfoHashFromMagnetURI(magnetURI)
		if infoHash == "" {
			return
		}

		seedersText := strings.TrimSpace(s.Find(".seeds").First().Text())
		seeders, _ := strconv.Atoi(seedersText)
		sizeText := strings.TrimSpace(s.Find(".size").First().Text())

		d := &magnet.Descriptor{
			ContentID:   q.ImdbID,
			InfoHash:    infoHash,
			MagnetURI:   magnetURI,
			DisplayName: title,
			Quality:     magnet.NormalizeQuality(title),
			SizeBytes:   magnet.ParseSize(sizeText),
			Seeders:     &seeders,
			Provider:    p.ID(),
			Language:    languageFromTitle(title),
		}
		results = append(results, d)
	})

	return results, nil
}

// Rank pushes Spanish/Latino-tagged releases to the top, the provider's
// declared bias.
func (p *IbitProvider) Rank(results []*magnet.Descriptor) {
	sort.SliceStable(results, func(i, j int) bool {
		iSpanish := isSpanishRelease(results[i].DisplayName)
		jSpanish := isSpanishRelease(results[j].DisplayName)
		if iSpanish != jSpanish {
			return iSpanish
		}
		return magnet.QualityRank(results[i].Quality) > magnet.QualityRank(results[j].Quality)
	})
}

func isSpanishRelease(title string) bool {
	lower := strings.ToLower(title)
	for _, marker := range spanishMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func languageFromTitle(title string) string {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "latino"):
		return "es-latino"
	case strings.Contains(lower, "subtitulado") || strings.Contains(lower, "sub"):
		return "es-sub"
	case isSpanishRelease(title):
		return "es"
	default:
		return "en"
	}
}

func (p *IbitProvider) getDoc(ctx context.Context, reqURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ibit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ibit: unexpected status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/tst4ckr/streamio-magnet-resolver/pkg/magnet"
)

// LeetxProvider is a goquery-based HTML scraping provider with no
// specialty bias: results rank by seeder count, descending.
type LeetxProvider struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewLeetxProvider constructs a LeetxProvider.
func NewLeetxProvider(baseURL string, timeout time.Duration, logger *zap.Logger) *LeetxProvider {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &LeetxProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (p *LeetxProvider) ID() string            { return "1337x" }
func (p *LeetxProvider) RequestsPerMinute() int { return 20 }

func (p *LeetxProvider) Search(ctx context.Context, q Query) ([]*magnet.Descriptor, error) {
	searchTerm := q.Term
	if q.Year != "" {
		searchTerm += " " + q.Year
	}
	reqURL := p.baseURL + "/search/" + url.QueryEscape(searchTerm) + "/1/"

	doc, err := p.getDoc(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var rows []searchRow
	doc.Find(".table-list tbody tr").Each(func(_ int, s *goquery.Selection) {
		row := parseLeetxRow(s, p.baseURL)
		if row != nil {
			rows = append(rows, *row)
		}
	})

	var results []*magnet.Descriptor
	for _, row := range rows {
		if !meetsOverlapThreshold(q.Term, row.title, q.Language == "en" || q.Language == "") {
			continue
		}

		infoHash, trackers, err := p.resolveMagnet(ctx, row.detailURL)
		if err != nil {
			if p.logger != nil {
				p.logger.Debug("1337x: couldn't resolve magnet", zap.String("url", row.detailURL), zap.Error(err))
			}
			continue
		}

		seeders := row.seeders
		d := &magnet.Descriptor{
			ContentID:   q.ImdbID,
			InfoHash:    infoHash,
			MagnetURI:   buildMagnetURI(infoHash, row.title, trackers),
			DisplayName: row.title,
			Quality:     magnet.NormalizeQuality(row.title),
			SizeBytes:   magnet.ParseSize(row.size),
			Seeders:     &seeders,
			Provider:    p.ID(),
			Trackers:    trackers,
		}
		results = append(results, d)
	}

	return results, nil
}

// Rank orders by descending seeder count, this provider's default bias.
func (p *LeetxProvider) Rank(results []*magnet.Descriptor) {
	magnet.SortBySeedersThenQuality(results)
}

type searchRow struct {
	title     string
	detailURL string
	seeders   int
	size      string
}

func parseLeetxRow(s *goquery.Selection, baseURL string) *searchRow {
	link := s.Find(".name a").Last()
	href, ok := link.Attr("href")
	if !ok || href == "" {
		return nil
	}
	title := strings.TrimSpace(link.Text())
	seedersText := strings.TrimSpace(s.Find(".seeds").First().Text())
	seeders, _ := strconv.Atoi(seedersText)
	size := strings.TrimSpace(s.Find(".size").First().Clone().Children().Remove().End().Text())

	return &searchRow{
		title:     title,
		detailURL: baseURL + href,
		seeders:   seeders,
		size:      size,
	}
}

func (p *LeetxProvider) resolveMagnet(ctx context.Context, detailURL string) (string, []string, error) {
	doc, err := p.getDoc(ctx, detailURL)
	if err != nil {
		return "", nil, err
	}

	magnetURI, ok := doc.Find("a[href^='magnet:?']").Attr("href")
	if !ok || magnetURI == "" {
		return "", nil, fmt.Errorf("no magnet link found on detail page")
	}

	infoHash := magnet.InfoHashFromMagnetURI(magnetURI)
	if infoHash == "" {
		return "", nil, fmt.Errorf("couldn't derive infoHash from magnet link")
	}

	var trackers []string
	for _, tr := range strings.Split(magnetURI, "&tr=") {
		// Skip the first split piece, it's the non-tracker prefix.
		if strings.Contains(tr, "://") {
			if decoded, err := url.QueryUnescape(tr); err == nil {
				trackers = append(trackers, decoded)
			}
		}
	}

	return infoHash, magnet.FilterTrackers(trackers), nil
}

func (p *LeetxProvider) getDoc(ctx context.Context, reqURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("1337x: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("1337x: unexpected status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"TopArtistsTracker/internal/config"
	"TopArtistsTracker/internal/domain"
	"TopArtistsTracker/internal/ranking"
	"TopArtistsTracker/internal/scanner"
)

// ChartScanner reads a ranked artist chart published as HTML pages linked by
// a "next" anchor.
type ChartScanner struct {
	client *http.Client
	cfg    config.HTMLConfig
	logger *slog.Logger
}

var _ scanner.Scanner = (*ChartScanner)(nil)

// ErrPageCycle reports a "next" link back to a page already read in the
// same scan.
var ErrPageCycle = errors.New("chart pages link in a cycle")

// NewChartScanner wires an HTTP client; a nil client gets a 20s timeout.
func NewChartScanner(client *http.Client, cfg config.HTMLConfig, log *slog.Logger) *ChartScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &ChartScanner{client: client, cfg: cfg, logger: log}
}

// Name identifies the strategy inside the registry.
func (c *ChartScanner) Name() string {
	return "html"
}

// Scan follows the chart from its first page to the last.
func (c *ChartScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RankedItem, error) {
	start := c.cfg.URL
	if v := req.Options["url"]; v != "" {
		start = v
	}
	if start == "" {
		return nil, fmt.Errorf("no chart url configured")
	}

	visited := map[string]struct{}{}
	first, err := c.fetchPage(ctx, start, visited)
	if err != nil {
		return nil, err
	}
	return ranking.Collect(ctx, first, toRankedItem)
}

type chartEntry struct {
	id   string
	name string
}

func toRankedItem(e chartEntry, rank int) domain.RankedItem {
	return domain.RankedItem{ID: e.id, Name: e.name, Rank: rank}
}

type chartPage struct {
	scanner *ChartScanner
	visited map[string]struct{}
	entries []chartEntry
	present bool
	next    string
}

func (p *chartPage) Items() ([]chartEntry, bool) {
	return p.entries, p.present
}

func (p *chartPage) HasNext() bool {
	return p.next != ""
}

func (p *chartPage) Next(ctx context.Context) (ranking.Page[chartEntry], error) {
	return p.scanner.fetchPage(ctx, p.next, p.visited)
}

func (c *ChartScanner) fetchPage(ctx context.Context, pageURL string, visited map[string]struct{}) (*chartPage, error) {
	if _, seen := visited[pageURL]; seen {
		return nil, fmt.Errorf("chart page %s: %w", pageURL, ErrPageCycle)
	}
	visited[pageURL] = struct{}{}

	doc, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("chart page %s: %w", pageURL, err)
	}
	page, err := c.parsePage(doc, pageURL)
	if err != nil {
		return nil, fmt.Errorf("chart page %s: %w", pageURL, err)
	}
	page.visited = visited
	c.logger.Debug("parsed chart page", "url", pageURL, "entries", len(page.entries), "next", page.next)
	return page, nil
}

func (c *ChartScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (c *ChartScanner) parsePage(doc *goquery.Document, pageURL string) (*chartPage, error) {
	page := &chartPage{scanner: c}

	items := doc.Find(c.cfg.ItemSelector)
	if items.Length() > 0 {
		page.present = true
		page.entries = make([]chartEntry, 0, items.Length())
		items.Each(func(_ int, item *goquery.Selection) {
			if entry, ok := parseEntry(item, c.cfg.NameSelector, c.cfg.IDAttr); ok {
				page.entries = append(page.entries, entry)
			}
		})
	}

	if c.cfg.NextSelector == "" {
		return page, nil
	}
	href, exists := doc.Find(c.cfg.NextSelector).First().Attr("href")
	if !exists || strings.TrimSpace(href) == "" {
		return page, nil
	}
	next, err := resolveURL(pageURL, href)
	if err != nil {
		return nil, err
	}
	// a self-link would loop forever
	if next != pageURL {
		page.next = next
	}
	return page, nil
}

func parseEntry(item *goquery.Selection, nameSelector, idAttr string) (chartEntry, bool) {
	nameNode := item
	if nameSelector != "" {
		nameNode = item.Find(nameSelector).First()
	}
	name := strings.Join(strings.Fields(nameNode.Text()), " ")
	if name == "" {
		return chartEntry{}, false
	}

	id := ""
	if idAttr != "" {
		if v, ok := item.Attr(idAttr); ok {
			id = strings.TrimSpace(v)
		} else if v, ok := item.Find("[" + idAttr + "]").First().Attr(idAttr); ok {
			id = strings.TrimSpace(v)
		}
	}
	if id == "" {
		id = name
	}
	return chartEntry{id: id, name: name}, true
}

func resolveURL(base, href string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid page url %s: %w", base, err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("invalid next link %s: %w", href, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}

package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/scanner"
)

// Selector option keys accepted in a site's options block.
const (
	OptItem     = "item"
	OptLink     = "link"
	OptTitle    = "title"
	OptDate     = "date"
	OptPageSize = "pageSize"
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3,9} \d{4}`)

// Selectors locate records inside a listing page.
type Selectors struct {
	Item  string
	Link  string
	Title string
	Date  string
}

func (s Selectors) merge(opts map[string]string) Selectors {
	if v := strings.TrimSpace(opts[OptItem]); v != "" {
		s.Item = v
	}
	if v := strings.TrimSpace(opts[OptLink]); v != "" {
		s.Link = v
	}
	if v := strings.TrimSpace(opts[OptTitle]); v != "" {
		s.Title = v
	}
	if v := strings.TrimSpace(opts[OptDate]); v != "" {
		s.Date = v
	}
	return s
}

// ListingScanner scrapes HTML listing pages with CSS selectors.
type ListingScanner struct {
	name     string
	client   *http.Client
	defaults Selectors
}

// NewListingScanner builds the generic "listing" strategy; selectors come from site options.
func NewListingScanner(client *http.Client) *ListingScanner {
	return newListingScanner("listing", client, Selectors{
		Item:  "article",
		Link:  "a[href]",
		Title: "h2, h3, a",
		Date:  "time",
	})
}

// NewArxivScanner preconfigures selectors for arxiv.org list pages.
func NewArxivScanner(client *http.Client) *ListingScanner {
	return newListingScanner("arxiv", client, Selectors{
		Item:  "dl > dt",
		Link:  `a[href*="/abs/"]`,
		Title: ".list-title",
		Date:  ".list-date, .list-dateline",
	})
}

func newListingScanner(name string, client *http.Client, defaults Selectors) *ListingScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ListingScanner{name: name, client: client, defaults: defaults}
}

// Name identifies the strategy inside the registry.
func (l *ListingScanner) Name() string {
	return l.name
}

// Scan fetches every category page and returns one record per matched item.
func (l *ListingScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawRecord, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	selectors := l.defaults.merge(req.Options)
	pageSize, _ := strconv.Atoi(req.Options[OptPageSize])

	var results []domain.RawRecord
	seen := map[string]struct{}{}
	for _, cat := range req.Categories {
		pageURL, err := buildPageURL(cat.URL, pageSize)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", cat.Name, err)
		}

		doc, err := l.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", cat.Name, err)
		}

		for _, record := range extractRecords(doc, selectors, pageURL, sourceLabel(req.SiteName, cat.Name)) {
			if _, ok := seen[record.URL]; ok {
				continue
			}
			seen[record.URL] = struct{}{}
			results = append(results, record)
		}
	}

	return results, nil
}

func (l *ListingScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsCurator/1.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func extractRecords(doc *goquery.Document, sel Selectors, pageURL, source string) []domain.RawRecord {
	base, _ := url.Parse(pageURL)

	var records []domain.RawRecord
	doc.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		// arxiv keeps the metadata in the sibling <dd>.
		scope := item
		if goquery.NodeName(item) == "dt" {
			scope = item.AddSelection(item.Next())
		}

		record, ok := parseItem(scope, sel, base, source)
		if ok {
			records = append(records, record)
		}
	})
	return records
}

func parseItem(scope *goquery.Selection, sel Selectors, base *url.URL, source string) (domain.RawRecord, bool) {
	link := scope.Find(sel.Link).First()
	if link.Length() == 0 && scope.Is(sel.Link) {
		link = scope.First()
	}
	href, ok := link.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return domain.RawRecord{}, false
	}
	if ref, err := url.Parse(href); err == nil && base != nil {
		href = base.ResolveReference(ref).String()
	}

	title := cleanText(scope.Find(sel.Title).First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))
	if title == "" {
		title = cleanText(link.Text())
	}

	return domain.RawRecord{
		URL:       href,
		Title:     title,
		Source:    source,
		Published: extractDate(scope.Find(sel.Date).First()),
	}, true
}

func extractDate(node *goquery.Selection) string {
	if node.Length() == 0 {
		return ""
	}
	if dt, ok := node.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
		return strings.TrimSpace(dt)
	}
	text := cleanText(node.Text())
	if match := dateExpr.FindString(text); match != "" {
		return match
	}
	return text
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func sourceLabel(site, category string) string {
	if category == "" {
		return site
	}
	return fmt.Sprintf("%s/%s", site, category)
}

func buildPageURL(base string, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid category url %s: missing scheme or host", base)
	}
	if pageSize > 0 {
		query := parsed.Query()
		query.Set("skip", "0")
		query.Set("show", strconv.Itoa(pageSize))
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}

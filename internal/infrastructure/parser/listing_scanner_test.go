package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"NewsCurator/internal/config"
	"NewsCurator/internal/logging"
	"NewsCurator/internal/scanner"
)

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	base := "https://export.arxiv.org/list/cs.AI/pastweek"
	u, err := buildPageURL(base, 100)
	if err != nil {
		t.Fatalf("buildPageURL returned error: %v", err)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if parsed.Host != "export.arxiv.org" {
		t.Fatalf("unexpected host: %s", parsed.Host)
	}
	if q := parsed.Query(); q.Get("show") != "100" || q.Get("skip") != "0" {
		t.Fatalf("unexpected query: %s", parsed.RawQuery)
	}

	if u, _ := buildPageURL(base, 0); u != base {
		t.Fatalf("expected untouched url, got %s", u)
	}
	if _, err := buildPageURL("not a url", 0); err == nil {
		t.Fatalf("expected error for relative url")
	}
}

func TestExtractArxivEntry(t *testing.T) {
	t.Parallel()

	html := `
	<dl>
	  <dt>
	    <span class="list-identifier"><a href="/abs/1234.56789">arXiv:1234.56789</a></span>
	  </dt>
	  <dd>
	    <div class="list-date">Date: 8 Nov 2025</div>
	    <div class="list-title mathjax">Title:   Sample
	      Title</div>
	  </dd>
	</dl>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	records := extractRecords(doc, NewArxivScanner(nil).defaults, "https://arxiv.org/list/cs.AI/new", "arxiv/cs.AI")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.URL != "https://arxiv.org/abs/1234.56789" {
		t.Fatalf("unexpected url: %s", r.URL)
	}
	if r.Title != "Sample Title" {
		t.Fatalf("unexpected title: %q", r.Title)
	}
	if r.Published != "8 Nov 2025" {
		t.Fatalf("unexpected date: %q", r.Published)
	}
	if r.Source != "arxiv/cs.AI" {
		t.Fatalf("unexpected source: %s", r.Source)
	}
}

func TestListingScannerScan(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`
		<div class="post"><a class="headline" href="/news/one">First launch</a><time datetime="2025-11-08T10:00:00Z">Nov 8</time></div>
		<div class="post"><a class="headline" href="https://other.example/two">Second</a></div>
		<div class="post"><a class="headline" href="/news/one">Duplicate</a></div>
		<div class="post"><span>no link</span></div>`))
	}))
	defer server.Close()

	s := NewListingScanner(server.Client())
	records, err := s.Scan(context.Background(), scanner.Request{
		SiteName:   "lab",
		Categories: []scanner.Category{{Name: "blog", URL: server.URL + "/blog"}},
		Options:    map[string]string{OptItem: "div.post", OptLink: "a.headline", OptTitle: "a.headline"},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(records), records)
	}
	if records[0].URL != server.URL+"/news/one" || records[0].Published != "2025-11-08T10:00:00Z" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].URL != "https://other.example/two" || records[1].Published != "" {
		t.Fatalf("unexpected second record: %+v", records[1])
	}
	if records[0].Source != "lab/blog" {
		t.Fatalf("unexpected source: %s", records[0].Source)
	}
}

func TestStrategySourceSkipsFailingSites(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`<article><a href="/a">A</a></article>`))
	}))
	defer server.Close()

	reg := scanner.NewRegistry()
	reg.Register(NewListingScanner(server.Client()))

	src := NewStrategySource(reg, []config.SiteConfig{
		{Name: "ok", Scanner: "listing", Categories: []config.CategoryConfig{{URL: server.URL + "/ok"}}},
		{Name: "bad", Scanner: "listing", Categories: []config.CategoryConfig{{URL: server.URL + "/broken"}}},
		{Name: "unknown", Scanner: "ieee"},
	}, logging.Discard())

	records, err := src.FetchRecords(context.Background())
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if !strings.Contains(err.Error(), "bad") || !strings.Contains(err.Error(), "ieee") {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Source != "ok" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

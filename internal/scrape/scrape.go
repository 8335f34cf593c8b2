// Package scrape fetches a webpage and extracts its OpenGraph metadata.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/allenheltondev/bis-rss-feed/internal/domain"
)

const maxBodyBytes = 1 << 20

// Scraper fetches pages over HTTP and pulls out the og: meta tags the feed
// needs.
type Scraper struct {
	httpClient *http.Client
	userAgent  string
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithHTTPClient overrides the HTTP client used for fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scraper) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// New creates a Scraper with a 10s request timeout by default.
func New(opts ...Option) *Scraper {
	s := &Scraper{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  "bis-rss-feed/1.0",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape fetches url and returns its metadata. It fails when the page is
// unreachable or not parseable HTML; individual og: tags may be absent and
// come back as empty fields.
func (s *Scraper) Scrape(ctx context.Context, url string) (domain.Site, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Site{}, fmt.Errorf("scrape: create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html")

	res, err := s.httpClient.Do(req)
	if err != nil {
		return domain.Site{}, fmt.Errorf("scrape: fetch %s: %w", url, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return domain.Site{}, fmt.Errorf("scrape: unexpected status %d from %s", res.StatusCode, url)
	}

	doc, err := html.Parse(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return domain.Site{}, fmt.Errorf("scrape: parse %s: %w", url, err)
	}

	site := extract(doc)
	site.URL = url
	return site, nil
}

// extract walks the parsed document collecting og: meta properties, with the
// document title as a fallback for pages that carry no og:title.
func extract(doc *html.Node) domain.Site {
	var site domain.Site
	var title string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				prop, content := metaAttrs(n)
				switch prop {
				case "og:title":
					site.Title = content
				case "og:description":
					site.Description = content
				case "og:type":
					site.Type = content
				case "og:url":
					site.CanonicalURL = content
				case "og:site_name":
					site.SiteName = content
				}
			case "title":
				if n.FirstChild != nil && title == "" {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if site.Title == "" {
		site.Title = title
	}
	return site
}

func metaAttrs(n *html.Node) (property, content string) {
	for _, a := range n.Attr {
		switch a.Key {
		case "property", "name":
			if property == "" {
				property = a.Val
			}
		case "content":
			content = a.Val
		}
	}
	return property, content
}

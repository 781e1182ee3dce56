// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/research-assistant/internal/httputil"
)

// duckduckgoURL is the HTML search endpoint. Declared as a var so tests
// can substitute an httptest server.
var duckduckgoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the DuckDuckGo HTML results page.
type DuckDuckGo struct {
	Client    *http.Client
	UserAgent string
}

// Name returns the backend identifier.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search fetches the results page for query and parses up to max hits.
func (d *DuckDuckGo) Search(ctx context.Context, query string, max int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, duckduckgoURL+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, d.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("requesting results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing results page: %w", err)
	}

	var results []Result
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(results) >= max {
			return false
		}
		title := s.Find(".result__title")
		link := resultLink(title.Find("a").First().AttrOr("href", ""), s.Find(".result__url").Text())
		if link == "" {
			return true
		}
		results = append(results, Result{
			Title:   collapseSpace(title.Text()),
			Snippet: collapseSpace(s.Find(".result__snippet").Text()),
			Link:    link,
		})
		return true
	})
	return results, nil
}

// resultLink prefers the target hidden in a DuckDuckGo redirect href and
// falls back to the displayed URL with a scheme added.
func resultLink(href, display string) string {
	if href != "" {
		if u, err := url.Parse(href); err == nil {
			if target := u.Query().Get("uddg"); target != "" {
				return target
			}
			if u.Scheme == "http" || u.Scheme == "https" {
				return href
			}
		}
	}

	display = strings.TrimSpace(display)
	if display == "" {
		return ""
	}
	if !strings.HasPrefix(display, "http://") && !strings.HasPrefix(display, "https://") {
		display = "https://" + display
	}
	return display
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

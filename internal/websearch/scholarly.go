// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/pdiddy/research-assistant/internal/httputil"
)

// Endpoints are vars so tests can substitute an httptest server.
var (
	semanticAPIBase    = "https://api.semanticscholar.org/graph/v1/paper/search"
	openAlexSearchBase = "https://api.openalex.org/works"
)

const semanticFields = "title,abstract,authors,externalIds,year,url"

// SemanticScholar queries the Semantic Scholar paper search API. Hits link
// to the arXiv abstract page when one exists, otherwise to the paper page.
type SemanticScholar struct {
	Client    *http.Client
	UserAgent string
	APIKey    string
}

// Name returns the backend identifier.
func (s *SemanticScholar) Name() string { return "semantic_scholar" }

// Search returns up to max papers matching query.
func (s *SemanticScholar) Search(ctx context.Context, query string, max int) ([]Result, error) {
	q := strings.Join(strings.Fields(query), " ")
	if q == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}
	if max <= 0 {
		max = 10
	}

	params := url.Values{
		"query":  {q},
		"limit":  {fmt.Sprint(max)},
		"fields": {semanticFields},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	if s.APIKey != "" {
		req.Header.Set("x-api-key", s.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	results := make([]Result, 0, len(sr.Data))
	for _, p := range sr.Data {
		link := p.URL
		if p.ExternalIDs.ArXiv != "" {
			link = "https://arxiv.org/abs/" + p.ExternalIDs.ArXiv
		}
		if link == "" {
			continue
		}
		r := Result{
			Title:   collapseSpace(p.Title),
			Snippet: collapseSpace(p.Abstract),
			Link:    link,
			Year:    p.Year,
		}
		for _, a := range p.Authors {
			if a.Name != "" {
				r.Authors = append(r.Authors, a.Name)
			}
		}
		results = append(results, r)
	}
	return results, nil
}

type semanticResponse struct {
	Data []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID     string           `json:"paperId"`
	Title       string           `json:"title"`
	Abstract    string           `json:"abstract"`
	Year        int              `json:"year"`
	URL         string           `json:"url"`
	Authors     []semanticAuthor `json:"authors"`
	ExternalIDs struct {
		DOI   string `json:"DOI"`
		ArXiv string `json:"ArXiv"`
	} `json:"externalIds"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

// OpenAlex queries the OpenAlex works API. Hits link to the open access
// copy when there is one, otherwise to the DOI.
type OpenAlex struct {
	Client    *http.Client
	UserAgent string

	// Email is sent as the mailto parameter for polite pool access.
	Email string
}

// Name returns the backend identifier.
func (o *OpenAlex) Name() string { return "openalex" }

// Search returns up to max works matching query.
func (o *OpenAlex) Search(ctx context.Context, query string, max int) ([]Result, error) {
	q := strings.Join(strings.Fields(query), " ")
	if q == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}
	if max <= 0 {
		max = 10
	}
	if max > 200 {
		max = 200
	}

	params := url.Values{
		"search":   {q},
		"per_page": {fmt.Sprint(max)},
		"page":     {"1"},
	}
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if o.UserAgent != "" {
		req.Header.Set("User-Agent", o.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, o.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	results := make([]Result, 0, len(oar.Results))
	for _, w := range oar.Results {
		link := w.OpenAccess.OAURL
		if link == "" {
			link = w.DOI
		}
		if link == "" {
			continue
		}
		r := Result{
			Title:   collapseSpace(w.Title),
			Snippet: reconstructAbstract(w.AbstractInvertedIndex),
			Link:    link,
			Year:    w.PublicationYear,
		}
		for _, a := range w.Authorships {
			if a.Author.DisplayName != "" {
				r.Authors = append(r.Authors, a.Author.DisplayName)
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// reconstructAbstract rebuilds plain text from OpenAlex's
// abstract_inverted_index, which maps each word to its positions.
func reconstructAbstract(inverted map[string][]int) string {
	if len(inverted) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range inverted {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].pos < pairs[j].pos })

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	OpenAccess            struct {
		OAURL string `json:"oa_url"`
	} `json:"open_access"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package websearch finds pages on the public web and extracts their text.
package websearch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// Result is one search engine hit before extraction.
type Result struct {
	Title   string
	Snippet string
	Link    string
	Authors []string
	Year    int
}

// Searcher queries a web search engine.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, max int) ([]Result, error)
}

// ExtractionError reports a page whose text could not be obtained.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Client combines a Searcher with an Extractor.
type Client struct {
	Searcher  Searcher
	Extractor *Extractor
	Logger    *zap.Logger
}

// NewClient builds the searcher selected by cfg and a paced extractor.
func NewClient(cfg types.WebSearchConfig, logger *zap.Logger) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	var s Searcher
	switch cfg.Backend {
	case types.WebDuckDuckGo, "":
		s = &DuckDuckGo{Client: httpClient, UserAgent: cfg.UserAgent}
	case types.WebArxiv:
		s = &Arxiv{Client: httpClient, UserAgent: cfg.UserAgent}
	case types.WebSemanticScholar:
		s = &SemanticScholar{Client: httpClient, UserAgent: cfg.UserAgent, APIKey: cfg.APIKey}
	case types.WebOpenAlex:
		s = &OpenAlex{Client: httpClient, UserAgent: cfg.UserAgent, Email: cfg.Email}
	default:
		return nil, fmt.Errorf("unknown web search backend %q", cfg.Backend)
	}

	return &Client{
		Searcher: s,
		Extractor: &Extractor{
			Client:          httpClient,
			UserAgent:       cfg.UserAgent,
			Format:          cfg.Format,
			MaxContentBytes: cfg.MaxContentBytes,
			Pacer:           httputil.NewPacer(cfg.FetchDelay),
		},
		Logger: logging.OrNop(logger),
	}, nil
}

// SearchAndExtract runs the search and extracts every hit. A search failure
// is returned as an error; a failed page only drops that page and is
// reported in the returned slice of *ExtractionError.
func (c *Client) SearchAndExtract(ctx context.Context, query string, max int) ([]types.Document, []error, error) {
	logger := logging.OrNop(c.Logger)

	results, err := c.Searcher.Search(ctx, query, max)
	if err != nil {
		return nil, nil, fmt.Errorf("%s search: %w", c.Searcher.Name(), err)
	}
	if len(results) > max {
		results = results[:max]
	}

	docs := make([]types.Document, 0, len(results))
	var failures []error
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return docs, failures, err
		}

		text, err := c.Extractor.Extract(ctx, r.Link)
		if err != nil {
			logger.Debug("dropping web result", zap.String("url", r.Link), zap.Error(err))
			failures = append(failures, err)
			continue
		}

		docs = append(docs, types.Document{
			Content: text,
			Metadata: types.Metadata{
				Title:   r.Title,
				Authors: r.Authors,
				Year:    r.Year,
				Source:  types.SourceWeb,
				URL:     r.Link,
				Snippet: r.Snippet,
			},
		})
	}
	return docs, failures, nil
}

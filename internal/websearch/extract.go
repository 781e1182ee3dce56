// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// boilerplate lists elements removed before text extraction.
const boilerplate = "script, style, noscript, nav, footer, header"

const maxPageBytes = 5 << 20

// Extractor fetches pages and returns their main text.
type Extractor struct {
	Client          *http.Client
	UserAgent       string
	Format          types.ExtractFormat
	MaxContentBytes int
	Pacer           *httputil.Pacer
}

// Extract fetches pageURL and returns its text with boilerplate removed.
// Every failure is an *ExtractionError.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	text, err := e.extract(ctx, pageURL)
	if err != nil {
		return "", &ExtractionError{URL: pageURL, Err: err}
	}
	return text, nil
}

func (e *Extractor) extract(ctx context.Context, pageURL string) (string, error) {
	if e.Pacer != nil {
		if err := e.Pacer.Wait(ctx); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if e.UserAgent != "" {
		req.Header.Set("User-Agent", e.UserAgent)
	}

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}
	doc.Find(boilerplate).Remove()

	var text string
	if e.Format != types.ExtractText {
		text = toMarkdown(doc, pageURL)
	}
	if text == "" {
		text = normalizeText(doc.Find("body").Text())
	}
	if text == "" {
		return "", fmt.Errorf("no text content")
	}

	if e.MaxContentBytes > 0 && len(text) > e.MaxContentBytes {
		text = truncateUTF8(text, e.MaxContentBytes)
	}
	return text, nil
}

// toMarkdown converts the cleaned body to Markdown, returning "" on failure.
func toMarkdown(doc *goquery.Document, pageURL string) string {
	body, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(body) == "" {
		return ""
	}
	out, err := md.NewConverter(pageURL, true, nil).ConvertString(body)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// normalizeText trims every line, drops blank lines and collapses runs of
// spaces within a line.
func normalizeText(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = collapseSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func truncateUTF8(s string, n int) string {
	for n > 0 && n < len(s) && (s[n]&0xC0) == 0x80 {
		n--
	}
	return s[:n]
}

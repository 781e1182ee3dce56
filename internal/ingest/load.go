// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest loads seed documents from disk and writes them to the
// vector index.
package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// headerLines is how many leading lines of a .txt file may carry
// "Key: value" metadata.
const headerLines = 5

// Supported reports whether path has an extension LoadFile understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown", ".pdf":
		return true
	}
	return false
}

// LoadFile reads one seed document. Untitled documents are named after
// their file.
func LoadFile(path string) (types.Document, error) {
	var (
		doc types.Document
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		doc, err = loadText(path)
	case ".md", ".markdown":
		doc, err = loadMarkdown(path)
	case ".pdf":
		doc, err = loadPDF(path)
	default:
		return types.Document{}, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return types.Document{}, fmt.Errorf("loading %s: %w", path, err)
	}
	if strings.TrimSpace(doc.Content) == "" {
		return types.Document{}, fmt.Errorf("loading %s: no text content", path)
	}

	base := filepath.Base(path)
	if doc.Metadata.Title == "" {
		doc.Metadata.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	doc.Metadata.Source = types.SourceDatabase
	doc.Metadata, _ = doc.Metadata.Annotate("file", base)
	return doc, nil
}

// LoadDir loads every supported file under dir in lexical path order.
// Files that fail to load are reported in the second return value and
// skipped; the error return is for a directory that cannot be walked.
func LoadDir(dir string) ([]types.Document, []error, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && Supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("reading document directory %s: %w", dir, err)
	}
	sort.Strings(paths)

	docs := make([]types.Document, 0, len(paths))
	var failures []error
	for _, p := range paths {
		doc, err := LoadFile(p)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, failures, nil
}

// loadText reads a plain text file whose first lines may hold
// "Title:", "Authors:" (comma separated) and "Year:" headers. The full
// text, headers included, is the document content.
func loadText(path string) (types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Document{}, err
	}

	doc := types.Document{Content: string(data)}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for i := 0; i < headerLines && sc.Scan(); i++ {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		applyField(&doc.Metadata, strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value))
	}
	return doc, nil
}

// loadMarkdown reads a Markdown file with optional YAML front matter
// delimited by "---" lines. The front matter is removed from the content.
func loadMarkdown(path string) (types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Document{}, err
	}

	front, body, ok := splitFrontMatter(string(data))
	doc := types.Document{Content: body}
	if !ok {
		return doc, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal([]byte(front), &fields); err != nil {
		return types.Document{}, fmt.Errorf("parsing front matter: %w", err)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		applyValue(&doc.Metadata, strings.ToLower(k), fields[k])
	}
	return doc, nil
}

func splitFrontMatter(s string) (front, body string, ok bool) {
	s = strings.TrimPrefix(s, "\ufeff")
	if !strings.HasPrefix(s, "---\n") && !strings.HasPrefix(s, "---\r\n") {
		return "", s, false
	}
	rest := s[strings.IndexByte(s, '\n')+1:]
	for offset := 0; offset < len(rest); {
		end := strings.IndexByte(rest[offset:], '\n')
		line := rest[offset:]
		if end >= 0 {
			line = rest[offset : offset+end]
		}
		if strings.TrimRight(line, "\r") == "---" {
			bodyStart := len(rest)
			if end >= 0 {
				bodyStart = offset + end + 1
			}
			return rest[:offset], strings.TrimLeft(rest[bodyStart:], "\r\n"), true
		}
		if end < 0 {
			break
		}
		offset += end + 1
	}
	return "", s, false
}

// loadPDF extracts the plain text of every page.
func loadPDF(path string) (types.Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return types.Document{}, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	text, err := r.GetPlainText()
	if err != nil {
		return types.Document{}, fmt.Errorf("extracting PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return types.Document{}, fmt.Errorf("reading PDF text: %w", err)
	}

	doc := types.Document{Content: buf.String()}
	info := r.Trailer().Key("Info")
	doc.Metadata.Title = strings.TrimSpace(info.Key("Title").Text())
	if author := strings.TrimSpace(info.Key("Author").Text()); author != "" {
		doc.Metadata.Authors = splitAuthors(author)
	}
	return doc, nil
}

// applyField sets a metadata field from a header line.
func applyField(m *types.Metadata, key, value string) {
	switch key {
	case "title":
		m.Title = value
	case "authors", "author":
		m.Authors = splitAuthors(value)
	case "year":
		if y, err := strconv.Atoi(value); err == nil {
			m.Year = y
		}
	case "url":
		m.URL = value
	default:
		if key != "" {
			*m, _ = m.Annotate(key, value)
		}
	}
}

// applyValue sets a metadata field from a decoded front matter value.
func applyValue(m *types.Metadata, key string, value any) {
	switch v := value.(type) {
	case string:
		applyField(m, key, v)
	case int:
		if key == "year" {
			m.Year = v
			return
		}
		*m, _ = m.Annotate(key, v)
	case []any:
		if key == "authors" || key == "author" {
			for _, a := range v {
				if s := strings.TrimSpace(fmt.Sprint(a)); s != "" {
					m.Authors = append(m.Authors, s)
				}
			}
			return
		}
		*m, _ = m.Annotate(key, v)
	default:
		if v != nil {
			*m, _ = m.Annotate(key, v)
		}
	}
}

func splitAuthors(s string) []string {
	sep := ","
	if strings.Contains(s, ";") {
		sep = ";"
	}
	var out []string
	for _, a := range strings.Split(s, sep) {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

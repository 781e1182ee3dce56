// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data model for the research assistant:
// documents, pipeline state, and configuration.
package types

import (
	"maps"
	"slices"
)

// Source identifies where a document was discovered.
type Source string

const (
	SourceDatabase Source = "database"
	SourceWeb      Source = "web"
)

// Metadata describes a document. The typed fields are the recognized keys;
// Extra carries fields attached by pipeline stages.
type Metadata struct {
	Title          string         `json:"title" yaml:"title"`
	Authors        []string       `json:"authors,omitempty" yaml:"authors,omitempty"`
	Year           int            `json:"year,omitempty" yaml:"year,omitempty"`
	Source         Source         `json:"source,omitempty" yaml:"source,omitempty"`
	URL            string         `json:"url,omitempty" yaml:"url,omitempty"`
	Snippet        string         `json:"snippet,omitempty" yaml:"snippet,omitempty"`
	RelevanceScore float64        `json:"relevance_score" yaml:"relevance_score"`
	Extra          map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Clone returns a deep copy of m.
func (m Metadata) Clone() Metadata {
	m.Authors = slices.Clone(m.Authors)
	if m.Extra != nil {
		m.Extra = maps.Clone(m.Extra)
	}
	return m
}

// Annotate returns a copy of m with key set in Extra. Existing keys are
// never replaced: when key is already present the copy is unchanged and
// ok is false.
func (m Metadata) Annotate(key string, value any) (out Metadata, ok bool) {
	out = m.Clone()
	if _, exists := out.Extra[key]; exists {
		return out, false
	}
	if out.Extra == nil {
		out.Extra = make(map[string]any)
	}
	out.Extra[key] = value
	return out, true
}

// Derive returns a copy of m with key set in Extra, replacing any previous
// value. Only the stage that computes a field should derive it.
func (m Metadata) Derive(key string, value any) Metadata {
	out := m.Clone()
	if out.Extra == nil {
		out.Extra = make(map[string]any)
	}
	out.Extra[key] = value
	return out
}

// Document is a unit of retrieved text plus its metadata. Documents are
// treated as immutable once produced; the With* helpers return copies.
type Document struct {
	Content  string   `json:"content" yaml:"content"`
	Metadata Metadata `json:"metadata" yaml:"metadata"`
}

// Title returns the document title.
func (d Document) Title() string { return d.Metadata.Title }

// Score returns the relevance score. Unscored documents report 0.
func (d Document) Score() float64 { return d.Metadata.RelevanceScore }

// WithScore returns a copy of d carrying score.
func (d Document) WithScore(score float64) Document {
	d.Metadata = d.Metadata.Clone()
	d.Metadata.RelevanceScore = score
	return d
}

// WithMetadata returns a copy of d with m as its metadata.
func (d Document) WithMetadata(m Metadata) Document {
	d.Metadata = m
	return d
}

// CloneDocuments deep-copies a document slice. A nil input yields an empty
// non-nil slice.
func CloneDocuments(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = Document{Content: d.Content, Metadata: d.Metadata.Clone()}
	}
	return out
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by collaborators that make
// network requests.
type HTTPConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-assistant/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RetrievalConfig controls the research stage.
type RetrievalConfig struct {
	// Limit is the maximum number of documents returned (default 10).
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`

	// IncludeWeb enables web search alongside the vector index.
	IncludeWeb bool `json:"include_web" yaml:"include_web" mapstructure:"include_web"`

	// MinRelevanceScore is the exclusive lower bound for kept documents (default 0.5).
	MinRelevanceScore float64 `json:"min_relevance_score" yaml:"min_relevance_score" mapstructure:"min_relevance_score"`

	// NeutralScore is assigned to web documents that could not be scored.
	NeutralScore float64 `json:"neutral_score" yaml:"neutral_score" mapstructure:"neutral_score"`
}

// IndexBackend selects the vector index implementation.
type IndexBackend string

const (
	IndexLocal    IndexBackend = "local"
	IndexPGVector IndexBackend = "pgvector"
)

// VectorIndexConfig holds settings for the vector index.
type VectorIndexConfig struct {
	Backend    IndexBackend `json:"backend" yaml:"backend" mapstructure:"backend"`
	Collection string       `json:"collection" yaml:"collection" mapstructure:"collection"`

	// LocalPath is the sqlite file backing the local index.
	LocalPath string `json:"local_path" yaml:"local_path" mapstructure:"local_path"`

	// DSN is the PostgreSQL connection string for the pgvector backend.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty" mapstructure:"dsn"`

	// MaxConns caps the pgx pool size.
	MaxConns int32 `json:"max_conns" yaml:"max_conns" mapstructure:"max_conns"`

	QueryTimeout time.Duration `json:"query_timeout" yaml:"query_timeout" mapstructure:"query_timeout"`
}

// EmbeddingConfig holds settings for the embedding service.
type EmbeddingConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	BaseURL   string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	Model     string `json:"model" yaml:"model" mapstructure:"model"`
	Dimension int    `json:"dimension" yaml:"dimension" mapstructure:"dimension"`

	// CacheSize is the number of embeddings kept in memory; 0 disables caching.
	CacheSize int `json:"cache_size" yaml:"cache_size" mapstructure:"cache_size"`
}

// WebBackend selects the web search engine.
type WebBackend string

const (
	WebDuckDuckGo      WebBackend = "duckduckgo"
	WebArxiv           WebBackend = "arxiv"
	WebSemanticScholar WebBackend = "semantic_scholar"
	WebOpenAlex        WebBackend = "openalex"
)

// ExtractFormat selects how fetched pages are turned into text.
type ExtractFormat string

const (
	ExtractMarkdown ExtractFormat = "markdown"
	ExtractText     ExtractFormat = "text"
)

// WebSearchConfig holds settings for web search and page extraction.
type WebSearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	Backend WebBackend    `json:"backend" yaml:"backend" mapstructure:"backend"`
	Format  ExtractFormat `json:"format" yaml:"format" mapstructure:"format"`

	// FetchDelay is the minimum spacing between page fetches (default 1s).
	FetchDelay time.Duration `json:"fetch_delay" yaml:"fetch_delay" mapstructure:"fetch_delay"`

	// MaxContentBytes truncates extracted text; 0 means unlimited.
	MaxContentBytes int `json:"max_content_bytes" yaml:"max_content_bytes" mapstructure:"max_content_bytes"`

	// APIKey is the Semantic Scholar API key (optional).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Email is sent to OpenAlex for polite pool access (optional).
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`
}

// LLMProvider selects the completion backend.
type LLMProvider string

const (
	ProviderAnthropic LLMProvider = "anthropic"
	ProviderChat      LLMProvider = "chat"
)

// AIConfig holds settings for calls to a generative AI API.
type AIConfig struct {
	Provider LLMProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the endpoint of the chat provider.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	Temperature float64       `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// SummarizeConfig controls chunking and parallelism for per-document stages.
type SummarizeConfig struct {
	ChunkSize    int `json:"chunk_size" yaml:"chunk_size" mapstructure:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap" mapstructure:"chunk_overlap"`

	// Workers bounds concurrent per-document work in summarize and evaluate.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// ReportConfig holds settings for report persistence.
type ReportConfig struct {
	OutputDir      string        `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
	PersistTimeout time.Duration `json:"persist_timeout" yaml:"persist_timeout" mapstructure:"persist_timeout"`
}

// StoreConfig holds settings for the run store.
type StoreConfig struct {
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// ServerConfig holds settings for the HTTP service.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// MaxConcurrentRuns bounds background runs started through the API.
	MaxConcurrentRuns int `json:"max_concurrent_runs" yaml:"max_concurrent_runs" mapstructure:"max_concurrent_runs"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `json:"level" yaml:"level" mapstructure:"level"`
	Development bool   `json:"development" yaml:"development" mapstructure:"development"`
}

// PipelineConfig groups all configuration for the research assistant.
type PipelineConfig struct {
	Retrieval   RetrievalConfig   `json:"retrieval" yaml:"retrieval" mapstructure:"retrieval"`
	VectorIndex VectorIndexConfig `json:"vector_index" yaml:"vector_index" mapstructure:"vector_index"`
	Embedding   EmbeddingConfig   `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	WebSearch   WebSearchConfig   `json:"web_search" yaml:"web_search" mapstructure:"web_search"`
	AI          AIConfig          `json:"ai" yaml:"ai" mapstructure:"ai"`
	Summarize   SummarizeConfig   `json:"summarize" yaml:"summarize" mapstructure:"summarize"`
	Report      ReportConfig      `json:"report" yaml:"report" mapstructure:"report"`
	Store       StoreConfig       `json:"store" yaml:"store" mapstructure:"store"`
	Server      ServerConfig      `json:"server" yaml:"server" mapstructure:"server"`
	Log         LogConfig         `json:"log" yaml:"log" mapstructure:"log"`
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/logging"
	"github.com/pdiddy/research-assistant/internal/secrets"
	"github.com/pdiddy/research-assistant/internal/vectorindex"
	"github.com/pdiddy/research-assistant/pkg/types"
)

const userAgent = "research-assistant/0.1"

// setDefaults registers every configuration key with its default so that
// environment variables can override keys absent from the config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("retrieval.limit", 10)
	v.SetDefault("retrieval.include_web", true)
	v.SetDefault("retrieval.min_relevance_score", 0.5)
	v.SetDefault("retrieval.neutral_score", 0.5)

	v.SetDefault("vector_index.backend", string(types.IndexLocal))
	v.SetDefault("vector_index.collection", vectorindex.DefaultCollection)
	v.SetDefault("vector_index.local_path", "data/index.db")
	v.SetDefault("vector_index.dsn", "")
	v.SetDefault("vector_index.max_conns", 4)
	v.SetDefault("vector_index.query_timeout", 10*time.Second)

	v.SetDefault("embedding.base_url", "http://localhost:11434")
	v.SetDefault("embedding.model", "nomic-embed-text")
	v.SetDefault("embedding.dimension", 768)
	v.SetDefault("embedding.cache_size", 1024)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("embedding.user_agent", userAgent)

	v.SetDefault("web_search.backend", string(types.WebDuckDuckGo))
	v.SetDefault("web_search.format", string(types.ExtractMarkdown))
	v.SetDefault("web_search.fetch_delay", time.Second)
	v.SetDefault("web_search.max_content_bytes", 50000)
	v.SetDefault("web_search.timeout", 20*time.Second)
	v.SetDefault("web_search.user_agent", userAgent)
	v.SetDefault("web_search.api_key", "")
	v.SetDefault("web_search.email", "")

	v.SetDefault("ai.provider", string(types.ProviderAnthropic))
	v.SetDefault("ai.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.max_tokens", 1000)
	v.SetDefault("ai.timeout", 2*time.Minute)

	v.SetDefault("summarize.chunk_size", 1000)
	v.SetDefault("summarize.chunk_overlap", 200)
	v.SetDefault("summarize.workers", 4)

	v.SetDefault("report.output_dir", "outputs/reports")
	v.SetDefault("report.persist_timeout", 10*time.Second)

	v.SetDefault("store.path", "data/runs.db")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.max_concurrent_runs", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// loadConfig decodes the merged configuration and fills credentials from
// secrets when the config leaves them empty.
func loadConfig(v *viper.Viper, s map[string]string) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	key := secrets.AnthropicAPIKey
	if cfg.AI.Provider == types.ProviderChat {
		key = secrets.LLMAPIKey
	}
	cfg.AI.APIKey = secrets.Lookup(s, key, cfg.AI.APIKey)
	cfg.VectorIndex.DSN = secrets.Lookup(s, secrets.DatabaseURL, cfg.VectorIndex.DSN)
	cfg.WebSearch.APIKey = secrets.Lookup(s, secrets.SemanticScholarAPIKey, cfg.WebSearch.APIKey)
	return cfg, nil
}

// setup loads the configuration and builds the logger.
func setup() (types.PipelineConfig, *zap.Logger, error) {
	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

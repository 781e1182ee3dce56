// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps text-completion backends and turns their free-form
// output into typed values without ever executing it.
package llm

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Options tunes one completion call.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Completer produces text for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string, opts Options) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

// New builds the completer selected by cfg, wrapped with retries.
func New(cfg types.AIConfig, logger *zap.Logger) (Completer, error) {
	var base Completer
	switch cfg.Provider {
	case types.ProviderAnthropic, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		base = NewAnthropicCompleter(cfg)
	case types.ProviderChat:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("chat provider requires a base URL")
		}
		base = &ChatCompleter{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Client:  &http.Client{},
		}
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
	return WithRetry(base, cfg.MaxRetries, cfg.Timeout, logger), nil
}

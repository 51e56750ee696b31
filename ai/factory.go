package ai

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/ledgewood/folio/ai/anthropic"
	"github.com/ledgewood/folio/ai/local"
	"github.com/ledgewood/folio/ai/openrouter"
	"github.com/ledgewood/folio/config"
	"github.com/ledgewood/folio/errors"
)

// Provider names a text-generation backend.
type Provider string

const (
	// ProviderLocal uses a local OpenAI-compatible server (Ollama, LocalAI).
	ProviderLocal Provider = "local"
	// ProviderOpenRouter uses the OpenRouter.ai gateway.
	ProviderOpenRouter Provider = "openrouter"
	// ProviderAnthropic uses the Anthropic Messages API directly.
	ProviderAnthropic Provider = "anthropic"
	// ProviderAuto selects a provider from configuration: a reachable local
	// server first, then Anthropic, then OpenRouter.
	ProviderAuto Provider = "auto"
)

// ParseProvider converts a user-supplied string to a Provider.
func ParseProvider(s string) (Provider, error) {
	switch s {
	case "local", "ollama", "localai":
		return ProviderLocal, nil
	case "openrouter", "or":
		return ProviderOpenRouter, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "auto", "":
		return ProviderAuto, nil
	default:
		return "", errors.Newf("unknown provider: %s (valid: local, openrouter, anthropic, auto)", s)
	}
}

// ClientOptions carries per-invocation context for client construction:
// usage-tracking identity and the scoped logger.
type ClientOptions struct {
	Model         string // override the configured default model
	DB            *sql.DB
	Verbosity     int
	OperationType string // e.g. "report-generation"
	EntityType    string // e.g. "specification"
	EntityID      string // e.g. "folio-gitrepo/activity"
	Logger        *zap.SugaredLogger
}

// NewClient builds a generation client for the given provider. ProviderAuto
// applies the selection priority documented on the constant. Returns
// ErrServiceUnavailable when no provider is configured.
func NewClient(cfg *config.Config, provider Provider, opts ClientOptions) (Client, error) {
	if provider == ProviderAuto {
		provider = selectProvider(cfg)
	}

	switch provider {
	case ProviderLocal:
		if !cfg.LocalInference.Enabled {
			return nil, errors.Wrap(errors.ErrServiceUnavailable, "local inference is not enabled")
		}
		c := newLocalClient(cfg, opts)
		return &textClient{chat: c, provider: ProviderLocal, model: c.Model()}, nil

	case ProviderAnthropic:
		if cfg.Anthropic.APIKey == "" {
			return nil, errors.Wrap(errors.ErrServiceUnavailable, "Anthropic API key is not configured")
		}
		c := newAnthropicClient(cfg, opts)
		return &textClient{chat: c, provider: ProviderAnthropic, model: modelOrDefault(opts.Model, cfg.Anthropic.Model, anthropic.DefaultModel)}, nil

	case ProviderOpenRouter:
		if cfg.OpenRouter.APIKey == "" {
			return nil, errors.Wrap(errors.ErrServiceUnavailable, "OpenRouter API key is not configured")
		}
		c := newOpenRouterClient(cfg, opts)
		return &textClient{chat: c, provider: ProviderOpenRouter, model: modelOrDefault(opts.Model, cfg.OpenRouter.Model, openrouter.DefaultModel)}, nil

	default:
		return nil, errors.Newf("unknown provider %q", provider)
	}
}

// selectProvider picks the backend for ProviderAuto. A local server must be
// both enabled and answering its health probe to win; a stale local config
// should not black-hole every generation request.
func selectProvider(cfg *config.Config) Provider {
	if cfg.LocalInference.Enabled {
		probe := local.NewClient(local.Config{
			BaseURL:        cfg.LocalInference.BaseURL,
			Model:          cfg.LocalInference.Model,
			TimeoutSeconds: cfg.LocalInference.TimeoutSeconds,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if probe.IsAvailable(ctx) {
			return ProviderLocal
		}
	}

	if cfg.Anthropic.APIKey != "" {
		return ProviderAnthropic
	}
	return ProviderOpenRouter
}

// AvailableProviders lists the providers the configuration can serve,
// without probing network reachability.
func AvailableProviders(cfg *config.Config) []Provider {
	var providers []Provider
	if cfg.LocalInference.Enabled {
		providers = append(providers, ProviderLocal)
	}
	if cfg.Anthropic.APIKey != "" {
		providers = append(providers, ProviderAnthropic)
	}
	if cfg.OpenRouter.APIKey != "" {
		providers = append(providers, ProviderOpenRouter)
	}
	return providers
}

func newLocalClient(cfg *config.Config, opts ClientOptions) *local.Client {
	return local.NewClient(local.Config{
		BaseURL:        cfg.LocalInference.BaseURL,
		Model:          modelOrDefault(opts.Model, cfg.LocalInference.Model, ""),
		TimeoutSeconds: cfg.LocalInference.TimeoutSeconds,
		ContextSize:    cfg.LocalInference.ContextSize,
		Logger:         opts.Logger,
	})
}

func newAnthropicClient(cfg *config.Config, opts ClientOptions) *anthropic.Client {
	return anthropic.NewClient(anthropic.Config{
		APIKey:        cfg.Anthropic.APIKey,
		Model:         modelOrDefault(opts.Model, cfg.Anthropic.Model, ""),
		BaseURL:       cfg.Anthropic.BaseURL,
		MaxTokens:     cfg.Anthropic.MaxTokens,
		Logger:        opts.Logger,
		DB:            opts.DB,
		Verbosity:     opts.Verbosity,
		OperationType: opts.OperationType,
		EntityType:    opts.EntityType,
		EntityID:      opts.EntityID,
	})
}

func newOpenRouterClient(cfg *config.Config, opts ClientOptions) *openrouter.Client {
	return openrouter.NewClient(openrouter.Config{
		APIKey:        cfg.OpenRouter.APIKey,
		Model:         modelOrDefault(opts.Model, cfg.OpenRouter.Model, ""),
		BaseURL:       cfg.OpenRouter.BaseURL,
		Temperature:   cfg.OpenRouter.Temperature,
		MaxTokens:     cfg.OpenRouter.MaxTokens,
		Logger:        opts.Logger,
		DB:            opts.DB,
		Verbosity:     opts.Verbosity,
		OperationType: opts.OperationType,
		EntityType:    opts.EntityType,
		EntityID:      opts.EntityID,
	})
}

func modelOrDefault(override, configured, fallback string) string {
	if override != "" {
		return override
	}
	if configured != "" {
		return configured
	}
	return fallback
}

// Compile-time contract checks for every provider package.
var (
	_ ChatClient = (*openrouter.Client)(nil)
	_ ChatClient = (*anthropic.Client)(nil)
	_ ChatClient = (*local.Client)(nil)
)

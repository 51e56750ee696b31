package config

import "github.com/ledgewood/folio/errors"

var validProviders = map[string]bool{
	"":           true, // empty = auto
	"auto":       true,
	"local":      true,
	"openrouter": true,
	"anthropic":  true,
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Database path is optional - empty defaults to "folio.db"

	if !validProviders[c.AI.Provider] {
		return errors.Newf("ai.provider must be one of auto, local, openrouter, anthropic; got %q", c.AI.Provider)
	}

	// Validate local inference configuration only when enabled
	if c.LocalInference.Enabled {
		if c.LocalInference.BaseURL == "" {
			return errors.New("local_inference.base_url cannot be empty when enabled")
		}
		if c.LocalInference.Model == "" {
			return errors.New("local_inference.model cannot be empty when enabled")
		}
		if c.LocalInference.TimeoutSeconds < 0 {
			return errors.Newf("local_inference.timeout_seconds must be >= 0, got %d", c.LocalInference.TimeoutSeconds)
		}
	}

	if c.OpenRouter.Temperature != nil && (*c.OpenRouter.Temperature < 0 || *c.OpenRouter.Temperature > 2) {
		return errors.Newf("openrouter.temperature must be between 0 and 2, got %f", *c.OpenRouter.Temperature)
	}
	if c.OpenRouter.MaxTokens != nil && *c.OpenRouter.MaxTokens <= 0 {
		return errors.Newf("openrouter.max_tokens must be > 0, got %d (omit for default)", *c.OpenRouter.MaxTokens)
	}
	if c.Anthropic.MaxTokens != nil && *c.Anthropic.MaxTokens <= 0 {
		return errors.Newf("anthropic.max_tokens must be > 0, got %d (omit for default)", *c.Anthropic.MaxTokens)
	}

	// Budget values: 0 = no budget, negative = invalid
	if c.Usage.DailyBudgetUSD < 0 {
		return errors.Newf("usage.daily_budget_usd must be >= 0, got %f", c.Usage.DailyBudgetUSD)
	}
	if c.Usage.WeeklyBudgetUSD < 0 {
		return errors.Newf("usage.weekly_budget_usd must be >= 0, got %f", c.Usage.WeeklyBudgetUSD)
	}
	if c.Usage.MonthlyBudgetUSD < 0 {
		return errors.Newf("usage.monthly_budget_usd must be >= 0, got %f", c.Usage.MonthlyBudgetUSD)
	}

	// Plugin HTTP limits: 0 = unlimited / default, negative = invalid
	if c.Plugins.HTTPTimeoutSeconds < 0 {
		return errors.Newf("plugins.http_timeout_seconds must be >= 0, got %d", c.Plugins.HTTPTimeoutSeconds)
	}
	if c.Plugins.MaxRequestsPerMinute < 0 {
		return errors.Newf("plugins.max_requests_per_minute must be >= 0, got %d", c.Plugins.MaxRequestsPerMinute)
	}
	if c.Plugins.DelayBetweenRequests < 0 {
		return errors.Newf("plugins.delay_between_requests_ms must be >= 0, got %d", c.Plugins.DelayBetweenRequests)
	}

	return nil
}

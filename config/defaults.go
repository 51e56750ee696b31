package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "folio.db")

	// Provider selection: auto picks local when reachable, then cloud
	v.SetDefault("ai.provider", "auto")

	// OpenRouter defaults
	v.SetDefault("openrouter.model", "openai/gpt-4o-mini") // Cost-effective default
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.temperature", 0.2) // Deterministic
	v.SetDefault("openrouter.max_tokens", 1000) // Token limit

	// Anthropic defaults
	v.SetDefault("anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("anthropic.base_url", "https://api.anthropic.com")
	v.SetDefault("anthropic.max_tokens", 4096)

	// Local inference (Ollama) defaults
	v.SetDefault("local_inference.enabled", true)
	v.SetDefault("local_inference.base_url", "http://localhost:11434")
	v.SetDefault("local_inference.model", "llama3.2:3b")
	v.SetDefault("local_inference.context_size", 16384)
	v.SetDefault("local_inference.timeout_seconds", 3600)

	// Usage tracking defaults
	v.SetDefault("usage.enabled", true)
	v.SetDefault("usage.daily_budget_usd", 3.0)    // Default $3/day limit
	v.SetDefault("usage.weekly_budget_usd", 7.0)   // Default $7/week limit
	v.SetDefault("usage.monthly_budget_usd", 15.0) // Default $15/month limit

	// Plugin defaults
	v.SetDefault("plugins.enabled", []string{})
	v.SetDefault("plugins.http_timeout_seconds", 30)
	v.SetDefault("plugins.max_requests_per_minute", 10)     // Polite default for external APIs
	v.SetDefault("plugins.delay_between_requests_ms", 2000) // 2 second polite delay

	// Generation defaults
	v.SetDefault("generation.output_dir", "reports")
	v.SetDefault("generation.save_prompts", false)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	// API keys
	v.BindEnv("openrouter.api_key", "FOLIO_OPENROUTER_API_KEY")
	v.BindEnv("anthropic.api_key", "FOLIO_ANTHROPIC_API_KEY")

	// Database path
	v.BindEnv("database.path", "FOLIO_DATABASE_PATH")

	// Local inference configuration
	v.BindEnv("local_inference.enabled", "FOLIO_LOCAL_INFERENCE_ENABLED")
	v.BindEnv("local_inference.base_url", "FOLIO_LOCAL_INFERENCE_BASE_URL")
	v.BindEnv("local_inference.model", "FOLIO_LOCAL_INFERENCE_MODEL")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "folio.db" // Fallback default
	}
	return c.Database.Path
}

// GetOutputDir returns the report output directory
func (c *Config) GetOutputDir() string {
	if c.Generation.OutputDir == "" {
		return "reports"
	}
	return c.Generation.OutputDir
}

// PluginEnabled reports whether a plugin ID passes the enabled whitelist.
// An empty whitelist enables every registered plugin.
func (c *Config) PluginEnabled(id string) bool {
	if len(c.Plugins.Enabled) == 0 {
		return true
	}
	for _, enabled := range c.Plugins.Enabled {
		if enabled == id {
			return true
		}
	}
	return false
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Provider: %s, OutputDir: %s}",
		c.Database.Path, c.AI.Provider, c.Generation.OutputDir)
}

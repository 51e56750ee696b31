// Package config loads and manages folio configuration from TOML files
// and environment variables, with precedence: defaults < system < user <
// project < environment.
package config

// Config represents the core folio configuration
type Config struct {
	Database       DatabaseConfig       `mapstructure:"database"`
	AI             AIConfig             `mapstructure:"ai"`
	OpenRouter     OpenRouterConfig     `mapstructure:"openrouter"`
	Anthropic      AnthropicConfig      `mapstructure:"anthropic"`
	LocalInference LocalInferenceConfig `mapstructure:"local_inference"`
	Usage          UsageConfig          `mapstructure:"usage"`
	Plugins        PluginsConfig        `mapstructure:"plugins"`
	Generation     GenerationConfig     `mapstructure:"generation"`
}

// DatabaseConfig configures the SQLite database used for usage records
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AIConfig selects the text-generation provider
type AIConfig struct {
	Provider string `mapstructure:"provider"` // auto, local, openrouter, anthropic
}

// OpenRouterConfig configures OpenRouter.ai API access
type OpenRouterConfig struct {
	APIKey      string   `mapstructure:"api_key"`     // OpenRouter API key
	Model       string   `mapstructure:"model"`       // Default model (e.g., "openai/gpt-4o-mini")
	BaseURL     string   `mapstructure:"base_url"`    // API endpoint (default: https://openrouter.ai/api/v1)
	Temperature *float64 `mapstructure:"temperature"` // Sampling temperature (nil = default 0.2)
	MaxTokens   *int     `mapstructure:"max_tokens"`  // Maximum tokens per request (nil = default 1000)
}

// AnthropicConfig configures direct Anthropic API access
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`    // Anthropic API key
	Model     string `mapstructure:"model"`      // Default model
	BaseURL   string `mapstructure:"base_url"`   // API endpoint (default: https://api.anthropic.com)
	MaxTokens *int   `mapstructure:"max_tokens"` // Maximum tokens per request (nil = default 4096)
}

// LocalInferenceConfig configures local model inference (Ollama, LocalAI, etc.)
type LocalInferenceConfig struct {
	Enabled        bool   `mapstructure:"enabled"`         // Enable local inference instead of cloud APIs
	BaseURL        string `mapstructure:"base_url"`        // e.g., "http://localhost:11434" for Ollama
	Model          string `mapstructure:"model"`           // e.g., "mistral", "qwen2.5-coder:7b"
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // Request timeout in seconds
	ContextSize    *int   `mapstructure:"context_size"`    // Context window size (nil = model default)
}

// UsageConfig configures token usage tracking and spend limits
type UsageConfig struct {
	Enabled bool `mapstructure:"enabled"` // Record per-request token usage (default: true)

	// Budget limits enforced against recorded spend. 0 = no limit.
	DailyBudgetUSD   float64 `mapstructure:"daily_budget_usd"`
	WeeklyBudgetUSD  float64 `mapstructure:"weekly_budget_usd"`
	MonthlyBudgetUSD float64 `mapstructure:"monthly_budget_usd"`
}

// PluginsConfig configures the ingestion plugin system
type PluginsConfig struct {
	Enabled []string `mapstructure:"enabled"` // Whitelist of enabled plugins (empty = all built-ins)
	Paths   []string `mapstructure:"paths"`   // Plugin asset search paths

	// Outbound HTTP behavior for API-capable plugins
	HTTPTimeoutSeconds   int `mapstructure:"http_timeout_seconds"`    // Request timeout (default: 30)
	MaxRequestsPerMinute int `mapstructure:"max_requests_per_minute"` // 0 = unlimited
	DelayBetweenRequests int `mapstructure:"delay_between_requests_ms"`
}

// GenerationConfig configures report generation behavior
type GenerationConfig struct {
	OutputDir   string `mapstructure:"output_dir"`   // Where rendered reports are written
	SavePrompts bool   `mapstructure:"save_prompts"` // Persist rendered prompts next to the report
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

package anthropic

// ModelPricing holds per-token pricing for Anthropic models.
// Prices are in USD per million tokens.
type ModelPricing struct {
	InputPrice  float64 // USD per 1M input tokens
	OutputPrice float64 // USD per 1M output tokens
}

// modelPricing holds pricing for Anthropic Claude models.
// Source: https://www.anthropic.com/pricing
var modelPricing = map[string]ModelPricing{
	// Claude 4 models
	"claude-sonnet-4-20250514": {
		InputPrice:  3.00,
		OutputPrice: 15.00,
	},
	"claude-opus-4-20250514": {
		InputPrice:  15.00,
		OutputPrice: 75.00,
	},

	// Claude 3.5 models
	"claude-3-5-sonnet-20241022": {
		InputPrice:  3.00,
		OutputPrice: 15.00,
	},
	"claude-3-5-sonnet-latest": {
		InputPrice:  3.00,
		OutputPrice: 15.00,
	},
	"claude-3-5-haiku-20241022": {
		InputPrice:  0.80,
		OutputPrice: 4.00,
	},
	"claude-3-5-haiku-latest": {
		InputPrice:  0.80,
		OutputPrice: 4.00,
	},

	// Claude 3 models
	"claude-3-opus-20240229": {
		InputPrice:  15.00,
		OutputPrice: 75.00,
	},
	"claude-3-opus-latest": {
		InputPrice:  15.00,
		OutputPrice: 75.00,
	},
	"claude-3-sonnet-20240229": {
		InputPrice:  3.00,
		OutputPrice: 15.00,
	},
	"claude-3-haiku-20240307": {
		InputPrice:  0.25,
		OutputPrice: 1.25,
	},

	// Aliases for convenience
	"claude-sonnet-4": {
		InputPrice:  3.00,
		OutputPrice: 15.00,
	},
	"claude-opus-4": {
		InputPrice:  15.00,
		OutputPrice: 75.00,
	},
}

// DefaultPricingFallback is the per-request cost recorded when a model has
// no pricing entry. One cent is a conservative estimate.
const DefaultPricingFallback = 0.01

// CalculateCost computes the cost of an API call in USD from token usage.
func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, found := modelPricing[model]
	if !found {
		return DefaultPricingFallback
	}

	inputCost := (float64(inputTokens) / 1_000_000.0) * pricing.InputPrice
	outputCost := (float64(outputTokens) / 1_000_000.0) * pricing.OutputPrice

	return inputCost + outputCost
}

// GetPricing returns pricing information for a model, if available.
func GetPricing(model string) (ModelPricing, bool) {
	pricing, found := modelPricing[model]
	return pricing, found
}

package models

// ModelRate holds per-1000-token prices in USD for one model.
type ModelRate struct {
	InputPer1K  float64
	OutputPer1K float64
}

// DefaultPricingModel is the tier used for unrecognized model identifiers.
const DefaultPricingModel = "gpt-4o-mini"

// pricingTable maps model identifiers to per-1k-token rates. Rates are
// approximate list prices; adjust as vendors reprice.
var pricingTable = map[string]ModelRate{
	"gpt-4o-mini":      {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	"gpt-4o":           {InputPer1K: 0.0025, OutputPer1K: 0.01},
	"gpt-4-turbo":      {InputPer1K: 0.01, OutputPer1K: 0.03},
	"deepseek-chat":    {InputPer1K: 0.00027, OutputPer1K: 0.0011},
	"moonshot-v1-8k":   {InputPer1K: 0.0002, OutputPer1K: 0.002},
	"moonshot-v1-32k":  {InputPer1K: 0.001, OutputPer1K: 0.003},
	"moonshot-v1-128k": {InputPer1K: 0.002, OutputPer1K: 0.005},
}

// RateFor returns the pricing rate for a model, falling back to the default
// tier for unknown identifiers.
func RateFor(model string) ModelRate {
	if rate, ok := pricingTable[model]; ok {
		return rate
	}
	return pricingTable[DefaultPricingModel]
}

// EstimateCost converts token usage to a monetary estimate for the given
// model. Pure function: pricing lookup plus the linear per-1k formula, no
// network access.
func EstimateCost(promptTokens, completionTokens int, model string) float64 {
	rate := RateFor(model)
	inputCost := float64(promptTokens) / 1000 * rate.InputPer1K
	outputCost := float64(completionTokens) / 1000 * rate.OutputPer1K
	return inputCost + outputCost
}

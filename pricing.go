package gatekit

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/shopspring/decimal"
)

// modelPricing holds per-model token prices in USD per million tokens.
type modelPricing struct {
	inputPerMTok      decimal.Decimal
	outputPerMTok     decimal.Decimal
	cacheWritePerMTok decimal.Decimal
	cacheReadPerMTok  decimal.Decimal
}

var million = decimal.NewFromInt(1_000_000)

// cost calculates the USD cost of the given usage.
func (p modelPricing) cost(u Usage) decimal.Decimal {
	c := decimal.NewFromInt(u.InputTokens).Mul(p.inputPerMTok).Div(million)
	c = c.Add(decimal.NewFromInt(u.OutputTokens).Mul(p.outputPerMTok).Div(million))
	c = c.Add(decimal.NewFromInt(u.CacheReadInputTokens).Mul(p.cacheReadPerMTok).Div(million))
	c = c.Add(decimal.NewFromInt(u.CacheCreationInputTokens).Mul(p.cacheWritePerMTok).Div(million))
	return c
}

// defaultPricing contains built-in pricing for Claude models (USD per million
// tokens). Unknown models cost zero.
var defaultPricing = map[anthropic.Model]modelPricing{
	anthropic.ModelClaudeOpus4_6: {
		inputPerMTok:      decimal.NewFromFloat(5),
		outputPerMTok:     decimal.NewFromFloat(25),
		cacheWritePerMTok: decimal.NewFromFloat(6.25),
		cacheReadPerMTok:  decimal.NewFromFloat(0.5),
	},
	anthropic.ModelClaudeSonnet4_5: {
		inputPerMTok:      decimal.NewFromFloat(3),
		outputPerMTok:     decimal.NewFromFloat(15),
		cacheWritePerMTok: decimal.NewFromFloat(3.75),
		cacheReadPerMTok:  decimal.NewFromFloat(0.3),
	},
	anthropic.ModelClaudeHaiku4_5: {
		inputPerMTok:      decimal.NewFromFloat(1),
		outputPerMTok:     decimal.NewFromFloat(5),
		cacheWritePerMTok: decimal.NewFromFloat(1.25),
		cacheReadPerMTok:  decimal.NewFromFloat(0.1),
	},
}

// costFor calculates the USD cost of usage for a model. Unknown models
// return zero.
func costFor(model anthropic.Model, u Usage) decimal.Decimal {
	pricing, ok := defaultPricing[model]
	if !ok {
		return decimal.Zero
	}
	return pricing.cost(u)
}

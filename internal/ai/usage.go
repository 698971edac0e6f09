package ai

import (
	"math"
	"sync"
)

// Price is the USD cost per 1K tokens.
type Price struct {
	Input  float64
	Output float64
}

// Pricing lists known model prices. Models not listed cost nothing.
var Pricing = map[string]Price{
	"gpt-4.1-mini": {Input: 0.0004, Output: 0.0016},
	"gpt-4.1":      {Input: 0.002, Output: 0.008},
	"gpt-4o-mini":  {Input: 0.00015, Output: 0.0006},
	"gpt-4o":       {Input: 0.0025, Output: 0.01},
}

// Cost computes the USD cost of a call to model.
func Cost(model string, inputTokens, outputTokens int) float64 {
	p, ok := Pricing[model]
	if !ok {
		return 0
	}
	return (float64(inputTokens)*p.Input + float64(outputTokens)*p.Output) / 1000
}

// Usage is the token accounting of one or more LLM calls.
type Usage struct {
	Model        string  `json:"model,omitempty"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost_usd"`
}

// TotalTokens returns input plus output tokens.
func (u Usage) TotalTokens() int { return u.InputTokens + u.OutputTokens }

// Plus returns the sum of u and o.
func (u Usage) Plus(o Usage) Usage {
	model := u.Model
	if model == "" {
		model = o.Model
	}
	return Usage{
		Model:        model,
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		Cost:         u.Cost + o.Cost,
	}
}

// Summary is the reportable form of accumulated usage.
type Summary struct {
	Calls        int     `json:"calls"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// Tracker accumulates usage across calls. It is owned by whoever issues
// the calls; nothing in this package keeps a global tracker.
type Tracker struct {
	mu    sync.Mutex
	total Usage
	calls int
}

// Add records one call.
func (t *Tracker) Add(u Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = t.total.Plus(u)
	t.calls++
}

// Summary returns the totals with cost rounded to four decimal places.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Summary{
		Calls:        t.calls,
		InputTokens:  t.total.InputTokens,
		OutputTokens: t.total.OutputTokens,
		TotalTokens:  t.total.TotalTokens(),
		TotalCostUSD: math.Round(t.total.Cost*1e4) / 1e4,
	}
}

package models

// ModelPricing defines per-1K token costs for a model.
type ModelPricing struct {
	Model          string  `json:"model" yaml:"model"`
	PromptCost     float64 `json:"prompt_cost_per_1k" yaml:"prompt_cost_per_1k"`
	CompletionCost float64 `json:"completion_cost_per_1k" yaml:"completion_cost_per_1k"`
}

// CostReport is an aggregated cost row grouped by provider and model.
type CostReport struct {
	Provider         string  `json:"provider"`
	Model            string  `json:"model"`
	RequestCount     int     `json:"request_count"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	EstimatedCost    float64 `json:"estimated_cost"`
}

// ApplyPricing fills EstimatedCost on each report using per-model pricing.
// Reports for models without pricing keep a zero cost.
func ApplyPricing(reports []CostReport, pricing []ModelPricing) {
	byModel := make(map[string]ModelPricing, len(pricing))
	for _, p := range pricing {
		byModel[p.Model] = p
	}
	for i := range reports {
		if p, ok := byModel[reports[i].Model]; ok {
			reports[i].EstimatedCost = (float64(reports[i].PromptTokens)/1000)*p.PromptCost +
				(float64(reports[i].CompletionTokens)/1000)*p.CompletionCost
		}
	}
}

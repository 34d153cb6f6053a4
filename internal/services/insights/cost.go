package insights

import (
	"github.com/luminahq/insight-engine/internal/models"
	"github.com/luminahq/insight-engine/internal/services/llm"
)

// Credit pricing. Costs are fixed-point integers; there is no fractional
// credit anywhere in the ledger.
const (
	// BaseGenerationCost is charged for every insight generation
	BaseGenerationCost int64 = 5
	// ProTierSurcharge is added when the resolved model is a pro-tier model
	ProTierSurcharge int64 = 5
	// KnowledgeSurcharge is added when knowledge-base retrieval is requested
	KnowledgeSurcharge int64 = 2
	// JobCreationCost is charged once when a scheduled job is created
	JobCreationCost int64 = 1
)

// CostFor computes the credit cost of one generation before it starts.
// An unresolvable model name is priced at the base tier; the router will
// reject it later if it is genuinely unsupported.
func CostFor(opts models.GenerationOptions) int64 {
	cost := BaseGenerationCost

	if model, err := llm.ResolveModel(opts.Model); err == nil && model.ProTier() {
		cost += ProTierSurcharge
	}
	if opts.UseKnowledgeBase {
		cost += KnowledgeSurcharge
	}

	return cost
}

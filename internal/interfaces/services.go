package interfaces

import (
	"context"

	"github.com/luminahq/insight-engine/internal/models"
)

// CreditService authorizes and records credit usage per organization.
// Use must never be called for a cost that HasAvailable did not approve.
type CreditService interface {
	HasAvailable(ctx context.Context, orgID string, cost int64) (bool, error)
	Use(ctx context.Context, orgID string, cost int64, description, referenceID string) error
	Grant(ctx context.Context, orgID string, amount int64, description string) error
	Balance(ctx context.Context, orgID string) (int64, error)
}

// AggregationService gathers a domain-shaped data snapshot for one insight category
type AggregationService interface {
	Gather(ctx context.Context, category models.InsightType, orgID string, timeframeDays int, entityIDs []string, entityType string) (map[string]any, error)
}

// KnowledgeService retrieves reference text relevant to a query.
// Implementations swallow internal failures and return an empty string;
// retrieval is best-effort and must never fail a generation.
type KnowledgeService interface {
	Retrieve(ctx context.Context, orgID, query string) string
}

// GenerationService produces exactly one text completion for a prompt
type GenerationService interface {
	Generate(ctx context.Context, prompt, ragContext string, opts models.GenerationOptions) (string, error)
}

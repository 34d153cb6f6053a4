package interfaces

import (
	"context"

	"github.com/luminahq/insight-engine/internal/models"
)

// GenerateRequest describes one insight generation
type GenerateRequest struct {
	Category         models.InsightType
	UserID           string
	OrganizationID   string
	TargetEntityIDs  []string
	TargetEntityType string
	TimeframeDays    int
	Source           models.InsightSource
	Options          models.GenerationOptions
}

// InsightService is the top-level generation pipeline. GenerateInsight returns
// synchronously with a processing insight once credits are reserved and the
// placeholder record exists; the remainder of the pipeline runs in the
// background and resolves the record to completed or failed.
type InsightService interface {
	GenerateInsight(ctx context.Context, req GenerateRequest) (*models.Insight, error)
	GetInsight(ctx context.Context, id string) (*models.Insight, error)
	ListInsights(ctx context.Context, orgID string, opts *InsightListOptions) ([]*models.Insight, error)
}

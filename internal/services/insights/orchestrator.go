// Package insights runs the generation pipeline: credit gating, placeholder
// creation, and the asynchronous aggregation → prompt → completion → parse
// sequence that resolves each insight to completed or failed.
package insights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/luminahq/insight-engine/internal/common"
	"github.com/luminahq/insight-engine/internal/interfaces"
	"github.com/luminahq/insight-engine/internal/models"
	"github.com/luminahq/insight-engine/internal/services/llm"
	"github.com/luminahq/insight-engine/internal/services/parser"
	"github.com/luminahq/insight-engine/internal/services/prompt"
)

// ErrInsufficientCredits is returned when the organization cannot cover the
// cost of a generation. Nothing is recorded and nothing is charged.
var ErrInsufficientCredits = errors.New("insufficient credits")

// Orchestrator implements interfaces.InsightService
type Orchestrator struct {
	storage     interfaces.InsightStorage
	credits     interfaces.CreditService
	aggregation interfaces.AggregationService
	knowledge   interfaces.KnowledgeService
	generator   interfaces.GenerationService
	events      interfaces.EventService
	logger      arbor.ILogger
}

// NewOrchestrator wires the generation pipeline
func NewOrchestrator(
	storage interfaces.InsightStorage,
	credits interfaces.CreditService,
	aggregation interfaces.AggregationService,
	knowledge interfaces.KnowledgeService,
	generator interfaces.GenerationService,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		storage:     storage,
		credits:     credits,
		aggregation: aggregation,
		knowledge:   knowledge,
		generator:   generator,
		events:      events,
		logger:      logger,
	}
}

// GenerateInsight gates on credits, persists a processing placeholder,
// charges the organization, then hands off to the background pipeline.
// The returned insight is in processing state and is never mutated after
// return; the background pipeline works on its own copy of the record.
func (o *Orchestrator) GenerateInsight(ctx context.Context, req interfaces.GenerateRequest) (*models.Insight, error) {
	if !models.IsValidInsightType(req.Category) {
		return nil, fmt.Errorf("invalid insight category: %s", req.Category)
	}
	if req.OrganizationID == "" {
		return nil, fmt.Errorf("organization id is required")
	}
	if req.Source == "" {
		req.Source = models.SourceOnDemand
	}

	cost := CostFor(req.Options)

	available, err := o.credits.HasAvailable(ctx, req.OrganizationID, cost)
	if err != nil {
		return nil, fmt.Errorf("credit check failed: %w", err)
	}
	if !available {
		return nil, fmt.Errorf("organization %s needs %d credits: %w", req.OrganizationID, cost, ErrInsufficientCredits)
	}

	now := time.Now().UTC()
	insight := &models.Insight{
		ID:                common.NewInsightID(),
		Type:              req.Category,
		Status:            models.InsightStatusProcessing,
		Priority:          models.PriorityMedium,
		Source:            req.Source,
		Title:             req.Category.DisplayName() + " analysis in progress",
		Model:             modelLabel(req.Options.Model),
		CreditCost:        cost,
		UserID:            req.UserID,
		OrganizationID:    req.OrganizationID,
		RelatedEntityIDs:  req.TargetEntityIDs,
		RelatedEntityType: req.TargetEntityType,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := o.storage.CreateInsight(ctx, insight); err != nil {
		return nil, fmt.Errorf("failed to create insight record: %w", err)
	}

	if err := o.credits.Use(ctx, req.OrganizationID, cost, "insight generation", insight.ID); err != nil {
		o.markFailed(context.Background(), insight, fmt.Errorf("credit deduction failed: %w", err))
		return nil, fmt.Errorf("credit deduction failed: %w", err)
	}

	o.logger.Info().
		Str("insight_id", insight.ID).
		Str("category", string(req.Category)).
		Str("org_id", req.OrganizationID).
		Int64("cost", cost).
		Msg("Insight generation started")

	pending := *insight
	go o.run(&pending, req)

	return insight, nil
}

// GetInsight returns one insight by id
func (o *Orchestrator) GetInsight(ctx context.Context, id string) (*models.Insight, error) {
	return o.storage.GetInsight(ctx, id)
}

// ListInsights returns insights for an organization
func (o *Orchestrator) ListInsights(ctx context.Context, orgID string, opts *interfaces.InsightListOptions) ([]*models.Insight, error) {
	return o.storage.ListInsights(ctx, orgID, opts)
}

// run executes the asynchronous phase. Every failure, including a panic,
// resolves the insight to failed; errors never escape the goroutine and
// credits are not refunded.
func (o *Orchestrator) run(insight *models.Insight, req interfaces.GenerateRequest) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Str("insight_id", insight.ID).
				Msg(fmt.Sprintf("Panic during insight generation: %v", r))
			o.markFailed(ctx, insight, fmt.Errorf("internal error during generation: %v", r))
		}
	}()

	contextData, err := o.aggregation.Gather(ctx, req.Category, req.OrganizationID, req.TimeframeDays, req.TargetEntityIDs, req.TargetEntityType)
	if err != nil {
		o.markFailed(ctx, insight, fmt.Errorf("data aggregation failed: %w", err))
		return
	}

	promptText, err := prompt.Build(req.Category, contextData, req.Options.CustomPrompt)
	if err != nil {
		o.markFailed(ctx, insight, fmt.Errorf("prompt construction failed: %w", err))
		return
	}

	ragContext := ""
	if req.Options.UseKnowledgeBase {
		ragContext = o.knowledge.Retrieve(ctx, req.OrganizationID, retrievalQuery(req))
	}

	start := time.Now()
	completion, err := o.generator.Generate(ctx, promptText, ragContext, req.Options)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		o.markFailed(ctx, insight, fmt.Errorf("generation failed: %w", err))
		return
	}

	parsed := parser.Parse(completion, req.Category)

	insight.Status = models.InsightStatusCompleted
	insight.Title = parsed.Title
	insight.Summary = parsed.Summary
	insight.Priority = parsed.Priority
	insight.Metrics = parsed.Metrics
	insight.Recommendations = parsed.Recommendations
	insight.Visualizations = parsed.Visualizations
	insight.RawAnalysis = completion
	insight.AnalysisTimeMs = elapsed
	insight.UpdatedAt = time.Now().UTC()

	if err := o.storage.UpdateInsight(ctx, insight); err != nil {
		o.logger.Error().
			Err(err).
			Str("insight_id", insight.ID).
			Msg("Failed to persist completed insight")
		return
	}

	o.logger.Info().
		Str("insight_id", insight.ID).
		Int64("analysis_time_ms", elapsed).
		Msg("Insight generation completed")

	o.publish(ctx, interfaces.EventInsightCompleted, insight)
}

// markFailed resolves the insight to failed with the error message as the
// summary. Charged credits stay charged.
func (o *Orchestrator) markFailed(ctx context.Context, insight *models.Insight, cause error) {
	insight.Status = models.InsightStatusFailed
	insight.Summary = cause.Error()
	insight.UpdatedAt = time.Now().UTC()

	if err := o.storage.UpdateInsight(ctx, insight); err != nil {
		o.logger.Error().
			Err(err).
			Str("insight_id", insight.ID).
			Msg("Failed to persist failed insight")
	}

	o.logger.Warn().
		Err(cause).
		Str("insight_id", insight.ID).
		Msg("Insight generation failed")

	o.publish(ctx, interfaces.EventInsightFailed, insight)
}

func (o *Orchestrator) publish(ctx context.Context, eventType interfaces.EventType, insight *models.Insight) {
	if o.events == nil {
		return
	}
	_ = o.events.Publish(ctx, interfaces.Event{
		Type: eventType,
		Payload: map[string]any{
			"insight_id": insight.ID,
			"org_id":     insight.OrganizationID,
			"category":   string(insight.Type),
			"status":     string(insight.Status),
		},
	})
}

// retrievalQuery composes the knowledge-base query from the request
func retrievalQuery(req interfaces.GenerateRequest) string {
	query := req.Category.DisplayName() + " analysis"
	if req.TargetEntityType != "" {
		query += " " + req.TargetEntityType
	}
	if req.Options.CustomPrompt != "" {
		query += " " + req.Options.CustomPrompt
	}
	return query
}

// modelLabel records the resolved model alias, falling back to the raw
// request string when it does not resolve
func modelLabel(requested string) string {
	if model, err := llm.ResolveModel(requested); err == nil {
		return model.Alias()
	}
	return requested
}

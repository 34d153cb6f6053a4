package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/luminahq/insight-engine/internal/interfaces"
	"github.com/luminahq/insight-engine/internal/models"
)

// InsightStorage implements the InsightStorage interface for Badger
type InsightStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewInsightStorage creates a new InsightStorage instance
func NewInsightStorage(db *BadgerDB, logger arbor.ILogger) interfaces.InsightStorage {
	return &InsightStorage{
		db:     db,
		logger: logger,
	}
}

func (s *InsightStorage) CreateInsight(ctx context.Context, insight *models.Insight) error {
	if insight.ID == "" {
		return fmt.Errorf("insight ID is required")
	}

	now := time.Now()
	if insight.CreatedAt.IsZero() {
		insight.CreatedAt = now
	}
	insight.UpdatedAt = now

	if err := s.db.Store().Insert(insight.ID, insight); err != nil {
		return fmt.Errorf("failed to create insight: %w", err)
	}
	return nil
}

func (s *InsightStorage) UpdateInsight(ctx context.Context, insight *models.Insight) error {
	if insight.ID == "" {
		return fmt.Errorf("insight ID is required")
	}

	insight.UpdatedAt = time.Now()

	if err := s.db.Store().Update(insight.ID, insight); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("insight not found: %s", insight.ID)
		}
		return fmt.Errorf("failed to update insight: %w", err)
	}
	return nil
}

func (s *InsightStorage) GetInsight(ctx context.Context, id string) (*models.Insight, error) {
	var insight models.Insight
	if err := s.db.Store().Get(id, &insight); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("insight not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get insight: %w", err)
	}
	return &insight, nil
}

func (s *InsightStorage) ListInsights(ctx context.Context, orgID string, opts *interfaces.InsightListOptions) ([]*models.Insight, error) {
	query := badgerhold.Where("OrganizationID").Eq(orgID)

	if opts != nil {
		if opts.Type != "" {
			query = query.And("Type").Eq(opts.Type)
		}
		if opts.Status != "" {
			query = query.And("Status").Eq(opts.Status)
		}
		if opts.UserID != "" {
			query = query.And("UserID").Eq(opts.UserID)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
		if opts.OrderBy != "" {
			if opts.OrderDir == "DESC" {
				query = query.SortBy(opts.OrderBy).Reverse()
			} else {
				query = query.SortBy(opts.OrderBy)
			}
		} else {
			query = query.SortBy("CreatedAt").Reverse()
		}
	} else {
		query = query.SortBy("CreatedAt").Reverse()
	}

	var insights []models.Insight
	if err := s.db.Store().Find(&insights, query); err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}

	result := make([]*models.Insight, len(insights))
	for i := range insights {
		result[i] = &insights[i]
	}
	return result, nil
}

func (s *InsightStorage) CountInsightsByType(ctx context.Context, orgID string, insightType models.InsightType) (int, error) {
	count, err := s.db.Store().Count(&models.Insight{},
		badgerhold.Where("OrganizationID").Eq(orgID).And("Type").Eq(insightType))
	if err != nil {
		return 0, fmt.Errorf("failed to count insights: %w", err)
	}
	return int(count), nil
}

func (s *InsightStorage) DeleteInsight(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Insight{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete insight: %w", err)
	}
	return nil
}

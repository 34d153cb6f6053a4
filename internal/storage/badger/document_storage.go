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

// DocumentStorage implements the DocumentStorage interface for Badger
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

func (s *DocumentStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (s *DocumentStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := s.db.Store().Get(id, &doc); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("document not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (s *DocumentStorage) ListDocuments(ctx context.Context, orgID string) ([]*models.Document, error) {
	var docs []models.Document
	query := badgerhold.Where("OrganizationID").Eq(orgID).SortBy("UpdatedAt").Reverse()
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	result := make([]*models.Document, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result, nil
}

func (s *DocumentStorage) DeleteDocument(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Document{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

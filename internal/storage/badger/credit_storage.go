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

// CreditStorage implements the CreditStorage interface for Badger
type CreditStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCreditStorage creates a new CreditStorage instance
func NewCreditStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CreditStorage {
	return &CreditStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CreditStorage) GetBalance(ctx context.Context, orgID string) (*models.CreditBalance, error) {
	var balance models.CreditBalance
	if err := s.db.Store().Get(orgID, &balance); err != nil {
		if err == badgerhold.ErrNotFound {
			return &models.CreditBalance{OrganizationID: orgID, Balance: 0}, nil
		}
		return nil, fmt.Errorf("failed to get credit balance: %w", err)
	}
	return &balance, nil
}

func (s *CreditStorage) SaveBalance(ctx context.Context, balance *models.CreditBalance) error {
	if balance.OrganizationID == "" {
		return fmt.Errorf("organization ID is required")
	}

	balance.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(balance.OrganizationID, balance); err != nil {
		return fmt.Errorf("failed to save credit balance: %w", err)
	}
	return nil
}

func (s *CreditStorage) AppendTransaction(ctx context.Context, txn *models.CreditTransaction) error {
	if txn.ID == "" {
		return fmt.Errorf("transaction ID is required")
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}

	if err := s.db.Store().Insert(txn.ID, txn); err != nil {
		return fmt.Errorf("failed to append credit transaction: %w", err)
	}
	return nil
}

func (s *CreditStorage) ListTransactions(ctx context.Context, orgID string, limit int) ([]*models.CreditTransaction, error) {
	query := badgerhold.Where("OrganizationID").Eq(orgID).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var txns []models.CreditTransaction
	if err := s.db.Store().Find(&txns, query); err != nil {
		return nil, fmt.Errorf("failed to list credit transactions: %w", err)
	}

	result := make([]*models.CreditTransaction, len(txns))
	for i := range txns {
		result[i] = &txns[i]
	}
	return result, nil
}

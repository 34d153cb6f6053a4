// Package credits maintains per-organization credit balances and the
// transaction ledger backing them.
package credits

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/luminahq/insight-engine/internal/common"
	"github.com/luminahq/insight-engine/internal/interfaces"
	"github.com/luminahq/insight-engine/internal/models"
)

// Service implements interfaces.CreditService over a CreditStorage.
// A process-wide mutex serializes balance updates so a check-then-deduct
// pair cannot interleave with another deduction for the same organization.
type Service struct {
	storage      interfaces.CreditStorage
	initialGrant int64
	mu           sync.Mutex
}

// NewService creates the credit service. When initialGrant is positive, an
// organization seen for the first time is seeded with that many credits.
func NewService(storage interfaces.CreditStorage, initialGrant int64) *Service {
	return &Service{storage: storage, initialGrant: initialGrant}
}

// load fetches the balance, seeding a never-persisted organization with the
// initial grant. A zero UpdatedAt marks a record that has never been saved.
func (s *Service) load(ctx context.Context, orgID string) (*models.CreditBalance, error) {
	balance, err := s.storage.GetBalance(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load balance for %s: %w", orgID, err)
	}
	if !balance.UpdatedAt.IsZero() || s.initialGrant <= 0 {
		return balance, nil
	}

	balance.Balance = s.initialGrant
	balance.UpdatedAt = time.Now().UTC()
	if err := s.storage.SaveBalance(ctx, balance); err != nil {
		return nil, fmt.Errorf("failed to seed balance for %s: %w", orgID, err)
	}
	if err := s.storage.AppendTransaction(ctx, &models.CreditTransaction{
		ID:             common.NewTransactionID(),
		OrganizationID: orgID,
		Type:           models.CreditGrant,
		Amount:         s.initialGrant,
		Description:    "initial grant",
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("failed to record initial grant for %s: %w", orgID, err)
	}
	return balance, nil
}

// HasAvailable reports whether the organization holds at least cost credits
func (s *Service) HasAvailable(ctx context.Context, orgID string, cost int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.load(ctx, orgID)
	if err != nil {
		return false, err
	}
	return balance.Balance >= cost, nil
}

// Use deducts cost credits and appends a deduction transaction. The balance
// never goes negative; an over-deduction is rejected rather than clamped.
func (s *Service) Use(ctx context.Context, orgID string, cost int64, description, referenceID string) error {
	if cost <= 0 {
		return fmt.Errorf("deduction amount must be positive, got %d", cost)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.load(ctx, orgID)
	if err != nil {
		return err
	}
	if balance.Balance < cost {
		return fmt.Errorf("organization %s has %d credits, need %d", orgID, balance.Balance, cost)
	}

	balance.Balance -= cost
	balance.UpdatedAt = time.Now().UTC()
	if err := s.storage.SaveBalance(ctx, balance); err != nil {
		return fmt.Errorf("failed to save balance for %s: %w", orgID, err)
	}

	return s.storage.AppendTransaction(ctx, &models.CreditTransaction{
		ID:             common.NewTransactionID(),
		OrganizationID: orgID,
		Type:           models.CreditDeduction,
		Amount:         cost,
		Description:    description,
		ReferenceID:    referenceID,
		CreatedAt:      time.Now().UTC(),
	})
}

// Grant adds credits to the organization and records a grant transaction
func (s *Service) Grant(ctx context.Context, orgID string, amount int64, description string) error {
	if amount <= 0 {
		return fmt.Errorf("grant amount must be positive, got %d", amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.load(ctx, orgID)
	if err != nil {
		return err
	}

	balance.Balance += amount
	balance.UpdatedAt = time.Now().UTC()
	if err := s.storage.SaveBalance(ctx, balance); err != nil {
		return fmt.Errorf("failed to save balance for %s: %w", orgID, err)
	}

	return s.storage.AppendTransaction(ctx, &models.CreditTransaction{
		ID:             common.NewTransactionID(),
		OrganizationID: orgID,
		Type:           models.CreditGrant,
		Amount:         amount,
		Description:    description,
		CreatedAt:      time.Now().UTC(),
	})
}

// Balance returns the organization's current credit balance
func (s *Service) Balance(ctx context.Context, orgID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.load(ctx, orgID)
	if err != nil {
		return 0, err
	}
	return balance.Balance, nil
}

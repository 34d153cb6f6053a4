package credits

import (
	"context"
	"testing"

	"github.com/luminahq/insight-engine/internal/models"
)

// fakeCreditStorage keeps balances and transactions in memory
type fakeCreditStorage struct {
	balances     map[string]*models.CreditBalance
	transactions []*models.CreditTransaction
}

func newFakeCreditStorage() *fakeCreditStorage {
	return &fakeCreditStorage{balances: make(map[string]*models.CreditBalance)}
}

func (f *fakeCreditStorage) GetBalance(_ context.Context, orgID string) (*models.CreditBalance, error) {
	if balance, ok := f.balances[orgID]; ok {
		copied := *balance
		return &copied, nil
	}
	return &models.CreditBalance{OrganizationID: orgID}, nil
}

func (f *fakeCreditStorage) SaveBalance(_ context.Context, balance *models.CreditBalance) error {
	copied := *balance
	f.balances[balance.OrganizationID] = &copied
	return nil
}

func (f *fakeCreditStorage) AppendTransaction(_ context.Context, txn *models.CreditTransaction) error {
	f.transactions = append(f.transactions, txn)
	return nil
}

func (f *fakeCreditStorage) ListTransactions(_ context.Context, orgID string, limit int) ([]*models.CreditTransaction, error) {
	var out []*models.CreditTransaction
	for _, txn := range f.transactions {
		if txn.OrganizationID == orgID {
			out = append(out, txn)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestGrantAndUse(t *testing.T) {
	storage := newFakeCreditStorage()
	service := NewService(storage, 0)
	ctx := context.Background()

	if err := service.Grant(ctx, "org-1", 100, "purchase"); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	ok, err := service.HasAvailable(ctx, "org-1", 10)
	if err != nil || !ok {
		t.Fatalf("expected 10 credits available, ok=%v err=%v", ok, err)
	}

	if err := service.Use(ctx, "org-1", 10, "insight generation", "ins_abc"); err != nil {
		t.Fatalf("use failed: %v", err)
	}

	balance, err := service.Balance(ctx, "org-1")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 90 {
		t.Errorf("balance = %d, want 90", balance)
	}

	if len(storage.transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(storage.transactions))
	}
	if storage.transactions[0].Type != models.CreditGrant {
		t.Errorf("first transaction type = %q, want grant", storage.transactions[0].Type)
	}
	if storage.transactions[1].Type != models.CreditDeduction {
		t.Errorf("second transaction type = %q, want deduction", storage.transactions[1].Type)
	}
	if storage.transactions[1].ReferenceID != "ins_abc" {
		t.Errorf("deduction reference = %q", storage.transactions[1].ReferenceID)
	}
}

func TestUseRejectsOverdraft(t *testing.T) {
	storage := newFakeCreditStorage()
	service := NewService(storage, 0)
	ctx := context.Background()

	if err := service.Grant(ctx, "org-1", 5, "purchase"); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	if err := service.Use(ctx, "org-1", 10, "insight generation", "ins_abc"); err == nil {
		t.Fatal("expected overdraft to fail")
	}

	balance, _ := service.Balance(ctx, "org-1")
	if balance != 5 {
		t.Errorf("balance = %d, want unchanged 5", balance)
	}
	if len(storage.transactions) != 1 {
		t.Errorf("got %d transactions, want only the grant", len(storage.transactions))
	}
}

func TestInitialGrantSeedsNewOrganization(t *testing.T) {
	storage := newFakeCreditStorage()
	service := NewService(storage, 25)
	ctx := context.Background()

	balance, err := service.Balance(ctx, "org-new")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance != 25 {
		t.Errorf("balance = %d, want seeded 25", balance)
	}
	if len(storage.transactions) != 1 || storage.transactions[0].Type != models.CreditGrant {
		t.Fatalf("expected one grant transaction, got %+v", storage.transactions)
	}

	// Seeding happens once, not on every lookup
	if _, err := service.Balance(ctx, "org-new"); err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if len(storage.transactions) != 1 {
		t.Errorf("got %d transactions, want still 1", len(storage.transactions))
	}
}

func TestUnknownOrgWithoutSeedHasZeroBalance(t *testing.T) {
	service := NewService(newFakeCreditStorage(), 0)

	ok, err := service.HasAvailable(context.Background(), "org-new", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no credits for an unknown organization")
	}
}

func TestRejectsNonPositiveAmounts(t *testing.T) {
	service := NewService(newFakeCreditStorage(), 0)
	ctx := context.Background()

	if err := service.Grant(ctx, "org-1", 0, "nothing"); err == nil {
		t.Error("expected zero grant to fail")
	}
	if err := service.Use(ctx, "org-1", -1, "negative", ""); err == nil {
		t.Error("expected negative deduction to fail")
	}
}

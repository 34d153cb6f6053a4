package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/luminahq/insight-engine/internal/common"
	"github.com/luminahq/insight-engine/internal/interfaces"
	"github.com/luminahq/insight-engine/internal/models"
	"github.com/luminahq/insight-engine/internal/services/llm"
)

type fakeInsightStorage struct {
	mu       sync.Mutex
	insights map[string]*models.Insight
	failNext bool
}

func newFakeInsightStorage() *fakeInsightStorage {
	return &fakeInsightStorage{insights: make(map[string]*models.Insight)}
}

func (f *fakeInsightStorage) CreateInsight(_ context.Context, insight *models.Insight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		return errors.New("storage unavailable")
	}
	copied := *insight
	f.insights[insight.ID] = &copied
	return nil
}

func (f *fakeInsightStorage) UpdateInsight(_ context.Context, insight *models.Insight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.insights[insight.ID]; !ok {
		return errors.New("insight not found")
	}
	copied := *insight
	f.insights[insight.ID] = &copied
	return nil
}

func (f *fakeInsightStorage) GetInsight(_ context.Context, id string) (*models.Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	insight, ok := f.insights[id]
	if !ok {
		return nil, errors.New("insight not found")
	}
	copied := *insight
	return &copied, nil
}

func (f *fakeInsightStorage) ListInsights(_ context.Context, orgID string, _ *interfaces.InsightListOptions) ([]*models.Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Insight
	for _, insight := range f.insights {
		if insight.OrganizationID == orgID {
			copied := *insight
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeInsightStorage) CountInsightsByType(_ context.Context, _ string, _ models.InsightType) (int, error) {
	return 0, nil
}

func (f *fakeInsightStorage) DeleteInsight(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.insights, id)
	return nil
}

type fakeCredits struct {
	mu      sync.Mutex
	balance int64
	calls   []string
}

func (f *fakeCredits) HasAvailable(_ context.Context, _ string, cost int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "check")
	return f.balance >= cost, nil
}

func (f *fakeCredits) Use(_ context.Context, _ string, cost int64, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "use")
	if f.balance < cost {
		return fmt.Errorf("balance %d below cost %d", f.balance, cost)
	}
	f.balance -= cost
	return nil
}

func (f *fakeCredits) Grant(_ context.Context, _ string, amount int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance += amount
	return nil
}

func (f *fakeCredits) Balance(_ context.Context, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, nil
}

type fakeAggregation struct {
	err error
}

func (f *fakeAggregation) Gather(_ context.Context, _ models.InsightType, _ string, _ int, _ []string, _ string) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"revenue": 1000}, nil
}

type fakeKnowledge struct {
	mu      sync.Mutex
	called  bool
	context string
}

func (f *fakeKnowledge) Retrieve(_ context.Context, _, _ string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = true
	return f.context
}

type fakeGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	prompt   string
	rag      string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt, ragContext string, _ models.GenerationOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompt = prompt
	f.rag = ragContext
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestOrchestrator(storage *fakeInsightStorage, credits *fakeCredits, agg *fakeAggregation, kb *fakeKnowledge, gen *fakeGenerator) *Orchestrator {
	return NewOrchestrator(storage, credits, agg, kb, gen, nil, common.GetLogger())
}

// waitForStatus polls until the insight leaves processing state
func waitForStatus(t *testing.T, storage *fakeInsightStorage, id string) *models.Insight {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		insight, err := storage.GetInsight(context.Background(), id)
		if err == nil && insight.Status != models.InsightStatusProcessing {
			return insight
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("insight never left processing state")
	return nil
}

func TestGenerateInsightCompletes(t *testing.T) {
	storage := newFakeInsightStorage()
	credits := &fakeCredits{balance: 100}
	gen := &fakeGenerator{response: "Title: Strong Quarter\nSummary: Revenue is up.\nPriority: High\nKey Metrics:\n- Revenue: increased by 12.5%"}
	orchestrator := newTestOrchestrator(storage, credits, &fakeAggregation{}, &fakeKnowledge{}, gen)

	insight, err := orchestrator.GenerateInsight(context.Background(), interfaces.GenerateRequest{
		Category:       models.InsightTypePerformance,
		UserID:         "user-1",
		OrganizationID: "org-1",
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if insight.Status != models.InsightStatusProcessing {
		t.Errorf("initial status = %q, want processing", insight.Status)
	}
	if insight.CreditCost != BaseGenerationCost {
		t.Errorf("cost = %d, want %d", insight.CreditCost, BaseGenerationCost)
	}

	final := waitForStatus(t, storage, insight.ID)
	if final.Status != models.InsightStatusCompleted {
		t.Fatalf("final status = %q, want completed", final.Status)
	}
	if final.Title != "Strong Quarter" {
		t.Errorf("title = %q", final.Title)
	}
	if final.Priority != models.PriorityHigh {
		t.Errorf("priority = %q", final.Priority)
	}
	if len(final.Metrics) != 1 || final.Metrics[0].Value != 12.5 {
		t.Errorf("metrics not parsed: %+v", final.Metrics)
	}
	if final.RawAnalysis == "" {
		t.Error("raw analysis not retained")
	}
	if credits.balance != 100-BaseGenerationCost {
		t.Errorf("balance = %d, want %d", credits.balance, 100-BaseGenerationCost)
	}
}

func TestGenerateInsightInsufficientCredits(t *testing.T) {
	storage := newFakeInsightStorage()
	credits := &fakeCredits{balance: 2}
	orchestrator := newTestOrchestrator(storage, credits, &fakeAggregation{}, &fakeKnowledge{}, &fakeGenerator{response: "x"})

	_, err := orchestrator.GenerateInsight(context.Background(), interfaces.GenerateRequest{
		Category:       models.InsightTypePerformance,
		OrganizationID: "org-1",
	})
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}
	if len(storage.insights) != 0 {
		t.Error("no record should be created when credits are insufficient")
	}
	if credits.balance != 2 {
		t.Errorf("balance = %d, want untouched 2", credits.balance)
	}
}

func TestGenerateInsightBackendFailureNoRefund(t *testing.T) {
	storage := newFakeInsightStorage()
	credits := &fakeCredits{balance: 50}
	gen := &fakeGenerator{err: errors.New("backend exploded")}
	orchestrator := newTestOrchestrator(storage, credits, &fakeAggregation{}, &fakeKnowledge{}, gen)

	insight, err := orchestrator.GenerateInsight(context.Background(), interfaces.GenerateRequest{
		Category:       models.InsightTypeRisk,
		OrganizationID: "org-1",
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	final := waitForStatus(t, storage, insight.ID)
	if final.Status != models.InsightStatusFailed {
		t.Fatalf("final status = %q, want failed", final.Status)
	}
	if !strings.Contains(final.Summary, "backend exploded") {
		t.Errorf("summary should carry the failure: %q", final.Summary)
	}
	if credits.balance != 50-BaseGenerationCost {
		t.Errorf("balance = %d, credits must not be refunded", credits.balance)
	}
}

// The record handed back to the caller must stay frozen in processing state
// while the background pipeline mutates its own copy.
func TestGenerateInsightReturnedRecordIsImmutable(t *testing.T) {
	storage := newFakeInsightStorage()
	credits := &fakeCredits{balance: 100}
	gen := &fakeGenerator{response: "Title: ok\nSummary: done."}
	orchestrator := newTestOrchestrator(storage, credits, &fakeAggregation{}, &fakeKnowledge{}, gen)

	insight, err := orchestrator.GenerateInsight(context.Background(), interfaces.GenerateRequest{
		Category:       models.InsightTypePerformance,
		OrganizationID: "org-1",
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	placeholderTitle := insight.Title

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		// Concurrent reads here race with the pipeline if it shares the
		// caller's struct.
		if insight.Status != models.InsightStatusProcessing {
			t.Fatalf("returned record mutated to %q", insight.Status)
		}
		if insight.Title != placeholderTitle {
			t.Fatalf("returned record title mutated to %q", insight.Title)
		}
		stored, err := storage.GetInsight(context.Background(), insight.ID)
		if err == nil && stored.Status == models.InsightStatusCompleted {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	final := waitForStatus(t, storage, insight.ID)
	if final.Status != models.InsightStatusCompleted {
		t.Fatalf("final status = %q, want completed", final.Status)
	}
	if insight.Status != models.InsightStatusProcessing {
		t.Errorf("returned record = %q, want processing after completion", insight.Status)
	}
	if insight.Title != placeholderTitle {
		t.Errorf("returned record title = %q, want %q", insight.Title, placeholderTitle)
	}
}

func TestGenerateInsightCreditGateOrdering(t *testing.T) {
	storage := newFakeInsightStorage()
	credits := &fakeCredits{balance: 100}
	gen := &fakeGenerator{response: "Title: ok"}
	orchestrator := newTestOrchestrator(storage, credits, &fakeAggregation{}, &fakeKnowledge{}, gen)

	insight, err := orchestrator.GenerateInsight(context.Background(), interfaces.GenerateRequest{
		Category:       models.InsightTypePerformance,
		OrganizationID: "org-1",
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	waitForStatus(t, storage, insight.ID)

	credits.mu.Lock()
	defer credits.mu.Unlock()
	if len(credits.calls) != 2 || credits.calls[0] != "check" || credits.calls[1] != "use" {
		t.Errorf("calls = %v, want check before use", credits.calls)
	}
}

func TestGenerateInsightKnowledgeRetrieval(t *testing.T) {
	storage := newFakeInsightStorage()
	credits := &fakeCredits{balance: 100}
	kb := &fakeKnowledge{context: "historical notes"}
	gen := &fakeGenerator{response: "Title: ok"}
	orchestrator := newTestOrchestrator(storage, credits, &fakeAggregation{}, kb, gen)

	insight, err := orchestrator.GenerateInsight(context.Background(), interfaces.GenerateRequest{
		Category:       models.InsightTypeCompetitive,
		OrganizationID: "org-1",
		Options:        models.GenerationOptions{UseKnowledgeBase: true},
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if insight.CreditCost != BaseGenerationCost+KnowledgeSurcharge {
		t.Errorf("cost = %d, want %d", insight.CreditCost, BaseGenerationCost+KnowledgeSurcharge)
	}

	waitForStatus(t, storage, insight.ID)

	kb.mu.Lock()
	defer kb.mu.Unlock()
	if !kb.called {
		t.Error("knowledge retrieval should run when requested")
	}
	gen.mu.Lock()
	defer gen.mu.Unlock()
	if gen.rag != "historical notes" {
		t.Errorf("rag context = %q", gen.rag)
	}
}

func TestGenerateInsightTimeoutMarksFailed(t *testing.T) {
	storage := newFakeInsightStorage()
	credits := &fakeCredits{balance: 50}
	gen := &fakeGenerator{err: fmt.Errorf("%w: gemini-pro exceeded 2m0s ceiling", llm.ErrGenerationTimeout)}
	orchestrator := newTestOrchestrator(storage, credits, &fakeAggregation{}, &fakeKnowledge{}, gen)

	insight, err := orchestrator.GenerateInsight(context.Background(), interfaces.GenerateRequest{
		Category:       models.InsightTypePerformance,
		OrganizationID: "org-1",
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	final := waitForStatus(t, storage, insight.ID)
	if final.Status != models.InsightStatusFailed {
		t.Fatalf("final status = %q, want failed", final.Status)
	}
	if !strings.Contains(final.Summary, "timed out") {
		t.Errorf("summary should indicate the timeout: %q", final.Summary)
	}
	if credits.balance != 50-BaseGenerationCost {
		t.Errorf("balance = %d, credits must not be refunded on timeout", credits.balance)
	}
}

func TestGenerateInsightAggregationFailure(t *testing.T) {
	storage := newFakeInsightStorage()
	credits := &fakeCredits{balance: 100}
	orchestrator := newTestOrchestrator(storage, credits, &fakeAggregation{err: errors.New("no data")}, &fakeKnowledge{}, &fakeGenerator{response: "x"})

	insight, err := orchestrator.GenerateInsight(context.Background(), interfaces.GenerateRequest{
		Category:       models.InsightTypeOpportunity,
		OrganizationID: "org-1",
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	final := waitForStatus(t, storage, insight.ID)
	if final.Status != models.InsightStatusFailed {
		t.Errorf("final status = %q, want failed", final.Status)
	}
	if !strings.Contains(final.Summary, "no data") {
		t.Errorf("summary = %q", final.Summary)
	}
}

func TestCostFor(t *testing.T) {
	tests := []struct {
		name string
		opts models.GenerationOptions
		want int64
	}{
		{"base", models.GenerationOptions{}, 5},
		{"pro tier", models.GenerationOptions{Model: "gemini-pro"}, 10},
		{"knowledge", models.GenerationOptions{UseKnowledgeBase: true}, 7},
		{"pro and knowledge", models.GenerationOptions{Model: "gemini-pro", UseKnowledgeBase: true}, 12},
		{"flash is base tier", models.GenerationOptions{Model: "gemini-flash"}, 5},
		{"unknown model priced at base", models.GenerationOptions{Model: "mystery"}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CostFor(tt.opts); got != tt.want {
				t.Errorf("CostFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGenerateInsightInvalidCategory(t *testing.T) {
	orchestrator := newTestOrchestrator(newFakeInsightStorage(), &fakeCredits{balance: 100}, &fakeAggregation{}, &fakeKnowledge{}, &fakeGenerator{})

	_, err := orchestrator.GenerateInsight(context.Background(), interfaces.GenerateRequest{
		Category:       "astrology",
		OrganizationID: "org-1",
	})
	if err == nil {
		t.Fatal("expected invalid category to fail")
	}
}

package badger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/luminahq/insight-engine/internal/interfaces"
	"github.com/luminahq/insight-engine/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "badger-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store}
}

func TestInsightLifecycle(t *testing.T) {
	db := newTestDB(t)
	logger := arbor.NewLogger()
	storage := NewInsightStorage(db, logger)
	ctx := context.Background()

	insight := &models.Insight{
		ID:             "ins_test_1",
		Type:           models.InsightTypePerformance,
		Status:         models.InsightStatusProcessing,
		Priority:       models.PriorityMedium,
		Source:         models.SourceOnDemand,
		Title:          "Generating Performance Insight...",
		UserID:         "user_1",
		OrganizationID: "org_1",
	}
	if err := storage.CreateInsight(ctx, insight); err != nil {
		t.Fatalf("Failed to create insight: %v", err)
	}

	// Transition to completed
	insight.Status = models.InsightStatusCompleted
	insight.Title = "Revenue Growth Accelerating"
	insight.Priority = models.PriorityHigh
	if err := storage.UpdateInsight(ctx, insight); err != nil {
		t.Fatalf("Failed to update insight: %v", err)
	}

	got, err := storage.GetInsight(ctx, "ins_test_1")
	if err != nil {
		t.Fatalf("Failed to get insight: %v", err)
	}
	if got.Status != models.InsightStatusCompleted {
		t.Errorf("Expected completed status, got %s", got.Status)
	}
	if got.Title != "Revenue Growth Accelerating" {
		t.Errorf("Unexpected title: %s", got.Title)
	}

	count, err := storage.CountInsightsByType(ctx, "org_1", models.InsightTypePerformance)
	if err != nil {
		t.Fatalf("Failed to count insights: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 performance insight, got %d", count)
	}
}

func TestInsightUpdateMissing(t *testing.T) {
	db := newTestDB(t)
	storage := NewInsightStorage(db, arbor.NewLogger())

	err := storage.UpdateInsight(context.Background(), &models.Insight{ID: "ins_missing"})
	if err == nil {
		t.Fatal("Expected error updating missing insight")
	}
}

func TestListInsightsFiltering(t *testing.T) {
	db := newTestDB(t)
	storage := NewInsightStorage(db, arbor.NewLogger())
	ctx := context.Background()

	for i, typ := range []models.InsightType{
		models.InsightTypePerformance,
		models.InsightTypeRisk,
		models.InsightTypeRisk,
	} {
		insight := &models.Insight{
			ID:             "ins_" + string(rune('a'+i)),
			Type:           typ,
			Status:         models.InsightStatusCompleted,
			OrganizationID: "org_1",
			CreatedAt:      time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := storage.CreateInsight(ctx, insight); err != nil {
			t.Fatalf("Failed to create insight: %v", err)
		}
	}

	risks, err := storage.ListInsights(ctx, "org_1", &interfaces.InsightListOptions{Type: models.InsightTypeRisk})
	if err != nil {
		t.Fatalf("Failed to list insights: %v", err)
	}
	if len(risks) != 2 {
		t.Errorf("Expected 2 risk insights, got %d", len(risks))
	}

	other, err := storage.ListInsights(ctx, "org_2", nil)
	if err != nil {
		t.Fatalf("Failed to list insights: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected no insights for org_2, got %d", len(other))
	}
}

func TestJobRunTimePersistence(t *testing.T) {
	db := newTestDB(t)
	storage := NewJobStorage(db, arbor.NewLogger())
	ctx := context.Background()

	job := &models.InsightJob{
		ID:             "job_test_1",
		UserID:         "user_1",
		OrganizationID: "org_1",
		Name:           "Weekly risk review",
		Type:           models.InsightTypeRisk,
		Frequency:      models.FrequencyWeekly,
		IsActive:       true,
		NextRun:        time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
	}
	if err := storage.CreateJob(ctx, job); err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	lastRun := time.Date(2024, 1, 8, 0, 0, 1, 0, time.UTC)
	nextRun := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if err := storage.UpdateJobRunTimes(ctx, job.ID, lastRun, nextRun); err != nil {
		t.Fatalf("Failed to update run times: %v", err)
	}

	got, err := storage.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if got.LastRun == nil || !got.LastRun.Equal(lastRun) {
		t.Errorf("LastRun not persisted, got %v", got.LastRun)
	}
	if !got.NextRun.Equal(nextRun) {
		t.Errorf("NextRun not persisted, got %v", got.NextRun)
	}

	active, err := storage.FindActiveJobs(ctx)
	if err != nil {
		t.Fatalf("Failed to find active jobs: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("Expected 1 active job, got %d", len(active))
	}

	// Deactivated jobs drop out of the active set but stay stored
	got.IsActive = false
	if err := storage.UpdateJob(ctx, got); err != nil {
		t.Fatalf("Failed to update job: %v", err)
	}
	active, err = storage.FindActiveJobs(ctx)
	if err != nil {
		t.Fatalf("Failed to find active jobs: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("Expected 0 active jobs, got %d", len(active))
	}
	if _, err := storage.GetJob(ctx, job.ID); err != nil {
		t.Errorf("Deactivated job should still exist: %v", err)
	}
}

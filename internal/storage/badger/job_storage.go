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

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) CreateJob(ctx context.Context, job *models.InsightJob) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	if err := s.db.Store().Insert(job.ID, job); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *JobStorage) UpdateJob(ctx context.Context, job *models.InsightJob) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	job.UpdatedAt = time.Now()

	if err := s.db.Store().Update(job.ID, job); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("job not found: %s", job.ID)
		}
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

func (s *JobStorage) DeleteJob(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.InsightJob{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, id string) (*models.InsightJob, error) {
	var job models.InsightJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("job not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) ListJobs(ctx context.Context, orgID string) ([]*models.InsightJob, error) {
	var jobs []models.InsightJob
	query := badgerhold.Where("OrganizationID").Eq(orgID).SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.InsightJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) FindActiveJobs(ctx context.Context) ([]*models.InsightJob, error) {
	var jobs []models.InsightJob
	if err := s.db.Store().Find(&jobs, badgerhold.Where("IsActive").Eq(true)); err != nil {
		return nil, fmt.Errorf("failed to find active jobs: %w", err)
	}

	result := make([]*models.InsightJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) UpdateJobRunTimes(ctx context.Context, id string, lastRun time.Time, nextRun time.Time) error {
	var job models.InsightJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("job not found: %s", id)
		}
		return fmt.Errorf("failed to get job: %w", err)
	}

	job.LastRun = &lastRun
	job.NextRun = nextRun
	job.UpdatedAt = time.Now()

	if err := s.db.Store().Update(id, &job); err != nil {
		return fmt.Errorf("failed to update job run times: %w", err)
	}
	return nil
}

func (s *JobStorage) CountJobsByOrg(ctx context.Context, orgID string) (int, error) {
	count, err := s.db.Store().Count(&models.InsightJob{}, badgerhold.Where("OrganizationID").Eq(orgID))
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return int(count), nil
}

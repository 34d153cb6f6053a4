// Package scheduler owns recurring insight jobs and the in-process timer
// registry that fires them. The registry invariant: at most one live timer
// per job id, enforced by stopping any existing timer before arming a new
// one under the registry mutex.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/luminahq/insight-engine/internal/common"
	"github.com/luminahq/insight-engine/internal/interfaces"
	"github.com/luminahq/insight-engine/internal/models"
	"github.com/luminahq/insight-engine/internal/services/insights"
)

// Service implements interfaces.SchedulerService
type Service struct {
	jobs     interfaces.JobStorage
	credits  interfaces.CreditService
	pipeline interfaces.InsightService
	events   interfaces.EventService
	validate *validator.Validate
	logger   arbor.ILogger
	config   *common.SchedulerConfig

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// NewService creates the scheduler. MaxJobsPerOrg <= 0 disables the per-org
// job cap.
func NewService(
	jobs interfaces.JobStorage,
	credits interfaces.CreditService,
	pipeline interfaces.InsightService,
	events interfaces.EventService,
	config *common.SchedulerConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		jobs:     jobs,
		credits:  credits,
		pipeline: pipeline,
		events:   events,
		validate: validator.New(),
		logger:   logger,
		config:   config,
		timers:   make(map[string]*time.Timer),
	}
}

// Initialize rebuilds timers for all persisted active jobs. Jobs whose next
// run passed while the process was down get a fresh next run computed from
// their schedule.
func (s *Service) Initialize(ctx context.Context) error {
	active, err := s.jobs.FindActiveJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active jobs: %w", err)
	}

	now := time.Now()
	for _, job := range active {
		nextRun := job.NextRun
		if !nextRun.After(now) {
			frequency, cronExpr := job.Schedule()
			nextRun, err = common.NextRunTime(frequency, cronExpr, now)
			if err != nil {
				s.logger.Warn().
					Err(err).
					Str("job_id", job.ID).
					Msg("Skipping job with invalid schedule")
				continue
			}
			lastRun := now
			if job.LastRun != nil {
				lastRun = *job.LastRun
			}
			if err := s.jobs.UpdateJobRunTimes(ctx, job.ID, lastRun, nextRun); err != nil {
				s.logger.Warn().
					Err(err).
					Str("job_id", job.ID).
					Msg("Failed to persist recomputed next run")
			}
		}
		s.armTimer(job.ID, nextRun)
	}

	s.logger.Info().
		Int("active_jobs", len(active)).
		Msg("Scheduler initialized")

	return nil
}

// Stop cancels every live timer. Firings already in flight finish on their own.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}

	s.logger.Info().Msg("Scheduler stopped")
}

// CreateJob validates, charges the creation cost, persists the job, and arms
// its timer when active.
func (s *Service) CreateJob(ctx context.Context, req interfaces.CreateJobRequest) (*models.InsightJob, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid job request: %w", err)
	}

	if s.config.MaxJobsPerOrg > 0 {
		count, err := s.jobs.CountJobsByOrg(ctx, req.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("failed to count jobs: %w", err)
		}
		if count >= s.config.MaxJobsPerOrg {
			return nil, fmt.Errorf("organization %s reached the job limit of %d", req.OrganizationID, s.config.MaxJobsPerOrg)
		}
	}

	available, err := s.credits.HasAvailable(ctx, req.OrganizationID, insights.JobCreationCost)
	if err != nil {
		return nil, fmt.Errorf("credit check failed: %w", err)
	}
	if !available {
		return nil, fmt.Errorf("organization %s needs %d credit to create a job: %w",
			req.OrganizationID, insights.JobCreationCost, insights.ErrInsufficientCredits)
	}

	now := time.Now()
	job := &models.InsightJob{
		ID:             common.NewJobID(),
		UserID:         req.UserID,
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Description:    req.Description,
		Type:           req.Type,
		Frequency:      req.Frequency,
		CronExpression: req.CronExpression,
		Options:        req.Options,
		TargetEntities: req.TargetEntities,
		IsActive:       req.IsActive,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}

	frequency, cronExpr := job.Schedule()
	job.NextRun, err = common.NextRunTime(frequency, cronExpr, now)
	if err != nil {
		return nil, err
	}

	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	if err := s.credits.Use(ctx, req.OrganizationID, insights.JobCreationCost, "scheduled job creation", job.ID); err != nil {
		if delErr := s.jobs.DeleteJob(ctx, job.ID); delErr != nil {
			s.logger.Warn().
				Err(delErr).
				Str("job_id", job.ID).
				Msg("Failed to remove job after charge failure")
		}
		return nil, fmt.Errorf("credit deduction failed: %w", err)
	}

	if job.IsActive {
		s.armTimer(job.ID, job.NextRun)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("org_id", job.OrganizationID).
		Str("next_run", job.NextRun.Format(time.RFC3339)).
		Bool("active", job.IsActive).
		Msg("Job created")

	return job, nil
}

// UpdateJob patches a job. The next run is recomputed only when the schedule
// itself changed; unrelated edits keep the pending firing time.
func (s *Service) UpdateJob(ctx context.Context, id string, patch interfaces.UpdateJobRequest) (*models.InsightJob, error) {
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	scheduleChanged := false
	if patch.Name != nil {
		job.Name = *patch.Name
	}
	if patch.Description != nil {
		job.Description = *patch.Description
	}
	if patch.Type != nil {
		job.Type = *patch.Type
	}
	if patch.Frequency != nil {
		job.Frequency = *patch.Frequency
		scheduleChanged = true
	}
	if patch.CronExpression != nil {
		job.CronExpression = *patch.CronExpression
		scheduleChanged = true
	}
	if patch.Options != nil {
		job.Options = *patch.Options
	}
	if patch.TargetEntities != nil {
		job.TargetEntities = *patch.TargetEntities
	}
	if patch.IsActive != nil {
		job.IsActive = *patch.IsActive
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	if scheduleChanged {
		frequency, cronExpr := job.Schedule()
		job.NextRun, err = common.NextRunTime(frequency, cronExpr, time.Now())
		if err != nil {
			return nil, err
		}
	}

	job.UpdatedAt = time.Now().UTC()
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	if job.IsActive {
		s.armTimer(job.ID, job.NextRun)
	} else {
		s.cancelTimer(job.ID)
	}

	return job, nil
}

// DeleteJob cancels the timer and removes the job
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	s.cancelTimer(id)
	return s.jobs.DeleteJob(ctx, id)
}

// GetJob returns one job by id
func (s *Service) GetJob(ctx context.Context, id string) (*models.InsightJob, error) {
	return s.jobs.GetJob(ctx, id)
}

// ListJobs returns all jobs for an organization
func (s *Service) ListJobs(ctx context.Context, orgID string) ([]*models.InsightJob, error) {
	return s.jobs.ListJobs(ctx, orgID)
}

// RunJobNow fires the job immediately and updates run bookkeeping as if the
// timer had fired.
func (s *Service) RunJobNow(ctx context.Context, id string) (string, error) {
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return "", err
	}

	insightID, err := s.execute(ctx, job)
	if err != nil {
		return "", err
	}

	if rescheduleErr := s.recordRun(ctx, job); rescheduleErr != nil {
		s.logger.Warn().
			Err(rescheduleErr).
			Str("job_id", job.ID).
			Msg("Failed to update run bookkeeping")
	}

	return insightID, nil
}

// ActivateJob enables the job and arms its timer at a freshly computed next run
func (s *Service) ActivateJob(ctx context.Context, id string) (*models.InsightJob, error) {
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	frequency, cronExpr := job.Schedule()
	nextRun, err := common.NextRunTime(frequency, cronExpr, time.Now())
	if err != nil {
		return nil, err
	}

	job.IsActive = true
	job.NextRun = nextRun
	job.UpdatedAt = time.Now().UTC()
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	s.armTimer(job.ID, job.NextRun)
	return job, nil
}

// DeactivateJob disables the job and cancels its timer. The configuration is
// retained so the job can be reactivated later.
func (s *Service) DeactivateJob(ctx context.Context, id string) (*models.InsightJob, error) {
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	job.IsActive = false
	job.UpdatedAt = time.Now().UTC()
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	s.cancelTimer(job.ID)
	return job, nil
}

// armTimer registers a timer for the job, stopping any existing one first.
// No-op after Stop.
func (s *Service) armTimer(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if existing, ok := s.timers[id]; ok {
		existing.Stop()
	}

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	s.timers[id] = time.AfterFunc(delay, func() { s.fire(id) })
}

func (s *Service) cancelTimer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

// fire runs one scheduled firing. Errors are logged and published, never
// propagated; the job is always rescheduled so one bad run cannot stop
// future firings.
func (s *Service) fire(id string) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job_id", id).
				Msg(fmt.Sprintf("Panic during scheduled firing: %v", r))
		}
	}()

	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("job_id", id).
			Msg("Scheduled job no longer exists")
		s.cancelTimer(id)
		return
	}
	if !job.IsActive {
		s.cancelTimer(id)
		return
	}

	s.publish(ctx, interfaces.EventJobFired, job, "")

	if _, err := s.execute(ctx, job); err != nil {
		s.logger.Warn().
			Err(err).
			Str("job_id", job.ID).
			Msg("Scheduled firing failed")
		s.publish(ctx, interfaces.EventJobFailed, job, err.Error())
	}

	if err := s.recordRun(ctx, job); err != nil {
		// The timer behind this entry already fired; drop it so the
		// registry does not report a job that will never fire again.
		s.cancelTimer(job.ID)
		s.logger.Error().
			Err(err).
			Str("job_id", job.ID).
			Msg("Failed to reschedule job")
	}
}

// execute triggers the generation pipeline for one job
func (s *Service) execute(ctx context.Context, job *models.InsightJob) (string, error) {
	var entityIDs []string
	entityType := ""
	for _, entity := range job.TargetEntities {
		entityIDs = append(entityIDs, entity.ID)
		if entityType == "" {
			entityType = entity.Type
		}
	}

	insight, err := s.pipeline.GenerateInsight(ctx, interfaces.GenerateRequest{
		Category:         job.Type,
		UserID:           job.UserID,
		OrganizationID:   job.OrganizationID,
		TargetEntityIDs:  entityIDs,
		TargetEntityType: entityType,
		TimeframeDays:    s.config.DefaultTimeframe,
		Source:           models.SourceScheduled,
		Options:          job.Options,
	})
	if err != nil {
		return "", err
	}
	return insight.ID, nil
}

// recordRun persists the run times and re-arms the timer for the next firing
func (s *Service) recordRun(ctx context.Context, job *models.InsightJob) error {
	now := time.Now()
	frequency, cronExpr := job.Schedule()
	nextRun, err := common.NextRunTime(frequency, cronExpr, now)
	if err != nil {
		return err
	}

	if err := s.jobs.UpdateJobRunTimes(ctx, job.ID, now.UTC(), nextRun); err != nil {
		return err
	}

	if job.IsActive {
		s.armTimer(job.ID, nextRun)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, job *models.InsightJob, detail string) {
	if s.events == nil {
		return
	}
	payload := map[string]any{
		"job_id":   job.ID,
		"org_id":   job.OrganizationID,
		"category": string(job.Type),
	}
	if detail != "" {
		payload["error"] = detail
	}
	_ = s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload})
}

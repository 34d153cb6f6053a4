package interfaces

import (
	"context"

	"github.com/luminahq/insight-engine/internal/models"
)

// CreateJobRequest describes a new recurring insight job
type CreateJobRequest struct {
	UserID         string              `validate:"required"`
	OrganizationID string              `validate:"required"`
	Name           string              `validate:"required,max=120"`
	Description    string              `validate:"max=500"`
	Type           models.InsightType  `validate:"required"`
	Frequency      models.JobFrequency `validate:"omitempty,oneof=daily weekly monthly"`
	CronExpression string              `validate:"omitempty"`
	Options        models.GenerationOptions
	TargetEntities []models.TargetEntity
	IsActive       bool
}

// UpdateJobRequest patches an existing job. Nil pointers leave fields unchanged.
type UpdateJobRequest struct {
	Name           *string
	Description    *string
	Type           *models.InsightType
	Frequency      *models.JobFrequency
	CronExpression *string
	Options        *models.GenerationOptions
	TargetEntities *[]models.TargetEntity
	IsActive       *bool
}

// SchedulerService owns the set of recurring jobs and their live timers
type SchedulerService interface {
	// Initialize rebuilds timers from persisted active jobs. Called once at
	// process start.
	Initialize(ctx context.Context) error

	// Stop cancels all live timers.
	Stop()

	CreateJob(ctx context.Context, req CreateJobRequest) (*models.InsightJob, error)
	UpdateJob(ctx context.Context, id string, patch UpdateJobRequest) (*models.InsightJob, error)
	DeleteJob(ctx context.Context, id string) error
	GetJob(ctx context.Context, id string) (*models.InsightJob, error)
	ListJobs(ctx context.Context, orgID string) ([]*models.InsightJob, error)

	// RunJobNow executes the job immediately, bypassing its timer, and updates
	// run bookkeeping as if it had fired naturally. Returns the generated
	// insight's id.
	RunJobNow(ctx context.Context, id string) (string, error)

	ActivateJob(ctx context.Context, id string) (*models.InsightJob, error)
	DeactivateJob(ctx context.Context, id string) (*models.InsightJob, error)
}

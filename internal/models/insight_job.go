package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/luminahq/insight-engine/internal/common"
)

// JobFrequency represents a named recurrence rule
type JobFrequency string

// JobFrequency constants
const (
	FrequencyDaily   JobFrequency = "daily"
	FrequencyWeekly  JobFrequency = "weekly"
	FrequencyMonthly JobFrequency = "monthly"
)

// IsValidFrequency checks if a given JobFrequency is one of the valid constants
func IsValidFrequency(f JobFrequency) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	default:
		return false
	}
}

// GenerationOptions are pass-through settings for one insight generation
type GenerationOptions struct {
	Model            string  `json:"model"`       // Model alias; empty uses the configured default
	Temperature      float32 `json:"temperature"` // 0 uses the provider default
	MaxTokens        int     `json:"max_tokens"`  // 0 uses the provider default
	UseKnowledgeBase bool    `json:"use_knowledge_base"`
	CustomPrompt     string  `json:"custom_prompt,omitempty"`
}

// TargetEntity narrows an analysis to a specific entity (product, region, competitor)
type TargetEntity struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// InsightJob represents a persisted recurring configuration that triggers the
// generation pipeline on a schedule.
type InsightJob struct {
	ID             string `json:"id" badgerhold:"key"`
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`

	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Type           InsightType       `json:"type"`
	Frequency      JobFrequency      `json:"frequency,omitempty"`
	CronExpression string            `json:"cron_expression,omitempty"` // Wins over Frequency when set
	Options        GenerationOptions `json:"options"`
	TargetEntities []TargetEntity    `json:"target_entities,omitempty"`
	IsActive       bool              `json:"is_active"`

	// Runtime bookkeeping, recomputed after every firing
	LastRun *time.Time `json:"last_run,omitempty"`
	NextRun time.Time  `json:"next_run"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate validates the job configuration.
// A schedule (frequency or cron expression) is always required regardless of
// IsActive, so a deactivated job can be reactivated without reconfiguration.
func (j *InsightJob) Validate() error {
	if j.ID == "" {
		return errors.New("job ID is required")
	}
	if j.Name == "" {
		return errors.New("job name is required")
	}
	if j.OrganizationID == "" {
		return errors.New("job organization ID is required")
	}
	if !IsValidInsightType(j.Type) {
		return fmt.Errorf("invalid insight type: %s (must be one of: performance, competitive, opportunity, risk)", j.Type)
	}

	if j.CronExpression != "" {
		if err := common.ValidateCronExpression(j.CronExpression); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", j.CronExpression, err)
		}
		return nil
	}

	if j.Frequency == "" {
		return errors.New("job frequency or cron expression is required")
	}
	if !IsValidFrequency(j.Frequency) {
		return fmt.Errorf("invalid frequency: %s (must be one of: daily, weekly, monthly)", j.Frequency)
	}

	return nil
}

// Schedule returns the effective schedule pair for next-run computation.
func (j *InsightJob) Schedule() (frequency, cronExpr string) {
	return string(j.Frequency), j.CronExpression
}

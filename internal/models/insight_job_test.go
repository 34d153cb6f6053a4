package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validJob() *InsightJob {
	return &InsightJob{
		ID:             "job_test",
		UserID:         "user_1",
		OrganizationID: "org_1",
		Name:           "Daily performance review",
		Type:           InsightTypePerformance,
		Frequency:      FrequencyDaily,
	}
}

func TestInsightJobValidate(t *testing.T) {
	assert.NoError(t, validJob().Validate())
}

func TestInsightJobValidateMissingFields(t *testing.T) {
	job := validJob()
	job.ID = ""
	assert.Error(t, job.Validate())

	job = validJob()
	job.Name = ""
	assert.Error(t, job.Validate())

	job = validJob()
	job.OrganizationID = ""
	assert.Error(t, job.Validate())

	job = validJob()
	job.Type = "unknown"
	assert.Error(t, job.Validate())

	job = validJob()
	job.Frequency = ""
	assert.Error(t, job.Validate())

	job = validJob()
	job.Frequency = "hourly"
	assert.Error(t, job.Validate())
}

func TestInsightJobValidateCronExpression(t *testing.T) {
	job := validJob()
	job.Frequency = ""
	job.CronExpression = "0 6 * * 1"
	assert.NoError(t, job.Validate())

	job.CronExpression = "not-cron"
	assert.Error(t, job.Validate())
}

func TestInsightJobCronWinsOverFrequency(t *testing.T) {
	// A job may carry both; the cron expression takes precedence and a bad
	// frequency value is not reachable.
	job := validJob()
	job.CronExpression = "0 0 * * *"
	job.Frequency = "hourly"
	assert.NoError(t, job.Validate())

	freq, cron := job.Schedule()
	assert.Equal(t, "hourly", freq)
	assert.Equal(t, "0 0 * * *", cron)
}

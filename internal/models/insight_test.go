package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		input string
		want  InsightPriority
	}{
		{"low", PriorityLow},
		{"LOW", PriorityLow},
		{"medium", PriorityMedium},
		{"high", PriorityHigh},
		{"High", PriorityHigh},
		{"HIGH", PriorityHigh},
		{"critical", PriorityCritical},
		{"  Critical  ", PriorityCritical},
		{"", PriorityMedium},
		{"urgent", PriorityMedium},
		{"nonsense", PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePriority(tt.input))
		})
	}
}

func TestIsValidInsightType(t *testing.T) {
	assert.True(t, IsValidInsightType(InsightTypePerformance))
	assert.True(t, IsValidInsightType(InsightTypeCompetitive))
	assert.True(t, IsValidInsightType(InsightTypeOpportunity))
	assert.True(t, IsValidInsightType(InsightTypeRisk))
	assert.False(t, IsValidInsightType("sales"))
	assert.False(t, IsValidInsightType(""))
}

func TestInsightTypeDisplayName(t *testing.T) {
	assert.Equal(t, "Performance", InsightTypePerformance.DisplayName())
	assert.Equal(t, "Risk", InsightTypeRisk.DisplayName())
	assert.Equal(t, "Custom", InsightType("custom").DisplayName())
}

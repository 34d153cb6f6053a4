package models

import (
	"strings"
	"time"
)

// InsightType represents the analysis category of an insight
type InsightType string

// InsightType constants
const (
	InsightTypePerformance InsightType = "performance"
	InsightTypeCompetitive InsightType = "competitive"
	InsightTypeOpportunity InsightType = "opportunity"
	InsightTypeRisk        InsightType = "risk"
)

// IsValidInsightType checks if a given InsightType is one of the valid constants
func IsValidInsightType(t InsightType) bool {
	switch t {
	case InsightTypePerformance, InsightTypeCompetitive, InsightTypeOpportunity, InsightTypeRisk:
		return true
	default:
		return false
	}
}

// DisplayName returns the human-readable category name used in titles and prompts
func (t InsightType) DisplayName() string {
	switch t {
	case InsightTypePerformance:
		return "Performance"
	case InsightTypeCompetitive:
		return "Competitive"
	case InsightTypeOpportunity:
		return "Opportunity"
	case InsightTypeRisk:
		return "Risk"
	default:
		if t == "" {
			return "General"
		}
		return strings.ToUpper(string(t[:1])) + string(t[1:])
	}
}

// InsightStatus represents the lifecycle state of an insight
type InsightStatus string

// An insight is created processing and transitions exactly once to
// completed or failed.
const (
	InsightStatusProcessing InsightStatus = "processing"
	InsightStatusCompleted  InsightStatus = "completed"
	InsightStatusFailed     InsightStatus = "failed"
)

// InsightPriority represents the urgency assigned to an insight or recommendation
type InsightPriority string

// InsightPriority constants
const (
	PriorityLow      InsightPriority = "low"
	PriorityMedium   InsightPriority = "medium"
	PriorityHigh     InsightPriority = "high"
	PriorityCritical InsightPriority = "critical"
)

// ParsePriority maps a free-text priority token to an InsightPriority.
// Matching is case-insensitive; unrecognized or empty input maps to medium.
func ParsePriority(s string) InsightPriority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow
	case "medium":
		return PriorityMedium
	case "high":
		return PriorityHigh
	case "critical":
		return PriorityCritical
	default:
		return PriorityMedium
	}
}

// InsightSource identifies how a generation was triggered
type InsightSource string

// InsightSource constants
const (
	SourceOnDemand  InsightSource = "on_demand"
	SourceScheduled InsightSource = "scheduled"
)

// ChangeDirection indicates the trend of a metric
type ChangeDirection string

// ChangeDirection constants
const (
	ChangeUp     ChangeDirection = "up"
	ChangeDown   ChangeDirection = "down"
	ChangeStable ChangeDirection = "stable"
)

// Metric is a single measurement extracted from the analysis text
type Metric struct {
	Name            string          `json:"name"`
	Value           float64         `json:"value"`            // Defaults to 0 when unparsable
	Change          *float64        `json:"change,omitempty"` // Percentage change when present
	ChangeDirection ChangeDirection `json:"change_direction"`
	Description     string          `json:"description"` // Original source line, kept verbatim
}

// Recommendation is a suggested action extracted from the analysis text
type Recommendation struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    InsightPriority `json:"priority"`
}

// VisualizationType classifies a suggested visualization
type VisualizationType string

// VisualizationType constants
const (
	VisualizationChart      VisualizationType = "chart"
	VisualizationTable      VisualizationType = "table"
	VisualizationIndicator  VisualizationType = "indicator"
	VisualizationComparison VisualizationType = "comparison"
)

// VisualizationSuggestion is a rendering hint extracted from the analysis text
type VisualizationSuggestion struct {
	Type        VisualizationType `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
}

// Insight represents a persisted, typed result of one generation pipeline run
type Insight struct {
	ID       string          `json:"id" badgerhold:"key"`
	Type     InsightType     `json:"type"`
	Status   InsightStatus   `json:"status"`
	Priority InsightPriority `json:"priority"`
	Source   InsightSource   `json:"source"`

	Title           string                    `json:"title"`
	Summary         string                    `json:"summary"`
	Metrics         []Metric                  `json:"metrics"`
	Recommendations []Recommendation          `json:"recommendations"`
	Visualizations  []VisualizationSuggestion `json:"visualizations"`

	// Provenance
	Model          string `json:"model"`
	RawAnalysis    string `json:"raw_analysis"` // Unparsed completion, retained for audit
	AnalysisTimeMs int64  `json:"analysis_time_ms"`
	CreditCost     int64  `json:"credit_cost"`

	// Ownership
	UserID            string   `json:"user_id"`
	OrganizationID    string   `json:"organization_id"`
	RelatedEntityIDs  []string `json:"related_entity_ids,omitempty"`
	RelatedEntityType string   `json:"related_entity_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

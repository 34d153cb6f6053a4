// Package prompt builds the fixed instructional prompts fed to the
// generation backends. Section headings here must stay in lockstep with the
// response parser's header tokens.
package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/luminahq/insight-engine/internal/models"
)

// outputSections is the mandatory section list every template requests.
const outputSections = `Structure your response with the following sections:
Title: A concise, specific headline for this insight
Summary: A short executive summary of the key finding
Priority: One of LOW, MEDIUM, HIGH, or CRITICAL
Key Metrics: Bulleted metrics in "name: description" form with numbers and percentage changes
Analysis: Your detailed reasoning
Recommendations: Numbered, actionable recommendations, each with a priority in parentheses
Visualization Suggestions: Bulleted chart, table, indicator, or comparison suggestions`

// directives holds the five numbered analysis instructions per category.
var directives = map[models.InsightType]string{
	models.InsightTypePerformance: `You are a business performance analyst. Analyze the provided business data and produce a performance insight.
1. Evaluate revenue, sales volume, and margin trends over the reporting window.
2. Identify the strongest and weakest performing products or segments.
3. Compare current performance against the prior period and quantify the change.
4. Flag any anomalies or sudden shifts in the underlying metrics.
5. Assess operational efficiency indicators such as inventory turnover and fulfilment.`,

	models.InsightTypeCompetitive: `You are a competitive intelligence analyst. Analyze the provided market data and produce a competitive insight.
1. Position the organization against the named competitors on price and share.
2. Identify competitor moves, launches, or pricing changes in the window.
3. Evaluate relative strengths and weaknesses by segment.
4. Quantify market share shifts and their likely drivers.
5. Highlight defensible advantages and exposed positions.`,

	models.InsightTypeOpportunity: `You are a growth strategist. Analyze the provided business data and produce an opportunity insight.
1. Identify under-served segments, channels, or product gaps in the data.
2. Estimate the addressable upside of each candidate opportunity.
3. Rank opportunities by effort versus expected return.
4. Identify cross-sell, upsell, or bundling potential in current sales patterns.
5. Note timing factors that make an opportunity act-now or wait.`,

	models.InsightTypeRisk: `You are a business risk analyst. Analyze the provided business data and produce a risk insight.
1. Identify concentration risks across customers, suppliers, and products.
2. Evaluate cash-flow, margin, and inventory exposure trends.
3. Flag compliance, contractual, or operational risks visible in the data.
4. Quantify the potential impact and likelihood of each identified risk.
5. Distinguish acute risks needing immediate action from chronic ones to monitor.`,
}

// Build converts a category and its gathered context data into one prompt.
// A non-empty customPrompt replaces the category template; the serialized
// context data is appended in both cases. Pure function of its inputs.
func Build(category models.InsightType, contextData any, customPrompt string) (string, error) {
	serialized, err := json.MarshalIndent(contextData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize context data: %w", err)
	}

	if customPrompt != "" {
		return customPrompt + "\n\nContext Data:\n" + string(serialized), nil
	}

	directive, ok := directives[category]
	if !ok {
		return "", fmt.Errorf("no prompt template for category %q", category)
	}

	return directive + "\n\n" + outputSections + "\n\nContext Data:\n" + string(serialized), nil
}

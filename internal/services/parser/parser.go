// Package parser turns a backend's free-text completion into a typed
// analysis. Parsing is total: malformed or missing sections degrade to
// category-derived defaults, never to an error.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/luminahq/insight-engine/internal/models"
)

// ParsedAnalysis is the structured result extracted from one completion
type ParsedAnalysis struct {
	Title           string
	Summary         string
	Priority        models.InsightPriority
	Metrics         []models.Metric
	Recommendations []models.Recommendation
	Visualizations  []models.VisualizationSuggestion
}

// section identifiers tracked by the line state machine
type section int

const (
	sectionNone section = iota
	sectionTitle
	sectionSummary
	sectionPriority
	sectionMetrics
	sectionAnalysis
	sectionRecommendations
	sectionVisualizations
)

// headerTokens maps the lowercase header token to its section. Tokens must
// stay in lockstep with the prompt builder's requested section list.
var headerTokens = map[string]section{
	"title":                     sectionTitle,
	"summary":                   sectionSummary,
	"priority":                  sectionPriority,
	"key metrics":               sectionMetrics,
	"metrics":                   sectionMetrics,
	"analysis":                  sectionAnalysis,
	"recommendations":           sectionRecommendations,
	"visualization suggestions": sectionVisualizations,
	"visualizations":            sectionVisualizations,
}

var (
	decimalRegex        = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)
	percentRegex        = regexp.MustCompile(`([-+]?\d+(?:\.\d+)?)\s*%`)
	inlinePriorityRegex = regexp.MustCompile(`(?i)\(\s*(low|medium|high|critical)\s+priority\s*\)`)
	numberedItemRegex   = regexp.MustCompile(`^\d+[.)]\s+`)
)

// Parse extracts the structured analysis from a completion. For any input,
// including the empty string or text missing every expected header, the
// result is fully populated with defaults for whatever could not be found.
func Parse(text string, category models.InsightType) ParsedAnalysis {
	sections := splitSections(text)

	result := ParsedAnalysis{
		Title:           firstLine(sections[sectionTitle]),
		Summary:         strings.TrimSpace(strings.Join(sections[sectionSummary], "\n")),
		Priority:        parsePrioritySection(sections[sectionPriority]),
		Metrics:         parseMetrics(sections[sectionMetrics]),
		Recommendations: parseRecommendations(sections[sectionRecommendations]),
		Visualizations:  parseVisualizations(sections[sectionVisualizations]),
	}

	if result.Title == "" {
		result.Title = category.DisplayName() + " Insight"
	}
	if result.Summary == "" {
		result.Summary = "Automated " + strings.ToLower(category.DisplayName()) + " analysis completed."
	}

	return result
}

// splitSections runs the state machine: each line either switches the current
// section (header match) or accumulates into it.
func splitSections(text string) map[section][]string {
	sections := make(map[section][]string)
	current := sectionNone

	for _, rawLine := range strings.Split(text, "\n") {
		if sec, rest, ok := matchHeader(rawLine); ok {
			current = sec
			if rest != "" {
				sections[current] = append(sections[current], rest)
			}
			continue
		}

		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}
		if current != sectionNone {
			sections[current] = append(sections[current], line)
		}
	}

	return sections
}

// matchHeader reports whether a line is a section header, returning the
// section and any inline content following the colon. Matching is
// case-insensitive, tolerates markdown decoration and an optional trailing
// colon.
func matchHeader(line string) (section, string, bool) {
	stripped := strings.TrimSpace(line)
	stripped = strings.Trim(stripped, "#*_ \t")
	if stripped == "" {
		return sectionNone, "", false
	}

	name := stripped
	rest := ""
	if idx := strings.Index(stripped, ":"); idx >= 0 {
		name = stripped[:idx]
		rest = strings.TrimSpace(strings.Trim(stripped[idx+1:], "*_ \t"))
	}

	name = strings.Trim(strings.TrimSpace(name), "*_ \t")
	sec, ok := headerTokens[strings.ToLower(name)]
	if !ok {
		return sectionNone, "", false
	}
	return sec, rest, true
}

func firstLine(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Trim(strings.TrimSpace(lines[0]), `"'`)
}

func parsePrioritySection(lines []string) models.InsightPriority {
	for _, line := range lines {
		for _, word := range strings.Fields(line) {
			token := strings.Trim(word, ".,;:()")
			switch strings.ToLower(token) {
			case "low", "medium", "high", "critical":
				return models.ParsePriority(token)
			}
		}
	}
	return models.PriorityMedium
}

// stripBullet removes a leading bullet or dash marker, reporting whether one
// was present.
func stripBullet(line string) (string, bool) {
	for _, marker := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimPrefix(line, marker)), true
		}
	}
	if line == "-" || line == "*" {
		return "", true
	}
	return line, false
}

func parseMetrics(lines []string) []models.Metric {
	metrics := make([]models.Metric, 0, len(lines))

	for _, line := range lines {
		item, _ := stripBullet(line)
		if item == "" {
			continue
		}

		name, description, found := strings.Cut(item, ":")
		name = strings.TrimSpace(name)
		description = strings.TrimSpace(description)
		if !found || name == "" || description == "" {
			// Graceful degradation: keep the raw line rather than dropping it
			metrics = append(metrics, models.Metric{
				Name:            "Metric",
				Value:           0,
				ChangeDirection: models.ChangeStable,
				Description:     item,
			})
			continue
		}

		metric := models.Metric{
			Name:            name,
			ChangeDirection: models.ChangeStable,
			Description:     description,
		}

		if match := decimalRegex.FindString(description); match != "" {
			if v, err := strconv.ParseFloat(match, 64); err == nil {
				metric.Value = v
			}
		}
		if match := percentRegex.FindStringSubmatch(description); len(match) > 1 {
			if v, err := strconv.ParseFloat(match[1], 64); err == nil {
				metric.Change = &v
			}
		}

		metric.ChangeDirection = deriveDirection(metric.Change, description)
		metrics = append(metrics, metric)
	}

	return metrics
}

// deriveDirection prefers the sign of the parsed change; otherwise keyword
// presence decides, defaulting to stable.
func deriveDirection(change *float64, description string) models.ChangeDirection {
	if change != nil {
		switch {
		case *change > 0:
			return models.ChangeUp
		case *change < 0:
			return models.ChangeDown
		default:
			return models.ChangeStable
		}
	}

	lower := strings.ToLower(description)
	if strings.Contains(lower, "up") || strings.Contains(lower, "increase") || strings.Contains(lower, "grew") {
		return models.ChangeUp
	}
	if strings.Contains(lower, "down") || strings.Contains(lower, "decrease") || strings.Contains(lower, "decline") {
		return models.ChangeDown
	}
	return models.ChangeStable
}

func parseRecommendations(lines []string) []models.Recommendation {
	items := collectItems(lines)
	recommendations := make([]models.Recommendation, 0, len(items))

	for _, item := range items {
		priority := models.PriorityMedium
		if match := inlinePriorityRegex.FindStringSubmatch(item); len(match) > 1 {
			priority = models.ParsePriority(match[1])
			item = strings.TrimSpace(inlinePriorityRegex.ReplaceAllString(item, ""))
		}
		if item == "" {
			continue
		}

		title, description, found := strings.Cut(item, ":")
		title = strings.TrimSpace(title)
		description = strings.TrimSpace(description)
		if !found || title == "" || description == "" {
			recommendations = append(recommendations, models.Recommendation{
				Title:       truncate(item, 40),
				Description: item,
				Priority:    priority,
			})
			continue
		}

		recommendations = append(recommendations, models.Recommendation{
			Title:       title,
			Description: description,
			Priority:    priority,
		})
	}

	return recommendations
}

func parseVisualizations(lines []string) []models.VisualizationSuggestion {
	items := collectItems(lines)
	visualizations := make([]models.VisualizationSuggestion, 0, len(items))

	for _, item := range items {
		title, description, found := strings.Cut(item, ":")
		title = strings.TrimSpace(title)
		description = strings.TrimSpace(description)
		if !found || description == "" {
			title = truncate(item, 40)
			description = item
		}

		visualizations = append(visualizations, models.VisualizationSuggestion{
			Type:        inferVisualizationType(item),
			Title:       title,
			Description: description,
		})
	}

	return visualizations
}

// inferVisualizationType classifies by keyword; anything unrecognized is a chart
func inferVisualizationType(text string) models.VisualizationType {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "table") || strings.Contains(lower, "grid"):
		return models.VisualizationTable
	case strings.Contains(lower, "comparison") || strings.Contains(lower, "versus") || strings.Contains(lower, "vs"):
		return models.VisualizationComparison
	case strings.Contains(lower, "indicator") || strings.Contains(lower, "gauge") || strings.Contains(lower, "meter"):
		return models.VisualizationIndicator
	default:
		return models.VisualizationChart
	}
}

// collectItems splits section lines into items on numbered or bulleted
// markers; unmarked lines continue the preceding item.
func collectItems(lines []string) []string {
	var items []string

	for _, line := range lines {
		item, bulleted := stripBullet(line)
		numbered := numberedItemRegex.MatchString(item)
		if numbered {
			item = strings.TrimSpace(numberedItemRegex.ReplaceAllString(item, ""))
		}

		if item == "" {
			continue
		}

		if bulleted || numbered || len(items) == 0 {
			items = append(items, item)
		} else {
			items[len(items)-1] += " " + item
		}
	}

	return items
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

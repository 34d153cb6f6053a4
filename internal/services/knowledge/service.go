// Package knowledge retrieves reference text from the organization's
// document store. Retrieval is best-effort: every internal failure is
// swallowed and reported as an empty result so it can never fail a
// generation.
package knowledge

import (
	"context"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/luminahq/insight-engine/internal/interfaces"
)

const (
	maxSnippets   = 3
	snippetLength = 600
)

// Service implements interfaces.KnowledgeService with a keyword scan over
// the badgerhold-backed document store.
type Service struct {
	documents interfaces.DocumentStorage
	logger    arbor.ILogger
}

// NewService creates the knowledge service
func NewService(documents interfaces.DocumentStorage, logger arbor.ILogger) *Service {
	return &Service{
		documents: documents,
		logger:    logger,
	}
}

// Retrieve returns up to maxSnippets document excerpts ranked by keyword
// overlap with the query, joined by blank lines. Empty string on no match
// or any failure.
func (s *Service) Retrieve(ctx context.Context, orgID, query string) string {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return ""
	}

	docs, err := s.documents.ListDocuments(ctx, orgID)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("org_id", orgID).
			Msg("Knowledge retrieval failed, continuing without context")
		return ""
	}

	type scored struct {
		score   int
		snippet string
	}
	var matches []scored

	for _, doc := range docs {
		haystack := strings.ToLower(doc.Title + " " + doc.Content + " " + strings.Join(doc.Tags, " "))
		score := 0
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				score++
			}
		}
		if score == 0 {
			continue
		}
		matches = append(matches, scored{score: score, snippet: snippet(doc.Title, doc.Content)})
	}

	if len(matches) == 0 {
		return ""
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > maxSnippets {
		matches = matches[:maxSnippets]
	}

	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.snippet
	}

	s.logger.Debug().
		Str("org_id", orgID).
		Int("snippets", len(parts)).
		Msg("Knowledge context retrieved")

	return strings.Join(parts, "\n\n")
}

// queryTerms lowercases and keeps words long enough to be discriminating
func queryTerms(query string) []string {
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,;:!?()\"'")
		if len(word) >= 3 {
			terms = append(terms, word)
		}
	}
	return terms
}

func snippet(title, content string) string {
	runes := []rune(content)
	if len(runes) > snippetLength {
		content = string(runes[:snippetLength]) + "..."
	}
	if title == "" {
		return content
	}
	return title + ":\n" + content
}

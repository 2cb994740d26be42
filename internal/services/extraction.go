package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/feedbackos/feedbackos-backend/internal/providers"
	"github.com/feedbackos/feedbackos-backend/internal/repository"
)

// InsightCategories is the fixed category vocabulary for insight records.
var InsightCategories = []string{
	"wait_time", "cleanliness", "staff_behavior", "pricing",
	"safety", "infrastructure", "accessibility", "positive_experience",
}

var validFrequencies = map[string]bool{
	"one_off": true, "occasional": true, "recurring": true, "constant": true,
}

const analysisSystemPrompt = "You are a feedback analysis engine. Return ONLY valid JSON. " +
	"No markdown, no explanation, no code blocks."

const analysisUserPrompt = `Analyze this feedback conversation.
Location: %s. Type: %s. Date: %s.

TRANSCRIPT:
%s

Return this exact JSON:
{
  "categories": ["array from: %s"],
  "primaryCategory": "string",
  "sentimentPolarity": -1.0,
  "severityScore": 5,
  "frequency": "one_off",
  "keywords": ["3-6 words"],
  "summary": "Exactly 2 sentences.",
  "actionable": false
}`

// AnalyzeResult is the outcome of an extraction trigger. Skips (sensitive
// session, already analyzed) are results, not errors.
type AnalyzeResult struct {
	Skipped   bool   `json:"skipped,omitempty"`
	Reason    string `json:"reason,omitempty"`
	InsightID string `json:"insightId,omitempty"`
}

// insightFields mirrors the JSON schema the model is instructed to return.
type insightFields struct {
	Categories        []string `json:"categories"`
	PrimaryCategory   string   `json:"primaryCategory"`
	SentimentPolarity float64  `json:"sentimentPolarity"`
	SeverityScore     int      `json:"severityScore"`
	Frequency         string   `json:"frequency"`
	Keywords          []string `json:"keywords"`
	Summary           string   `json:"summary"`
	Actionable        bool     `json:"actionable"`
}

// fallbackInsight is used whenever the analysis call fails or returns
// unparseable output. Extraction always yields some record for an eligible
// transcript.
func fallbackInsight() insightFields {
	return insightFields{
		Categories:        []string{"general"},
		PrimaryCategory:   "general",
		SentimentPolarity: -0.3,
		SeverityScore:     5,
		Frequency:         "one_off",
		Keywords:          []string{},
		Summary:           "Feedback received but could not be fully analyzed.",
		Actionable:        false,
	}
}

// ExtractionService converts a finished transcript into a structured insight
// record via one generation call.
type ExtractionService struct {
	provider      providers.Provider
	sessions      repository.SessionRepository
	messages      repository.MessageRepository
	locations     repository.LocationRepository
	insights      repository.InsightRepository
	analysisModel string
	timeout       time.Duration
	logger        *logrus.Logger
}

// NewExtractionService creates a new extraction service
func NewExtractionService(
	provider providers.Provider,
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	locations repository.LocationRepository,
	insights repository.InsightRepository,
	analysisModel string,
	timeout time.Duration,
	logger *logrus.Logger,
) *ExtractionService {
	return &ExtractionService{
		provider:      provider,
		sessions:      sessions,
		messages:      messages,
		locations:     locations,
		insights:      insights,
		analysisModel: analysisModel,
		timeout:       timeout,
		logger:        logger,
	}
}

// Analyze runs extraction for a session. Sensitive sessions and sessions
// that already have an insight record are skipped, not failed.
func (s *ExtractionService) Analyze(ctx context.Context, sessionID string) (*AnalyzeResult, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if session.IsSensitive {
		return &AnalyzeResult{Skipped: true, Reason: "sensitive"}, nil
	}

	if _, err := s.insights.GetBySession(ctx, sessionID); err == nil {
		return &AnalyzeResult{Skipped: true, Reason: "already analyzed"}, nil
	} else if err != repository.ErrNotFound {
		return nil, err
	}

	msgs, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	location, err := s.locations.Get(ctx, session.LocationID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}

	transcript := buildTranscript(msgs)

	prompt := fmt.Sprintf(analysisUserPrompt,
		location.Name,
		location.LocationType,
		session.StartedAt.Format("2006-01-02"),
		transcript,
		strings.Join(InsightCategories, ", "),
	)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fields := fallbackInsight()
	raw, err := s.provider.Complete(genCtx, providers.Request{
		System:    analysisSystemPrompt,
		Messages:  []providers.Message{{Role: "user", Content: prompt}},
		Model:     s.analysisModel,
		MaxTokens: 600,
	})
	if err != nil {
		// The pipeline still produces a record; the generic fallback
		// stands in for the failed analysis.
		s.logger.WithField("session", sessionID).WithError(err).
			Error("analysis call failed, using fallback insight")
	} else {
		fields = parseAnalysis(raw)
	}

	fields = sanitizeInsight(fields)

	insight := &repository.InsightRecord{
		SessionID:         session.ID,
		LocationID:        location.ID,
		OrgID:             location.OrgID,
		Categories:        fields.Categories,
		PrimaryCategory:   fields.PrimaryCategory,
		SentimentPolarity: fields.SentimentPolarity,
		SeverityScore:     fields.SeverityScore,
		Frequency:         fields.Frequency,
		Keywords:          fields.Keywords,
		Summary:           fields.Summary,
		Actionable:        fields.Actionable,
	}

	if err := s.insights.Create(ctx, insight); err != nil {
		if err == repository.ErrDuplicate {
			return &AnalyzeResult{Skipped: true, Reason: "already analyzed"}, nil
		}
		return nil, fmt.Errorf("create insight: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"session":  sessionID,
		"insight":  insight.ID,
		"category": insight.PrimaryCategory,
		"severity": insight.SeverityScore,
	}).Info("session analyzed")

	return &AnalyzeResult{InsightID: insight.ID}, nil
}

// buildTranscript flattens the ordered message list, excluding any
// system-role turns.
func buildTranscript(msgs []repository.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if m.Role == "system" {
			continue
		}
		speaker := "Assistant"
		if m.Role == "user" {
			speaker = "User"
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

// parseAnalysis applies the parsing ladder: strip code fences and parse,
// then try the first brace-delimited substring, then fall back to the fixed
// generic record. It never fails.
func parseAnalysis(raw string) insightFields {
	clean := strings.ReplaceAll(raw, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var fields insightFields
	if err := json.Unmarshal([]byte(clean), &fields); err == nil {
		return fields
	}

	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(clean[start:end+1]), &fields); err == nil {
			return fields
		}
	}

	return fallbackInsight()
}

// sanitizeInsight clamps model output into the record's legal ranges.
func sanitizeInsight(f insightFields) insightFields {
	if len(f.Categories) == 0 {
		f.Categories = []string{"general"}
	}
	if f.PrimaryCategory == "" {
		f.PrimaryCategory = f.Categories[0]
	}
	primaryInSet := false
	for _, c := range f.Categories {
		if c == f.PrimaryCategory {
			primaryInSet = true
			break
		}
	}
	if !primaryInSet {
		f.Categories = append(f.Categories, f.PrimaryCategory)
	}

	if f.SeverityScore < 1 {
		f.SeverityScore = 1
	}
	if f.SeverityScore > 10 {
		f.SeverityScore = 10
	}
	if f.SentimentPolarity < -1 {
		f.SentimentPolarity = -1
	}
	if f.SentimentPolarity > 1 {
		f.SentimentPolarity = 1
	}
	if !validFrequencies[f.Frequency] {
		f.Frequency = "one_off"
	}
	if f.Keywords == nil {
		f.Keywords = []string{}
	}
	return f
}

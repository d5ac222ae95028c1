package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/caseclarity/backend/internal/ai"
	"github.com/caseclarity/backend/internal/db"
	"github.com/caseclarity/backend/internal/models"
)

type CaseService struct {
	Store    db.Store
	Analyzer ai.Analyzer
	Drafter  ai.Drafter
	Now      func() time.Time
}

type DecisionInput struct {
	Status   string `json:"status" validate:"required,oneof=accepted rejected"`
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

type Summary struct {
	Counts        models.StatusCounts `json:"counts"`
	LatestMonitor *models.MonitorRun  `json:"latestMonitor"`
	GeneratedAt   time.Time           `json:"generatedAt"`
}

func (s *CaseService) List(ctx context.Context, f models.CaseFilter) ([]models.Case, error) {
	return s.Store.ListCases(ctx, f)
}

func (s *CaseService) Get(ctx context.Context, id string) (models.Case, error) {
	return s.Store.GetCase(ctx, id)
}

func (s *CaseService) Summary(ctx context.Context, uid string) (Summary, error) {
	counts, err := s.Store.CountCasesByStatus(ctx)
	if err != nil {
		return Summary{}, err
	}
	out := Summary{Counts: counts, GeneratedAt: s.now()}
	run, err := s.Store.LatestMonitorRun(ctx, uid)
	switch {
	case err == nil:
		out.LatestMonitor = &run
	case !errors.Is(err, db.ErrNotFound):
		return Summary{}, err
	}
	return out, nil
}

// Decide moves a pending case to accepted or rejected. Any other transition,
// including a concurrent decision on the same case, is ErrInvalidTransition.
func (s *CaseService) Decide(ctx context.Context, id string, in DecisionInput) (models.Case, error) {
	if in.Status != models.DecisionAccepted && in.Status != models.DecisionRejected {
		return models.Case{}, ErrInvalidTransition
	}
	c, err := s.Store.GetCase(ctx, id)
	if err != nil {
		return models.Case{}, err
	}
	if c.LawyerDecision.Status != models.DecisionPending {
		return models.Case{}, ErrInvalidTransition
	}

	now := s.now()
	err = s.Store.DecideCase(ctx, id, models.LawyerDecision{
		Status:    in.Status,
		Decision:  strings.TrimSpace(in.Decision),
		Timestamp: &now,
		Notes:     strings.TrimSpace(in.Notes),
	})
	if errors.Is(err, db.ErrConflict) {
		return models.Case{}, ErrInvalidTransition
	}
	if err != nil {
		return models.Case{}, err
	}
	return s.Store.GetCase(ctx, id)
}

// Analyze runs the case analysis and stores it, replacing any previous one.
func (s *CaseService) Analyze(ctx context.Context, id string) (models.CaseAnalysis, error) {
	c, err := s.Store.GetCase(ctx, id)
	if err != nil {
		return models.CaseAnalysis{}, err
	}
	analysis, err := s.Analyzer.Analyze(ctx, caseType(c), caseSummary(c))
	if err != nil {
		return models.CaseAnalysis{}, err
	}
	if err := s.Store.SetAnalysis(ctx, id, analysis); err != nil {
		return models.CaseAnalysis{}, err
	}
	return analysis, nil
}

func (s *CaseService) Draft(ctx context.Context, id, draftType, opponentName string) (string, error) {
	c, err := s.Store.GetCase(ctx, id)
	if err != nil {
		return "", err
	}
	clientName := c.ClientInfo.Name
	if clientName == "" {
		clientName = c.ClientInfo.Phone
	}
	return s.Drafter.Draft(ctx, ai.DraftInput{
		CaseType:     caseType(c),
		DraftType:    draftType,
		CaseSummary:  caseSummary(c),
		ClientName:   clientName,
		OpponentName: opponentName,
	})
}

// SetConversationStatus closes an ongoing intake conversation.
func (s *CaseService) SetConversationStatus(ctx context.Context, id, status string) (models.Case, error) {
	if status != models.ConversationCompleted && status != models.ConversationAbandoned {
		return models.Case{}, ErrInvalidTransition
	}
	c, err := s.Store.GetCase(ctx, id)
	if err != nil {
		return models.Case{}, err
	}
	if c.Conversation.Status != models.ConversationOngoing {
		return models.Case{}, ErrInvalidTransition
	}
	if err := s.Store.SetConversationStatus(ctx, id, status); err != nil {
		return models.Case{}, err
	}
	c.Conversation.Status = status
	return c, nil
}

func (s *CaseService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func caseType(c models.Case) string {
	if t := strings.TrimSpace(c.CaseDetails.Type); t != "" {
		return t
	}
	return "Sin clasificar"
}

// caseSummary prefers the written description and falls back to what the
// client said during intake.
func caseSummary(c models.Case) string {
	if d := strings.TrimSpace(c.CaseDetails.Description); d != "" {
		return d
	}
	var parts []string
	for _, m := range c.Conversation.Messages {
		if m.Sender == models.SenderClient {
			parts = append(parts, m.Message)
		}
	}
	return strings.Join(parts, "\n")
}

package ai

import (
	"context"

	"github.com/cockroachdb/errors"
)

const (
	DraftDemandLetter    = "demand_letter"
	DraftComplaintAnswer = "complaint_answer"
	DraftLaborClaim      = "labor_claim"
)

var draftLabels = map[string]string{
	DraftDemandLetter:    "carta documento",
	DraftComplaintAnswer: "contestación de demanda",
	DraftLaborClaim:      "demanda laboral",
}

func ValidDraftType(t string) bool {
	_, ok := draftLabels[t]
	return ok
}

type DraftInput struct {
	CaseType     string `json:"caseType" validate:"required"`
	DraftType    string `json:"draftType" validate:"required,oneof=demand_letter complaint_answer labor_claim"`
	CaseSummary  string `json:"caseSummary" validate:"required"`
	ClientName   string `json:"clientName" validate:"required"`
	OpponentName string `json:"opponentName" validate:"required"`
}

type Drafter struct {
	LLM LLM
}

type draftData struct {
	DraftInput
	DraftLabel string
}

func (d Drafter) Draft(ctx context.Context, in DraftInput) (string, error) {
	label, ok := draftLabels[in.DraftType]
	if !ok {
		return "", errors.Wrapf(ErrInvalidInput, "unknown draft type %q", in.DraftType)
	}
	text, err := render(PromptDraft, draftData{DraftInput: in, DraftLabel: label})
	if err != nil {
		return "", err
	}
	out, err := generate(ctx, d.LLM, Request{Prompt: PromptDraft, Text: text})
	if err != nil {
		return "", err
	}
	if isBlank(out) {
		markInvalid(PromptDraft)
		return "", errors.Wrap(ErrInvalidOutput, "empty draft")
	}
	return out, nil
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"

	"github.com/caseclarity/backend/internal/models"
)

type Analyzer struct {
	LLM LLM
}

var analysisSchema = buildAnalysisSchema()

func buildAnalysisSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	s := r.Reflect(&models.CaseAnalysis{})
	s.Version = ""
	return s
}

func AnalysisSchema() *jsonschema.Schema {
	return analysisSchema
}

type analysisData struct {
	CaseType    string
	CaseSummary string
}

func (a Analyzer) Analyze(ctx context.Context, caseType, caseSummary string) (models.CaseAnalysis, error) {
	if isBlank(caseType) || isBlank(caseSummary) {
		return models.CaseAnalysis{}, errors.Wrap(ErrInvalidInput, "caseType and caseSummary are required")
	}
	text, err := render(PromptAnalysis, analysisData{CaseType: caseType, CaseSummary: caseSummary})
	if err != nil {
		return models.CaseAnalysis{}, err
	}
	raw, err := generate(ctx, a.LLM, Request{Prompt: PromptAnalysis, Text: text, Schema: analysisSchema})
	if err != nil {
		return models.CaseAnalysis{}, err
	}
	out, err := DecodeAnalysis(raw)
	if err != nil {
		markInvalid(PromptAnalysis)
		return models.CaseAnalysis{}, err
	}
	return out, nil
}

// DecodeAnalysis parses provider output and checks the value ranges the
// dashboard relies on. It does not attempt to repair bad output.
func DecodeAnalysis(raw string) (models.CaseAnalysis, error) {
	var wire struct {
		Summary            string      `json:"summary"`
		Strengths          []string    `json:"strengths"`
		Weaknesses         []string    `json:"weaknesses"`
		Recommendations    string      `json:"recommendations"`
		SuccessProbability json.Number `json:"successProbability"`
		EstimatedDuration  string      `json:"estimatedDuration"`
		Complexity         string      `json:"complexity"`
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(raw))))
	if err := dec.Decode(&wire); err != nil {
		return models.CaseAnalysis{}, errors.Mark(errors.Wrap(err, "decode analysis"), ErrInvalidOutput)
	}

	p, err := wire.SuccessProbability.Float64()
	if err != nil {
		return models.CaseAnalysis{}, errors.Wrap(ErrInvalidOutput, "successProbability is not a number")
	}
	if p != math.Trunc(p) || p < 0 || p > 100 {
		return models.CaseAnalysis{}, errors.Wrapf(ErrInvalidOutput, "successProbability %v out of range", p)
	}
	if !models.ValidComplexity(wire.Complexity) {
		return models.CaseAnalysis{}, errors.Wrapf(ErrInvalidOutput, "complexity %q not allowed", wire.Complexity)
	}
	if isBlank(wire.Summary) {
		return models.CaseAnalysis{}, errors.Wrap(ErrInvalidOutput, "summary is empty")
	}

	out := models.CaseAnalysis{
		Summary:            wire.Summary,
		Strengths:          wire.Strengths,
		Weaknesses:         wire.Weaknesses,
		Recommendations:    wire.Recommendations,
		SuccessProbability: int(p),
		EstimatedDuration:  wire.EstimatedDuration,
		Complexity:         wire.Complexity,
	}
	if out.Strengths == nil {
		out.Strengths = []string{}
	}
	if out.Weaknesses == nil {
		out.Weaknesses = []string{}
	}
	return out, nil
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caseclarity/backend/internal/ai"
)

type AnalysisRequest struct {
	CaseType    string `json:"caseType" validate:"required"`
	CaseSummary string `json:"caseSummary" validate:"required"`
}

// @Summary Analyze an arbitrary case description
// @Tags ai
// @Accept json
// @Produce json
// @Param payload body AnalysisRequest true "case"
// @Success 200 {object} models.CaseAnalysis
// @Failure 502 {object} map[string]any
// @Router /api/ai/analysis [post]
func (h *Handler) AIAnalysis(c *gin.Context) {
	var req AnalysisRequest
	if !h.bind(c, &req) {
		return
	}
	ctx, cancel := h.llmContext(c)
	defer cancel()
	analysis, err := h.Analyzer.Analyze(ctx, req.CaseType, req.CaseSummary)
	if err != nil {
		h.writeServiceError(c, err, "Analysis failed")
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// @Summary Draft a legal document
// @Tags ai
// @Accept json
// @Produce json
// @Param payload body ai.DraftInput true "draft"
// @Success 200 {object} map[string]string
// @Router /api/ai/drafts [post]
func (h *Handler) AIDraft(c *gin.Context) {
	var req ai.DraftInput
	if !h.bind(c, &req) {
		return
	}
	ctx, cancel := h.llmContext(c)
	defer cancel()
	text, err := h.Drafter.Draft(ctx, req)
	if err != nil {
		h.writeServiceError(c, err, "Draft failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": text})
}

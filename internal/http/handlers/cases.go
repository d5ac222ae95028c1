package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caseclarity/backend/internal/http/middleware"
	"github.com/caseclarity/backend/internal/models"
	"github.com/caseclarity/backend/internal/service"
)

type DraftRequest struct {
	DraftType    string `json:"draftType" validate:"required,oneof=demand_letter complaint_answer labor_claim"`
	OpponentName string `json:"opponentName" validate:"required"`
}

type ConversationStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=completed abandoned"`
}

// @Summary List cases
// @Tags cases
// @Produce json
// @Param status query string false "all|pending|accepted|rejected"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {array} models.Case
// @Router /api/cases [get]
func (h *Handler) CasesList(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", "all", models.DecisionPending, models.DecisionAccepted, models.DecisionRejected:
	default:
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "status must be one of all, pending, accepted, rejected", nil)
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a non-negative integer", nil)
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "offset must be a non-negative integer", nil)
		return
	}

	items, err := h.Cases.List(c.Request.Context(), models.CaseFilter{Status: status, Limit: limit, Offset: offset})
	if err != nil {
		h.writeServiceError(c, err, "Failed to list cases")
		return
	}
	c.JSON(http.StatusOK, items)
}

// @Summary Case details
// @Tags cases
// @Produce json
// @Param id path string true "case id"
// @Success 200 {object} models.Case
// @Failure 404 {object} map[string]any
// @Router /api/cases/{id} [get]
func (h *Handler) CaseDetails(c *gin.Context) {
	item, err := h.Cases.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err, "Failed to load case")
		return
	}
	c.JSON(http.StatusOK, item)
}

// @Summary Accept or reject a pending case
// @Tags cases
// @Accept json
// @Produce json
// @Param id path string true "case id"
// @Param payload body service.DecisionInput true "decision"
// @Success 200 {object} models.Case
// @Failure 409 {object} map[string]any
// @Router /api/cases/{id}/decision [post]
func (h *Handler) CaseDecision(c *gin.Context) {
	var req service.DecisionInput
	if !h.bind(c, &req) {
		return
	}
	item, err := h.Cases.Decide(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeServiceError(c, err, "Failed to record decision")
		return
	}
	h.Logger.Info().
		Str("case_id", item.ID).
		Str("status", item.LawyerDecision.Status).
		Str("uid", c.GetString(middleware.UserIDKey)).
		Msg("case decided")
	c.JSON(http.StatusOK, item)
}

// @Summary Run AI analysis for a case
// @Tags cases
// @Produce json
// @Param id path string true "case id"
// @Success 200 {object} models.CaseAnalysis
// @Failure 502 {object} map[string]any
// @Router /api/cases/{id}/analysis [post]
func (h *Handler) CaseAnalysis(c *gin.Context) {
	ctx, cancel := h.llmContext(c)
	defer cancel()
	analysis, err := h.Cases.Analyze(ctx, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err, "Failed to store analysis")
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// @Summary Draft a legal document for a case
// @Tags cases
// @Accept json
// @Produce json
// @Param id path string true "case id"
// @Param payload body DraftRequest true "draft"
// @Success 200 {object} map[string]string
// @Router /api/cases/{id}/drafts [post]
func (h *Handler) CaseDraft(c *gin.Context) {
	var req DraftRequest
	if !h.bind(c, &req) {
		return
	}
	ctx, cancel := h.llmContext(c)
	defer cancel()
	text, err := h.Cases.Draft(ctx, c.Param("id"), req.DraftType, req.OpponentName)
	if err != nil {
		h.writeServiceError(c, err, "Failed to draft document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": text})
}

func (h *Handler) CaseConversationStatus(c *gin.Context) {
	var req ConversationStatusRequest
	if !h.bind(c, &req) {
		return
	}
	item, err := h.Cases.SetConversationStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.writeServiceError(c, err, "Failed to update conversation")
		return
	}
	c.JSON(http.StatusOK, item)
}

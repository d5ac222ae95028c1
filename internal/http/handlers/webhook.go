package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caseclarity/backend/internal/whatsapp"
)

// @Summary WhatsApp webhook verification
// @Tags whatsapp
// @Produce plain
// @Param hub.mode query string true "subscribe"
// @Param hub.verify_token query string true "verify token"
// @Param hub.challenge query string true "challenge"
// @Success 200 {string} string
// @Failure 403 {string} string
// @Router /api/whatsapp [get]
func (h *Handler) WebhookVerify(c *gin.Context) {
	if h.VerifyToken == "" {
		h.Logger.Error().Msg("webhook verify token not configured")
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if !whatsapp.VerifyHandshake(c.Query("hub.mode"), c.Query("hub.verify_token"), h.VerifyToken) {
		c.String(http.StatusForbidden, "Forbidden")
		return
	}
	c.String(http.StatusOK, c.Query("hub.challenge"))
}

// @Summary WhatsApp inbound messages
// @Description Replies to every text message through the intake assistant. Always acknowledges well-formed deliveries.
// @Tags whatsapp
// @Accept json
// @Produce plain
// @Success 200 {string} string
// @Failure 401 {string} string
// @Router /api/whatsapp [post]
func (h *Handler) WebhookReceive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if !c.Writer.Written() {
			c.String(http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}
	if h.AppSecret != "" && !whatsapp.VerifySignature(body, c.GetHeader(whatsapp.SignatureHeader), h.AppSecret) {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload whatsapp.Webhook
	if err := json.Unmarshal(body, &payload); err != nil {
		h.Logger.Warn().Err(err).Msg("webhook body is not json")
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	ctx, cancel := h.llmContext(c)
	defer cancel()
	for _, msg := range whatsapp.ExtractTextMessages(payload) {
		h.Intake.HandleInbound(ctx, msg)
	}
	c.String(http.StatusOK, "OK")
}

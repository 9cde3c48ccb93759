package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zenbanez/docuvoice-ai/internal/services"
)

type VoiceSessionHandler struct {
	voice services.VoiceService
}

func NewVoiceSessionHandler(voice services.VoiceService) *VoiceSessionHandler {
	return &VoiceSessionHandler{voice: voice}
}

func (h *VoiceSessionHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	sess, evs, err := h.voice.Get(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess, "events": evs})
}

func (h *VoiceSessionHandler) ListByDocument(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	rows, err := h.voice.ListByDocument(c.Request.Context(), userID, c.Param("id"), int64(queryLimit(c, 20)))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

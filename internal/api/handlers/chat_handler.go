package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zenbanez/docuvoice-ai/internal/models"
	"github.com/zenbanez/docuvoice-ai/internal/services"
	"github.com/zenbanez/docuvoice-ai/internal/utils"
)

type ChatHandler struct {
	chats services.ChatService
}

func NewChatHandler(chats services.ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

type SendChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// Send streams the answer as server-sent events: "chunk" per text fragment, then "error" when
// the model failed, then "done" with the stored reply.
func (h *ChatHandler) Send(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req SendChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ChatHandler.Send", "invalid request body", err))
		return
	}

	streaming := false
	startStream := func() {
		if streaming {
			return
		}
		streaming = true
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
	}

	reply, err := h.chats.Send(c.Request.Context(), userID, c.Param("id"), req.Message, func(chunk string) {
		startStream()
		c.SSEvent("chunk", gin.H{"text": chunk})
		c.Writer.Flush()
	})
	if err != nil {
		if !streaming {
			writeError(c, err)
			return
		}
		c.SSEvent("error", gin.H{"message": utils.Message(err)})
		return
	}

	startStream()
	var meta models.ChatMetadata
	_ = json.Unmarshal(reply.Metadata, &meta)
	if meta.Failed {
		c.SSEvent("error", gin.H{"message": reply.Content})
	}
	c.SSEvent("done", reply)
	c.Writer.Flush()
}

func (h *ChatHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	rows, err := h.chats.History(c.Request.Context(), userID, c.Param("id"), queryLimit(c, 50))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

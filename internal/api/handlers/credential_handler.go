package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zenbanez/docuvoice-ai/internal/credentials"
	"github.com/zenbanez/docuvoice-ai/internal/utils"
)

// KeySelector stores the API key used for live sessions.
type KeySelector interface {
	Select(ctx context.Context, key string) error
	HasSelectedKey(ctx context.Context) (bool, error)
}

type CredentialHandler struct {
	keys KeySelector
}

func NewCredentialHandler(keys KeySelector) *CredentialHandler {
	return &CredentialHandler{keys: keys}
}

type SelectKeyRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

func (h *CredentialHandler) Select(c *gin.Context) {
	const op = "CredentialHandler.Select"

	var req SelectKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}
	if err := h.keys.Select(c.Request.Context(), req.APIKey); err != nil {
		if errors.Is(err, credentials.ErrInvalidKey) {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid api key", err))
			return
		}
		writeError(c, utils.E(utils.CodeInternal, op, "failed to store api key", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": true})
}

func (h *CredentialHandler) Status(c *gin.Context) {
	ok, err := h.keys.HasSelectedKey(c.Request.Context())
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, "CredentialHandler.Status", "failed to read key state", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": ok})
}

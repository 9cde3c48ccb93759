package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zenbanez/docuvoice-ai/internal/events"
	"github.com/zenbanez/docuvoice-ai/internal/models"
	"github.com/zenbanez/docuvoice-ai/internal/services"
	"github.com/zenbanez/docuvoice-ai/internal/utils"
)

type DocumentHandler struct {
	docs     services.DocumentService
	status   events.Subscriber
	maxBytes int64
}

func NewDocumentHandler(docs services.DocumentService, status events.Subscriber, maxBytes int64) *DocumentHandler {
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &DocumentHandler{docs: docs, status: status, maxBytes: maxBytes}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	const op = "DocumentHandler.Upload"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'file'", err))
		return
	}
	if fh.Size > h.maxBytes {
		writeError(c, utils.E(utils.CodeTooLarge, op, "file too large", nil))
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "failed to open file", err))
		return
	}
	defer f.Close()

	doc, err := h.docs.Upload(c.Request.Context(), userID, fh.Filename, f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, doc)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	doc, err := h.docs.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	docs, err := h.docs.List(c.Request.Context(), userID, queryLimit(c, 20))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": docs})
}

func (h *DocumentHandler) Download(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	url, err := h.docs.DownloadURL(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Status streams summary status updates as server-sent events until the summary is ready or
// has failed.
func (h *DocumentHandler) Status(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := h.docs.Get(ctx, userID, id); err != nil {
		writeError(c, err)
		return
	}

	updates, cancel, err := h.status.Subscribe(ctx, id)
	if err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, "DocumentHandler.Status", "failed to subscribe", err))
		return
	}
	defer cancel()

	// Re-read after subscribing so a transition in between is not missed.
	doc, err := h.docs.Get(ctx, userID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	if st, done := terminalStatus(doc); done {
		c.SSEvent("status", st)
		return
	}

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-keepalive.C:
			c.SSEvent("ping", "")
			return true
		case st, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("status", st)
			return st.Status != events.StatusDone && st.Status != events.StatusFailed
		}
	})
}

func terminalStatus(doc *models.Document) (events.Status, bool) {
	st := events.Status{Type: "status", DocumentID: doc.ID, At: doc.UpdatedAt}
	switch doc.Status {
	case models.DocumentReady:
		st.Status = events.StatusDone
		return st, true
	case models.DocumentFailed:
		st.Status = events.StatusFailed
		st.Message = doc.Error
		return st, true
	}
	return st, false
}

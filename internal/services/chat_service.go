package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/zenbanez/docuvoice-ai/internal/models"
	"github.com/zenbanez/docuvoice-ai/internal/providers/llm"
	pgrepo "github.com/zenbanez/docuvoice-ai/internal/repositories/postgres"
	"github.com/zenbanez/docuvoice-ai/internal/utils"
)

const (
	ChatErrorReply = "There was an error communicating with the AI. Please try again."
	ChatEmptyReply = "I'm sorry, I couldn't process that."

	chatHistoryLimit = 50
	maxChatMessage   = 8000
)

type ChatService interface {
	// Send stores the user message, streams the model's answer through onChunk and stores the
	// reply. A failed model call still yields a stored reply carrying the fallback text.
	Send(ctx context.Context, ownerID, documentID, message string, onChunk func(string)) (*models.ChatMessage, error)
	History(ctx context.Context, ownerID, documentID string, limit int) ([]models.ChatMessage, error)
}

type chatService struct {
	docs  DocumentService
	chats pgrepo.ChatRepository
	llm   llm.Provider
	log   logrus.FieldLogger
}

func NewChatService(docs DocumentService, chats pgrepo.ChatRepository, provider llm.Provider, log logrus.FieldLogger) ChatService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &chatService{docs: docs, chats: chats, llm: provider, log: log}
}

func (s *chatService) Send(ctx context.Context, ownerID, documentID, message string, onChunk func(string)) (*models.ChatMessage, error) {
	const op = "ChatService.Send"

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "message is required", nil)
	}
	if len(message) > maxChatMessage {
		return nil, utils.E(utils.CodeInvalidArgument, op, "message too long", nil)
	}

	doc, err := s.docs.Get(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}

	prior, err := s.chats.ListByDocument(ctx, ownerID, documentID, chatHistoryLimit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load chat history", err)
	}

	userMsg := &models.ChatMessage{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		OwnerID:    ownerID,
		Role:       models.ChatRoleUser,
		Content:    message,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.chats.Insert(ctx, userMsg); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store message", err)
	}

	history := make([]llm.Message, 0, len(prior))
	for _, m := range prior {
		history = append(history, llm.Message{Role: llm.Role(m.Role), Text: m.Content})
	}

	start := time.Now()
	chunks, errs := s.llm.StreamChat(ctx, llm.ChatInstruction(doc.Name, doc.Summary), history, message)

	var full strings.Builder
	for chunk := range chunks {
		full.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	streamErr := <-errs

	meta := models.ChatMetadata{Model: s.llm.Model(), LatencyMS: time.Since(start).Milliseconds()}
	reply := full.String()
	switch {
	case streamErr != nil:
		s.log.WithError(streamErr).WithField("document_id", documentID).Error("chat stream failed")
		reply = ChatErrorReply
		meta.Failed = true
	case strings.TrimSpace(reply) == "":
		reply = ChatEmptyReply
	}

	metaJSON, _ := json.Marshal(meta)
	modelMsg := &models.ChatMessage{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		OwnerID:    ownerID,
		Role:       models.ChatRoleModel,
		Content:    reply,
		Timestamp:  time.Now().UTC(),
		Metadata:   datatypes.JSON(metaJSON),
	}
	if err := s.chats.Insert(ctx, modelMsg); err != nil {
		// Already streamed to the client.
		s.log.WithError(err).WithField("document_id", documentID).Error("store chat reply")
	}
	return modelMsg, nil
}

func (s *chatService) History(ctx context.Context, ownerID, documentID string, limit int) ([]models.ChatMessage, error) {
	const op = "ChatService.History"

	if _, err := s.docs.Get(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = chatHistoryLimit
	}
	rows, err := s.chats.ListByDocument(ctx, ownerID, documentID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list chat messages", err)
	}
	return rows, nil
}

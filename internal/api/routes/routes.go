package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/zenbanez/docuvoice-ai/internal/api/handlers"
	"github.com/zenbanez/docuvoice-ai/internal/api/middleware"
)

type Deps struct {
	Auth          middleware.JWTConfig
	Documents     *handlers.DocumentHandler
	Chat          *handlers.ChatHandler
	VoiceSessions *handlers.VoiceSessionHandler
	Voice         *handlers.VoiceHandler
	Credentials   *handlers.CredentialHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	auth := r.Group("/")
	auth.Use(middleware.JWTAuth(d.Auth))

	auth.POST("/documents", d.Documents.Upload)
	auth.GET("/documents", d.Documents.List)
	auth.GET("/documents/:id", d.Documents.Get)
	auth.GET("/documents/:id/download", d.Documents.Download)
	auth.GET("/documents/:id/status", d.Documents.Status)

	auth.POST("/documents/:id/chat", d.Chat.Send)
	auth.GET("/documents/:id/chat", d.Chat.List)

	auth.GET("/documents/:id/voice/sessions", d.VoiceSessions.ListByDocument)
	auth.GET("/voice/sessions/:session_id", d.VoiceSessions.Get)

	auth.GET("/credentials/key", d.Credentials.Status)
	auth.POST("/credentials/key", middleware.RequireAdmin(), d.Credentials.Select)

	// WebSocket
	auth.GET("/ws/documents/:id/voice", d.Voice.Stream)
}

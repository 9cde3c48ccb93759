package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/zenbanez/docuvoice-ai/config"
	"github.com/zenbanez/docuvoice-ai/internal/api/handlers"
	"github.com/zenbanez/docuvoice-ai/internal/api/middleware"
	"github.com/zenbanez/docuvoice-ai/internal/api/routes"
	"github.com/zenbanez/docuvoice-ai/internal/cache"
	"github.com/zenbanez/docuvoice-ai/internal/credentials"
	"github.com/zenbanez/docuvoice-ai/internal/events"
	"github.com/zenbanez/docuvoice-ai/internal/logger"
	"github.com/zenbanez/docuvoice-ai/internal/models"
	"github.com/zenbanez/docuvoice-ai/internal/providers/live"
	"github.com/zenbanez/docuvoice-ai/internal/providers/llm"
	mongorepo "github.com/zenbanez/docuvoice-ai/internal/repositories/mongo"
	pgrepo "github.com/zenbanez/docuvoice-ai/internal/repositories/postgres"
	"github.com/zenbanez/docuvoice-ai/internal/services"
	"github.com/zenbanez/docuvoice-ai/internal/storage"
	"github.com/zenbanez/docuvoice-ai/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.InitMongo(ctx, cfg); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	log.Info("MongoDB connected")
	mdb := config.MongoDatabase(cfg)
	if err := config.EnsureMongoIndexes(ctx, mdb); err != nil {
		log.WithError(err).Warn("ensure mongo indexes")
	}

	if err := config.InitPostgres(ctx, cfg); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	log.Info("PostgreSQL connected")
	if err := config.MigratePostgres(&models.Document{}, &models.ChatMessage{}); err != nil {
		log.Fatalf("PostgreSQL migrate error: %v", err)
	}

	if err := config.InitRedis(ctx, cfg); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	log.Info("Redis connected")

	if cfg.GCSBucket == "" {
		log.Fatal("GCS_BUCKET environment variable is not set")
	}
	store, err := storage.NewGCSStore(ctx, cfg.GCSBucket)
	if err != nil {
		log.Fatalf("GCS init error: %v", err)
	}
	defer store.Close()

	keys := credentials.NewKeyStore(cfg.GeminiKeyFile, cfg.GeminiAPIKey, log)

	textLLM, err := llm.New(ctx, llm.Options{
		Backend:        cfg.LLMBackend,
		Model:          cfg.TextModel,
		VertexProject:  cfg.VertexProject,
		VertexLocation: cfg.VertexLocation,
	}, keys)
	if err != nil {
		log.Fatalf("LLM init error: %v", err)
	}
	defer textLLM.Close()
	log.WithFields(logrus.Fields{"backend": cfg.LLMBackend, "model": textLLM.Model()}).Info("LLM ready")

	status := events.NewRedisStatus(config.RedisClient)
	queue := workers.NewRedisSummaryQueue(config.RedisClient, status)

	docSvc := services.NewDocumentService(
		pgrepo.NewDocumentRepo(config.PostgresDB),
		store,
		cache.NewRedisCache(config.RedisClient, "docuvoice:"),
		textLLM,
		queue,
		services.DocumentConfig{MaxBytes: cfg.MaxUploadBytes, CacheTTL: cfg.SummaryCacheTTL},
		log,
	)
	chatSvc := services.NewChatService(docSvc, pgrepo.NewChatRepo(config.PostgresDB), textLLM, log)
	voiceSvc := services.NewVoiceService(
		docSvc,
		mongorepo.NewVoiceSessionRepo(mdb),
		mongorepo.NewSessionEventRepo(mdb),
		live.NewGemini(keys),
		services.VoiceConfig{Model: cfg.LiveModel, Voice: cfg.LiveVoice, RequireCredential: cfg.VoiceRequireCredential},
		log,
	)

	pool := &workers.SummaryWorkerPool{
		Redis:      config.RedisClient,
		Documents:  docSvc,
		Status:     status,
		NumWorkers: cfg.SummaryWorkers,
		Logger:     log,
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("summary workers: %v", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.RegisterRoutes(r, routes.Deps{
		Auth: middleware.JWTConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
		Documents:     handlers.NewDocumentHandler(docSvc, status, cfg.MaxUploadBytes),
		Chat:          handlers.NewChatHandler(chatSvc),
		VoiceSessions: handlers.NewVoiceSessionHandler(voiceSvc),
		Voice:         handlers.NewVoiceHandler(voiceSvc, keys, log),
		Credentials:   handlers.NewCredentialHandler(keys),
	})
	if cfg.JWTSecret == "" {
		log.Warn("AUTH_JWT_SECRET not set; all requests run as the local user")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	_ = config.RedisClient.Close()
	_ = config.MongoClient.Disconnect(shutdownCtx)
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLiveModel = "gemini-2.5-flash-native-audio-preview-12-2025"
	DefaultLiveVoice = "Zephyr"
	DefaultTextModel = "gemini-2.5-flash"
)

// App is the process configuration read from the environment.
type App struct {
	Port string

	GeminiAPIKey  string
	GeminiKeyFile string
	LiveModel     string
	LiveVoice     string
	TextModel     string

	LLMBackend     string // gemini | vertex
	VertexProject  string
	VertexLocation string

	GCSBucket string

	MongoURI         string
	MongoDB          string
	MongoForceTLS12  bool
	MongoInsecureTLS bool
	PostgresURI      string
	RedisAddr        string

	SummaryWorkers  int
	SummaryCacheTTL time.Duration

	VoiceRequireCredential bool

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	MaxUploadBytes int64
}

func Load() *App {
	return &App{
		Port:                   envOr("PORT", "8080"),
		GeminiAPIKey:           strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiKeyFile:          os.Getenv("GEMINI_KEY_FILE"),
		LiveModel:              envOr("LIVE_MODEL", DefaultLiveModel),
		LiveVoice:              envOr("LIVE_VOICE", DefaultLiveVoice),
		TextModel:              envOr("TEXT_MODEL", DefaultTextModel),
		LLMBackend:             strings.ToLower(envOr("LLM_BACKEND", "gemini")),
		VertexProject:          os.Getenv("VERTEX_PROJECT"),
		VertexLocation:         envOr("VERTEX_LOCATION", "us-central1"),
		GCSBucket:              os.Getenv("GCS_BUCKET"),
		MongoURI:               os.Getenv("MONGO_URI"),
		MongoDB:                envOr("MONGO_DB", "docuvoice"),
		MongoForceTLS12:        envBool("MONGO_FORCE_TLS_CONFIG", false) || os.Getenv("GO_ENV") == "development",
		MongoInsecureTLS:       envBool("MONGO_INSECURE_TLS", false),
		PostgresURI:            os.Getenv("POSTGRES_URI"),
		RedisAddr:              firstEnv("REDIS_ADDR", "REDIS_URI", "REDIS_URL"),
		SummaryWorkers:         envInt("SUMMARY_WORKERS", 2),
		SummaryCacheTTL:        envDuration("SUMMARY_CACHE_TTL", 7*24*time.Hour),
		VoiceRequireCredential: envBool("VOICE_REQUIRE_CREDENTIAL", false),
		JWTSecret:              os.Getenv("AUTH_JWT_SECRET"),
		JWTIssuer:              os.Getenv("AUTH_JWT_ISSUER"),
		JWTAudience:            os.Getenv("AUTH_JWT_AUDIENCE"),
		MaxUploadBytes:         int64(envInt("MAX_UPLOAD_MB", 20)) << 20,
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	SMTP      SMTPConfig
	Keys      APIKeys
	Ai        AIConfig
	Interview InterviewConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	SessionLogPath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type APIKeys struct {
	GoogleGemini string
	GoogleTTS    string
	CVTopic      string // watermill topic for CV summaries
}

type AIConfig struct {
	LLMProvider   string // "gemini" or "ollama"
	LLMModel      string
	OllamaBaseURL string
	GeminiBaseURL string
	TTSBaseURL    string
	TTSVoice      string
	TTSLanguage   string
}

type InterviewConfig struct {
	ResumeDelay       time.Duration
	RestartDelay      time.Duration
	DetectionInterval time.Duration
	PlaybackTimeout   time.Duration
	DeviceTimeout     time.Duration
	LeaseTTL          time.Duration
	MaxCVBytes        int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			SessionLogPath:     getEnv("SESSION_LOG_PATH", "logs/interview_sessions.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "AI Interview"),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			GoogleTTS:    getEnv("GOOGLE_TTS_API_KEY", ""),
			CVTopic:      getEnv("CV_SUMMARY_TOPIC_NAME", "SUMMARIZE_CV"),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:      getEnv("LLM_MODEL", "gemini-2.0-flash"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			TTSBaseURL:    getEnv("TTS_BASE_URL", "https://texttospeech.googleapis.com"),
			TTSVoice:      getEnv("TTS_VOICE", "en-US-Neural2-F"),
			TTSLanguage:   getEnv("TTS_LANGUAGE", "en-US"),
		},
		Interview: InterviewConfig{
			ResumeDelay:       getEnvAsDuration("INTERVIEW_RESUME_DELAY", 500*time.Millisecond),
			RestartDelay:      getEnvAsDuration("INTERVIEW_RESTART_DELAY", 300*time.Millisecond),
			DetectionInterval: getEnvAsDuration("INTERVIEW_DETECTION_INTERVAL", 33*time.Millisecond),
			PlaybackTimeout:   getEnvAsDuration("INTERVIEW_PLAYBACK_TIMEOUT", 2*time.Minute),
			DeviceTimeout:     getEnvAsDuration("INTERVIEW_DEVICE_TIMEOUT", 30*time.Second),
			LeaseTTL:          getEnvAsDuration("INTERVIEW_LEASE_TTL", 2*time.Hour),
			MaxCVBytes:        getEnvAsInt("INTERVIEW_MAX_CV_BYTES", 5*1024*1024),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("750ms") or plain milliseconds ("750").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if ms, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

// config.go - Configuration loaded from environment variables.

package configs

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable of the service. Load fills defaults for
// everything that is not required.
type Config struct {
	// Server
	Port           string
	AllowedOrigins string
	MaxUploadBytes int64

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text

	// OCR engine
	TesseractLanguages string // "+"-joined, e.g. "nor+eng"
	TesseractDPI       int

	// Tier 1: assistant service (OpenAI Assistants API)
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIAssistantID     string
	AssistantTimeout      time.Duration
	AssistantPollInterval time.Duration

	// Tier 2: vision completion (Gemini)
	GeminiAPIKey  string
	GeminiModel   string
	VisionTimeout time.Duration

	// Scoring and reconciliation. Empirically tuned to the known supplier
	// layout, which is why they are configuration and not constants.
	TotalTolerance      float64
	MismatchPenalty     int
	ConfidenceFloor     int
	ConfidenceThreshold int

	// Supplier defaults filled by the canonical mapper. Empty disables.
	DefaultCustomerNumber string
	DefaultOrderAddress   string

	// Extraction-run archive (optional; empty URI disables it)
	MongoURI    string
	MongoDBName string
}

// Load reads configuration from the environment. A .env file is honored
// for local development.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		TesseractLanguages: getEnv("TESSERACT_LANGUAGES", "nor+eng"),
		TesseractDPI:       getEnvInt("TESSERACT_DPI", 300),

		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAssistantID:     getEnv("OPENAI_ASSISTANT_ID", ""),
		AssistantTimeout:      getEnvDuration("ASSISTANT_TIMEOUT", 30*time.Second),
		AssistantPollInterval: getEnvDuration("ASSISTANT_POLL_INTERVAL", time.Second),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		VisionTimeout: getEnvDuration("VISION_TIMEOUT", 15*time.Second),

		TotalTolerance:      getEnvFloat("TOTAL_TOLERANCE", 2.0),
		MismatchPenalty:     getEnvInt("MISMATCH_PENALTY", 20),
		ConfidenceFloor:     getEnvInt("CONFIDENCE_FLOOR", 50),
		ConfidenceThreshold: getEnvInt("CONFIDENCE_THRESHOLD", 60),

		DefaultCustomerNumber: getEnv("DEFAULT_CUSTOMER_NUMBER", ""),
		DefaultOrderAddress:   getEnv("DEFAULT_ORDER_ADDRESS", ""),

		MongoURI:    getEnv("MONGO_URI", ""),
		MongoDBName: getEnv("MONGO_DB_NAME", "invoice_extraction"),
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	JWTSecret          string
	Port               string
	DatabasePath       string
	LogLevel           string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	MaxUploadSizeBytes int64

	// Live price lookup
	PriceCacheTTL      time.Duration
	PriceFetchTimeout  time.Duration
	PriceFetchDisabled bool

	// AI advisor (Google Gemini)
	GeminiAPIKey   string
	GeminiModel    string
	AdvisorTimeout time.Duration

	// Notification delivery
	NotificationsEnabled bool
	MailgunDomain        string
	MailgunPrivateAPIKey string
	SenderEmail          string
	SenderName           string

	AllowedOrigin string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes")
	if jwtSecret == "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes" {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	accessTokenExpiry := getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 60*time.Minute)
	refreshTokenExpiry := getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour)

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	geminiAPIKey := getEnv("GEMINI_API_KEY", "")
	if geminiAPIKey == "" {
		log.Println("Info: GEMINI_API_KEY not set. AI replacement suggestions will fall back to the static table.")
	}

	notificationsEnabled := getEnvAsBool("NOTIFICATIONS_ENABLED", false)
	mailgunDomain := getEnv("MAILGUN_DOMAIN", "")
	mailgunKey := getEnv("MAILGUN_PRIVATE_API_KEY", "")
	if notificationsEnabled && (mailgunDomain == "" || mailgunKey == "") {
		log.Println("WARNING: NOTIFICATIONS_ENABLED is true but MAILGUN_DOMAIN or MAILGUN_PRIVATE_API_KEY is not set. Notifications will be disabled.")
		notificationsEnabled = false
	}

	Cfg = &AppConfig{
		JWTSecret:          jwtSecret,
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./optionstaxhub.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		AccessTokenExpiry:  accessTokenExpiry,
		RefreshTokenExpiry: refreshTokenExpiry,
		MaxUploadSizeBytes: maxUploadSizeBytes,

		PriceCacheTTL:      getEnvAsDuration("PRICE_CACHE_TTL", 5*time.Minute),
		PriceFetchTimeout:  getEnvAsDuration("PRICE_FETCH_TIMEOUT", 20*time.Second),
		PriceFetchDisabled: getEnvAsBool("PRICE_FETCH_DISABLED", false),

		GeminiAPIKey:   geminiAPIKey,
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AdvisorTimeout: getEnvAsDuration("ADVISOR_TIMEOUT", 15*time.Second),

		NotificationsEnabled: notificationsEnabled,
		MailgunDomain:        mailgunDomain,
		MailgunPrivateAPIKey: mailgunKey,
		SenderEmail:          getEnv("SENDER_EMAIL", "noreply@example.com"),
		SenderName:           getEnv("SENDER_NAME", "OptionsTaxHub"),

		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, PriceCacheTTL=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.PriceCacheTTL)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("WARNING: Invalid boolean for %s: '%s'. Using default %v.", key, valueStr, fallback)
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("WARNING: Invalid duration for %s: '%s'. Using default %s. Error: %v", key, valueStr, fallback, err)
		return fallback
	}
	return value
}

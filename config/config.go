package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port    string
	LogMode string
	JWTKey  string

	DBDriver       string // postgres, mysql, sqlite
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBMaxOpenConns int

	MailProvider   string // console, sendgrid, resend
	MailFrom       string
	MailFromName   string
	SendGridAPIKey string
	ResendAPIKey   string
	ResendBaseURL  string
	MailTimeout    time.Duration // per send, provider request included

	FrontendBaseURL string
	Timezone        string

	SequenceCron          string
	LifecycleCron         string
	SequenceBatchSize     int
	NeverLoggedInDays     int
	AbandonedLearningDays int
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:    getEnv("PORT", "3000"),
		LogMode: getEnv("LOG_MODE", "development"),
		JWTKey:  getEnv("JWT_SECRET_KEY", "defaultSecret"),

		DBDriver:       getEnv("DB_DRIVER", "postgres"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "academy"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),

		MailProvider:   getEnv("MAIL_PROVIDER", "console"),
		MailFrom:       getEnv("MAIL_FROM", "hello@accredipro.academy"),
		MailFromName:   getEnv("MAIL_FROM_NAME", "AccrediPro Academy"),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		ResendAPIKey:   getEnv("RESEND_API_KEY", ""),
		ResendBaseURL:  getEnv("RESEND_BASE_URL", "https://api.resend.com"),
		MailTimeout:    time.Duration(getEnvInt("MAIL_TIMEOUT_SECONDS", 10)) * time.Second,

		FrontendBaseURL: getEnv("FRONTEND_BASE_URL", "http://localhost:3001"),
		Timezone:        getEnv("APP_TIMEZONE", "America/New_York"),

		SequenceCron:          getEnv("SEQUENCE_CRON", "0 * * * *"),
		LifecycleCron:         getEnv("LIFECYCLE_CRON", "30 6 * * *"),
		SequenceBatchSize:     getEnvInt("SEQUENCE_BATCH_SIZE", 200),
		NeverLoggedInDays:     getEnvInt("NEVER_LOGGED_IN_DAYS", 3),
		AbandonedLearningDays: getEnvInt("ABANDONED_LEARNING_DAYS", 7),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.MailProvider == "sendgrid" && AppConfig.SendGridAPIKey == "" {
		log.Println("Warning: MAIL_PROVIDER=sendgrid without SENDGRID_API_KEY.")
	}
	if AppConfig.MailProvider == "resend" && AppConfig.ResendAPIKey == "" {
		log.Println("Warning: MAIL_PROVIDER=resend without RESEND_API_KEY.")
	}

	return AppConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	TelegramBotToken      string
	TelegramWebhookSecret string // X-Telegram-Bot-Api-Secret-Token check, empty disables

	SweepTriggerToken string // shared secret for the delivery-sweep trigger
	SweepIntervalMin  int    // cmd/sweeper tick period, minutes
	SweepTargetURL    string // cmd/sweeper: base URL of the API service

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiryDays     int

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion string

	NotionBaseURL string // override for tests, default https://api.notion.com

	DefaultTimezone  string // fallback when a link carries no detected timezone
	DefaultMorningAt string
	DefaultEveningAt string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	DeliveryConfigs string
	DeliveryStates  string
	LinkCodes       string
	Prompts         string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			DeliveryConfigs: getEnv("DYNAMO_TABLE_DELIVERY_CONFIGS", "delivery_configs"),
			DeliveryStates:  getEnv("DYNAMO_TABLE_DELIVERY_STATES", "delivery_states"),
			LinkCodes:       getEnv("DYNAMO_TABLE_LINK_CODES", "link_codes"),
			Prompts:         getEnv("DYNAMO_TABLE_PROMPTS", "prompts"),
		},

		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),

		SweepTriggerToken: getEnv("SWEEP_TRIGGER_TOKEN", ""),
		SweepIntervalMin:  getEnvInt("SWEEP_INTERVAL_MINUTES", 5),
		SweepTargetURL:    getEnv("SWEEP_TARGET_URL", "http://localhost:3000"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiryDays:     getEnvInt("JWT_EXPIRY_DAYS", 7),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		NotionBaseURL: getEnv("NOTION_BASE_URL", "https://api.notion.com"),

		DefaultTimezone:  getEnv("DEFAULT_TIMEZONE", "UTC"),
		DefaultMorningAt: getEnv("DEFAULT_MORNING_AT", "08:00"),
		DefaultEveningAt: getEnv("DEFAULT_EVENING_AT", "20:00"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

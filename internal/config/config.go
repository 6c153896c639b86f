package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

type Config struct {
	Mode      Mode
	HTTPAddr  string
	PublicURL string

	LogLevel  string
	LogPretty bool

	DBDriver string
	DBDSN    string

	AuthHMACSecret string
	AdminEmails    []string

	BlobDriver   string // fs|s3
	BlobBasePath string // fs root
	S3Bucket     string
	S3Prefix     string
	S3Region     string
	S3Endpoint   string // S3-compatible endpoint, path-style addressing
	S3AccessKey  string
	S3SecretKey  string
	ExportTTL    time.Duration

	CORSOrigins []string

	StripeWebhookSecret string
	StripePriceMap      map[string]string // price ID -> plan
	FreeTierRoundLimit  int

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	QueueBatchSize   int
	QueueMaxRetries  int
	QueueConcurrency int
	QueueSchedule    string
	QueueInline      bool // run the queue inside the gateway

	RateLimitEnabled    bool
	RateLimitAPIPerMin  int
	RateLimitAuthPerMin int
	RateLimitOTPPerHour int
	RateLimitIdleTTL    time.Duration
}

// Load reads a .env file when present, then the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	mode := Mode(envOr("MODE", string(ModeDev)))
	prices := map[string]string{}
	for plan, key := range map[string]string{
		"premium":   "STRIPE_PRICE_PREMIUM",
		"unlimited": "STRIPE_PRICE_UNLIMITED",
		"lifetime":  "STRIPE_PRICE_LIFETIME",
	} {
		if id := os.Getenv(key); id != "" {
			prices[id] = plan
		}
	}
	return Config{
		Mode:      mode,
		HTTPAddr:  envOr("HTTP_ADDR", ":8080"),
		PublicURL: envOr("PUBLIC_URL", "http://localhost:3000"),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogPretty: envBool("LOG_PRETTY", mode == ModeDev),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", "file:handicappin.db"),

		AuthHMACSecret: envOr("AUTH_HMAC_SECRET", "dev-secret-change-me"),
		AdminEmails:    csvOr("ADMIN_EMAILS", ""),

		BlobDriver:   envOr("BLOB_DRIVER", "fs"),
		BlobBasePath: envOr("BLOB_BASE_PATH", "./data"),
		S3Bucket:     os.Getenv("S3_BUCKET"),
		S3Prefix:     envOr("S3_PREFIX", "handicappin/"),
		S3Region:     envOr("S3_REGION", "us-east-1"),
		S3Endpoint:   os.Getenv("S3_ENDPOINT"),
		S3AccessKey:  os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretKey:  os.Getenv("S3_SECRET_ACCESS_KEY"),
		ExportTTL:    envDuration("EXPORT_URL_TTL", 15*time.Minute),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),

		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePriceMap:      prices,
		FreeTierRoundLimit:  envInt("FREE_TIER_ROUND_LIMIT", 25),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: envInt("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: envOr("SMTP_FROM", "Handicappin <no-reply@handicappin.com>"),

		QueueBatchSize:   envInt("HANDICAP_QUEUE_BATCH_SIZE", 25),
		QueueMaxRetries:  envInt("HANDICAP_MAX_RETRIES", 3),
		QueueConcurrency: envInt("HANDICAP_QUEUE_CONCURRENCY", 5),
		QueueSchedule:    envOr("HANDICAP_QUEUE_SCHEDULE", "@every 1m"),
		QueueInline:      envBool("HANDICAP_QUEUE_INLINE", true),

		RateLimitEnabled:    envBool("RATE_LIMIT_ENABLED", true),
		RateLimitAPIPerMin:  envInt("RATE_LIMIT_API_PER_MIN", 60),
		RateLimitAuthPerMin: envInt("RATE_LIMIT_AUTH_PER_MIN", 10),
		RateLimitOTPPerHour: envInt("RATE_LIMIT_OTP_PER_HOUR", 5),
		RateLimitIdleTTL:    envDuration("RATE_LIMIT_IDLE_TTL", 10*time.Minute),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

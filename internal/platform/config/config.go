package config

import (
	"os"
	"strconv"
)

// Config is the immutable configuration value handed to constructors at
// startup. Components receive it (or a sub-struct) explicitly; nothing reads
// the environment after FromEnv returns.
type Config struct {
	Addr string

	PostgresURL  string
	RedisURL     string
	KafkaBrokers string
	AuditTopic   string

	Portal    Portal
	Deadlines Deadlines
	SMTP      SMTP
	Reviewer  Reviewer
	RateLimit RateLimit
}

// Portal identifies the responsible company on outbound mail and builds the
// public validation link.
type Portal struct {
	BaseURL     string
	CompanyName string
	CompanyRUT  string
	DPOEmail    string
	DPOPhone    string
}

// Deadlines gathers the time windows of the request lifecycle.
type Deadlines struct {
	ResponseBusinessDays int
	TokenExpiryMinutes   int
	DownloadLinkHours    int
}

// SMTP configures the outbound mail transport. An empty Host disables real
// delivery and the server falls back to logging notifications.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Reviewer configures the back-office login. PasswordHash is a bcrypt hash;
// plaintext never appears in configuration.
type Reviewer struct {
	Username      string
	PasswordHash  string
	JWTSigningKey string
}

// RateLimit bounds public intake traffic per client IP.
type RateLimit struct {
	Disabled       bool
	RequestsPerMin int
}

// FromEnv builds the Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:         envOr("ARCOP_ADDR", ":8080"),
		PostgresURL:  os.Getenv("ARCOP_POSTGRES_URL"),
		RedisURL:     os.Getenv("ARCOP_REDIS_URL"),
		KafkaBrokers: os.Getenv("ARCOP_KAFKA_BROKERS"),
		AuditTopic:   envOr("ARCOP_AUDIT_TOPIC", "arcop.audit"),
		Portal: Portal{
			BaseURL:     envOr("ARCOP_BASE_URL", "http://localhost:3000"),
			CompanyName: envOr("ARCOP_COMPANY_NAME", "Empresa XYZ SpA"),
			CompanyRUT:  envOr("ARCOP_COMPANY_RUT", "12.345.678-5"),
			DPOEmail:    envOr("ARCOP_DPO_EMAIL", "dpo@empresa.cl"),
			DPOPhone:    envOr("ARCOP_DPO_PHONE", "+56 2 2345 6789"),
		},
		Deadlines: Deadlines{
			ResponseBusinessDays: envIntOr("ARCOP_RESPONSE_BUSINESS_DAYS", 15),
			TokenExpiryMinutes:   envIntOr("ARCOP_TOKEN_EXPIRY_MINUTES", 30),
			DownloadLinkHours:    envIntOr("ARCOP_DOWNLOAD_LINK_HOURS", 48),
		},
		SMTP: SMTP{
			Host:     os.Getenv("ARCOP_SMTP_HOST"),
			Port:     envIntOr("ARCOP_SMTP_PORT", 587),
			Username: os.Getenv("ARCOP_SMTP_USERNAME"),
			Password: os.Getenv("ARCOP_SMTP_PASSWORD"),
			From:     envOr("ARCOP_SMTP_FROM", "Portal ARCOP <no-reply@empresa.cl>"),
		},
		Reviewer: Reviewer{
			Username:      envOr("ARCOP_REVIEWER_USERNAME", "dpo"),
			PasswordHash:  os.Getenv("ARCOP_REVIEWER_PASSWORD_HASH"),
			JWTSigningKey: envOr("ARCOP_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		RateLimit: RateLimit{
			Disabled:       os.Getenv("ARCOP_RATELIMIT_DISABLED") == "true",
			RequestsPerMin: envIntOr("ARCOP_RATELIMIT_PER_MINUTE", 10),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

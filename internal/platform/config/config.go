package config

import (
	"os"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr            string
	DatabaseURL     string
	WebhookTimeout  time.Duration
	EmbedSigningKey string
	EmbedTokenTTL   time.Duration
	ExpirySweep     time.Duration
}

// Defaults, overridable through the environment.
var (
	WebhookTimeout = 30 * time.Second
	EmbedTokenTTL  = 24 * time.Hour
	ExpirySweep    = time.Hour
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("TALEWEAVE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	if v := os.Getenv("WEBHOOK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			WebhookTimeout = d
		}
	}
	if v := os.Getenv("EMBED_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			EmbedTokenTTL = d
		}
	}
	if v := os.Getenv("CONSENT_EXPIRY_SWEEP"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			ExpirySweep = d
		}
	}

	signingKey := os.Getenv("EMBED_SIGNING_KEY")
	if signingKey == "" {
		// Use a default for development - should be overridden in production
		signingKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:            addr,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		WebhookTimeout:  WebhookTimeout,
		EmbedSigningKey: signingKey,
		EmbedTokenTTL:   EmbedTokenTTL,
		ExpirySweep:     ExpirySweep,
	}
}

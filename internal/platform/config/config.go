package config

import (
	"os"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr                  string
	LogLevel              string
	AdminTokenHash        string
	AttestationSigningKey string
	AttestationIssuer     string
	AttestationAudience   string
	AttestationTTL        time.Duration
	VerificationCacheTTL  time.Duration
	TrustedProxies        []string
	RequestTimeout        time.Duration
	ShutdownTimeout       time.Duration
}

// VerificationCacheTTL bounds retention for cached verification verdicts.
var VerificationCacheTTL = 5 * time.Minute

// AttestationTTL bounds the validity window of signed verification receipts.
var AttestationTTL = 15 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("HETU_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	cacheTTLStr := os.Getenv("VERIFICATION_CACHE_TTL")
	if cacheTTLStr != "" {
		if duration, err := time.ParseDuration(cacheTTLStr); err == nil {
			VerificationCacheTTL = duration
		}
	}

	attestationTTLStr := os.Getenv("ATTESTATION_TTL")
	if attestationTTLStr != "" {
		if duration, err := time.ParseDuration(attestationTTLStr); err == nil {
			AttestationTTL = duration
		}
	}

	signingKey := os.Getenv("ATTESTATION_SIGNING_KEY")
	if signingKey == "" {
		// Use a default for development - should be overridden in production
		signingKey = "dev-secret-key-change-in-production"
	}

	issuer := os.Getenv("ATTESTATION_ISSUER")
	if issuer == "" {
		issuer = "hetu-verifier"
	}

	audience := os.Getenv("ATTESTATION_AUDIENCE")
	if audience == "" {
		audience = "hetu-clients"
	}

	return Server{
		Addr:                  addr,
		LogLevel:              os.Getenv("LOG_LEVEL"),
		AdminTokenHash:        os.Getenv("ADMIN_TOKEN_HASH"),
		AttestationSigningKey: signingKey,
		AttestationIssuer:     issuer,
		AttestationAudience:   audience,
		AttestationTTL:        AttestationTTL,
		VerificationCacheTTL:  VerificationCacheTTL,
		TrustedProxies:        splitList(os.Getenv("TRUSTED_PROXIES")),
		RequestTimeout:        durationFromEnv("REQUEST_TIMEOUT", 10*time.Second),
		ShutdownTimeout:       durationFromEnv("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

func durationFromEnv(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return duration
}

// splitList parses a comma-separated env value, dropping empty entries.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Development-only JWT fallbacks. They keep the service bootable without any
// configuration; a real deployment must override all three.
const (
	devJWTSecret   = "YourVeryLongAndSecureSecretKeyForJWTTokenGeneration2024!@#$%^&*()MustBeAtLeast32Characters"
	devJWTIssuer   = "PriceArbitrageAPI"
	devJWTAudience = "PriceArbitrageClient"
)

type Config struct {
	Env  string
	Port int

	DBURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret           string
	JWTIssuer           string
	JWTAudience         string
	JWTAccessTTLMinutes int

	LockoutMaxAttempts int
	LockoutMinutes     int

	AdminEmail    string
	AdminUsername string
	AdminPassword string

	CORSOrigins []string

	MaxBodyBytes int64

	OTLPEndpoint string
}

func Load() Config {
	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:           getEnv("JWT_SECRET", devJWTSecret),
		JWTIssuer:           getEnv("JWT_ISSUER", devJWTIssuer),
		JWTAudience:         getEnv("JWT_AUDIENCE", devJWTAudience),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 60),

		LockoutMaxAttempts: getEnvInt("LOCKOUT_MAX_ATTEMPTS", 5),
		LockoutMinutes:     getEnvInt("LOCKOUT_MINUTES", 5),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		CORSOrigins: getEnvList("CORS_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		MaxBodyBytes: int64(getEnvInt("MAX_BODY_BYTES", 64<<10)),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
	}
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "pricearb")
	pass := getEnv("DB_PASSWORD", "pricearb")
	name := getEnv("DB_NAME", "pricearb")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c Config) LockoutDuration() time.Duration {
	return time.Duration(c.LockoutMinutes) * time.Minute
}

// WithTimeout derives a deadline context from the caller's context, so
// request-scoped work inherits trace propagation and client-disconnect
// cancellation. A nil parent falls back to Background.
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}

	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)

	if v == "" {
		return fallback
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	if len(out) == 0 {
		return fallback
	}

	return out
}

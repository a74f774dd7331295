package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseDriver      string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	NotificationChannel string
	JWTSecret           string
	JWTTTL              time.Duration
	StatsCacheTTL       time.Duration
	PassingPercentage   float64
	BcryptCost          int
	SeedAdminUsername   string
	SeedAdminPassword   string
	SSEKeepAlive        time.Duration
	AuthRateLimit       int
	RequestRateLimit    int
	RateLimitWindow     time.Duration
	CORSAllowOrigins    string
}

// IsDevelopment reports whether the service runs in the development environment.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
// Variables use the QUIZMASTER_ prefix, e.g. QUIZMASTER_DATABASE_URL.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("QUIZMASTER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "QuizMaster API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("notification.channel", "quizmaster")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("stats.cache_ttl", "1m")
	v.SetDefault("passing_percentage", 60)
	v.SetDefault("bcrypt_cost", 10)
	v.SetDefault("sse.keepalive", "15s")
	v.SetDefault("rate_limit.auth", 10)
	v.SetDefault("rate_limit.requests", 5)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("cors.allow_origins", "*")

	jwtTTL, err := parseDuration(v, "jwt.ttl")
	if err != nil {
		return Config{}, err
	}
	statsTTL, err := parseDuration(v, "stats.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	keepAlive, err := parseDuration(v, "sse.keepalive")
	if err != nil {
		return Config{}, err
	}
	window, err := parseDuration(v, "rate_limit.window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseDriver:      strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		NotificationChannel: v.GetString("notification.channel"),
		JWTSecret:           v.GetString("jwt.secret"),
		JWTTTL:              jwtTTL,
		StatsCacheTTL:       statsTTL,
		PassingPercentage:   v.GetFloat64("passing_percentage"),
		BcryptCost:          v.GetInt("bcrypt_cost"),
		SeedAdminUsername:   strings.TrimSpace(v.GetString("seed_admin.username")),
		SeedAdminPassword:   v.GetString("seed_admin.password"),
		SSEKeepAlive:        keepAlive,
		AuthRateLimit:       v.GetInt("rate_limit.auth"),
		RequestRateLimit:    v.GetInt("rate_limit.requests"),
		RateLimitWindow:     window,
		CORSAllowOrigins:    strings.TrimSpace(v.GetString("cors.allow_origins")),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}
	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	if cfg.PassingPercentage <= 0 || cfg.PassingPercentage > 100 {
		return Config{}, fmt.Errorf("passing percentage must be within (0, 100]")
	}
	if cfg.JWTTTL <= 0 {
		return Config{}, fmt.Errorf("jwt ttl must be positive")
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

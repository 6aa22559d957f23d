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
	AppName           string
	AppEnv            string
	AppPort           string
	LogLevel          string
	RequestTimeout    time.Duration
	DatabaseURL       string
	DatabaseMaxOpen   int
	DatabaseMaxIdle   int
	RedisURL          string
	IdentityCacheTTL  time.Duration
	ClerkSecretKey    string
	ClerkAPIURL       string
	JWTSecret         string
	JWTPublicKey      string
	NATSURL           string
	EventsPrefix      string
	AIDefaultProvider string
	AIRateLimit       int
	AIRateWindow      time.Duration
	AIRequestTimeout  time.Duration
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	GeminiAPIKey      string
	GeminiBaseURL     string
	GeminiModel       string
	AnthropicAPIKey   string
	AnthropicBaseURL  string
	AnthropicModel    string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("QNA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "QnA API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("request.timeout", "15s")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("identity.cache_ttl", "10m")
	v.SetDefault("clerk.api_url", "https://api.clerk.com/v1")
	v.SetDefault("events.subject_prefix", "qna")
	v.SetDefault("ai.default_provider", "openai")
	v.SetDefault("ai.rate_limit", 20)
	v.SetDefault("ai.rate_window", "1m")
	v.SetDefault("ai.request_timeout", "2m")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("anthropic.base_url", "https://api.anthropic.com/v1")
	v.SetDefault("anthropic.model", "claude-3-5-haiku-latest")

	requestTimeout, err := parseDuration(v, "request.timeout")
	if err != nil {
		return Config{}, err
	}

	identityTTL, err := parseDuration(v, "identity.cache_ttl")
	if err != nil {
		return Config{}, err
	}

	rateWindow, err := parseDuration(v, "ai.rate_window")
	if err != nil {
		return Config{}, err
	}

	aiTimeout, err := parseDuration(v, "ai.request_timeout")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		LogLevel:          strings.ToLower(v.GetString("log.level")),
		RequestTimeout:    requestTimeout,
		DatabaseURL:       v.GetString("database.url"),
		DatabaseMaxOpen:   v.GetInt("database.max_open_conns"),
		DatabaseMaxIdle:   v.GetInt("database.max_idle_conns"),
		RedisURL:          v.GetString("redis.url"),
		IdentityCacheTTL:  identityTTL,
		ClerkSecretKey:    v.GetString("clerk.secret_key"),
		ClerkAPIURL:       strings.TrimRight(v.GetString("clerk.api_url"), "/"),
		JWTSecret:         v.GetString("auth.jwt_secret"),
		JWTPublicKey:      v.GetString("auth.jwt_public_key"),
		NATSURL:           v.GetString("nats.url"),
		EventsPrefix:      v.GetString("events.subject_prefix"),
		AIDefaultProvider: strings.ToLower(v.GetString("ai.default_provider")),
		AIRateLimit:       v.GetInt("ai.rate_limit"),
		AIRateWindow:      rateWindow,
		AIRequestTimeout:  aiTimeout,
		OpenAIAPIKey:      v.GetString("openai.api_key"),
		OpenAIBaseURL:     v.GetString("openai.base_url"),
		OpenAIModel:       v.GetString("openai.model"),
		GeminiAPIKey:      v.GetString("gemini.api_key"),
		GeminiBaseURL:     v.GetString("gemini.base_url"),
		GeminiModel:       v.GetString("gemini.model"),
		AnthropicAPIKey:   v.GetString("anthropic.api_key"),
		AnthropicBaseURL:  strings.TrimRight(v.GetString("anthropic.base_url"), "/"),
		AnthropicModel:    v.GetString("anthropic.model"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	if cfg.JWTSecret == "" && cfg.JWTPublicKey == "" {
		return Config{}, fmt.Errorf("either a jwt secret or a jwt public key must be provided")
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	if cfg.AIRequestTimeout < cfg.RequestTimeout {
		cfg.AIRequestTimeout = cfg.RequestTimeout
	}

	if cfg.AIRateLimit <= 0 {
		cfg.AIRateLimit = 20
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

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
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	EventChannel           string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	ResumeMaxSizeMB        int
	ResumeCacheTTL         time.Duration
	TikaURL                string
	AIProvider             string
	OpenAIAPIKey           string
	OpenAIModel            string
	AnthropicAPIKey        string
	AnthropicModel         string
	GeminiAPIKey           string
	GeminiModel            string
	AITimeout              time.Duration
	AIMaxTokens            int
	GenerationMock         bool
	GenerationFallback     bool
	ReviewMock             bool
	ReviewFallback         bool
	ReviewConcurrency      int
	GenerateRateLimit      int
	GenerateRateWindow     time.Duration
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
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Assessment API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.channel", "gema")
	v.SetDefault("cloudinary.folder", "gema/resumes")
	v.SetDefault("resume.max_size_mb", 5)
	v.SetDefault("resume.cache_ttl", "1h")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.max_tokens", 2048)
	v.SetDefault("assessment.generation_mock", false)
	v.SetDefault("assessment.generation_fallback", true)
	v.SetDefault("assessment.review_mock", false)
	v.SetDefault("assessment.review_fallback", true)
	v.SetDefault("assessment.review_concurrency", 5)
	v.SetDefault("assessment.rate_limit", 5)
	v.SetDefault("assessment.rate_window", "1m")

	cacheTTL, err := parseDuration(v, "resume.cache_ttl", time.Hour)
	if err != nil {
		return Config{}, err
	}
	aiTimeout, err := parseDuration(v, "ai.timeout", 60*time.Second)
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration(v, "assessment.rate_window", time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		EventChannel:           v.GetString("events.channel"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		ResumeMaxSizeMB:        v.GetInt("resume.max_size_mb"),
		ResumeCacheTTL:         cacheTTL,
		TikaURL:                strings.TrimSpace(v.GetString("tika.url")),
		AIProvider:             strings.ToLower(strings.TrimSpace(v.GetString("ai.provider"))),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		OpenAIModel:            v.GetString("openai_model"),
		AnthropicAPIKey:        v.GetString("anthropic_api_key"),
		AnthropicModel:         v.GetString("anthropic_model"),
		GeminiAPIKey:           v.GetString("gemini_api_key"),
		GeminiModel:            v.GetString("gemini_model"),
		AITimeout:              aiTimeout,
		AIMaxTokens:            v.GetInt("ai.max_tokens"),
		GenerationMock:         v.GetBool("assessment.generation_mock"),
		GenerationFallback:     v.GetBool("assessment.generation_fallback"),
		ReviewMock:             v.GetBool("assessment.review_mock"),
		ReviewFallback:         v.GetBool("assessment.review_fallback"),
		ReviewConcurrency:      v.GetInt("assessment.review_concurrency"),
		GenerateRateLimit:      v.GetInt("assessment.rate_limit"),
		GenerateRateWindow:     rateWindow,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.ResumeMaxSizeMB <= 0 {
		cfg.ResumeMaxSizeMB = 5
	}

	if cfg.ReviewConcurrency <= 0 {
		cfg.ReviewConcurrency = 5
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return fallback, nil
	}
	return d, nil
}

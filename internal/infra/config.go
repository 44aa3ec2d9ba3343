package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	// Prompt refinement (chat completions).
	PromptAPIKey  string
	PromptModel   string
	PromptBaseURL string

	// Image generation fallback chain.
	ImagePrimaryAPIKey    string
	ImagePrimaryBaseURL   string
	ImageSecondaryAPIKey  string
	ImageSecondaryBaseURL string

	// Asynchronous image-to-video provider.
	VideoAPIKey       string
	VideoBaseURL      string
	VideoPollInterval time.Duration

	// Speech synthesis.
	SpeechAPIKey  string
	SpeechModel   string
	SpeechBaseURL string

	// OAuth client-credentials for the stock search integration.
	SearchClientID     string
	SearchClientSecret string
	SearchTokenURL     string
	SearchBaseURL      string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		PromptAPIKey:  os.Getenv("PROMPT_API_KEY"),
		PromptModel:   getEnv("PROMPT_MODEL", "gpt-4o-mini"),
		PromptBaseURL: getEnv("PROMPT_BASE_URL", "https://api.openai.com/v1"),

		ImagePrimaryAPIKey:    os.Getenv("IMAGE_PRIMARY_API_KEY"),
		ImagePrimaryBaseURL:   getEnv("IMAGE_PRIMARY_BASE_URL", "https://fal.run/fal-ai/flux-pro"),
		ImageSecondaryAPIKey:  os.Getenv("IMAGE_SECONDARY_API_KEY"),
		ImageSecondaryBaseURL: getEnv("IMAGE_SECONDARY_BASE_URL", "https://fal.run/fal-ai/fast-sdxl"),

		VideoAPIKey:       os.Getenv("VIDEO_API_KEY"),
		VideoBaseURL:      getEnv("VIDEO_BASE_URL", "https://queue.fal.run/fal-ai/kling-video"),
		VideoPollInterval: time.Second * time.Duration(getEnvInt("VIDEO_POLL_INTERVAL_SECONDS", 3)),

		SpeechAPIKey:  os.Getenv("SPEECH_API_KEY"),
		SpeechModel:   getEnv("SPEECH_MODEL", "tts-1"),
		SpeechBaseURL: getEnv("SPEECH_BASE_URL", "https://api.openai.com/v1"),

		SearchClientID:     os.Getenv("SEARCH_CLIENT_ID"),
		SearchClientSecret: os.Getenv("SEARCH_CLIENT_SECRET"),
		SearchTokenURL:     getEnv("SEARCH_TOKEN_URL", "https://api.stocksearch.example/oauth/token"),
		SearchBaseURL:      getEnv("SEARCH_BASE_URL", "https://api.stocksearch.example/v1"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   splitEnv("ALLOWED_ORIGINS"),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitEnv(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port           string   `env:"PORT" envDefault:"3000"`
	Environment    string   `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	FrontendURL    string   `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`

	Auth     AuthConfig
	Database DatabaseConfig
	AI       AIConfig
	Stripe   StripeConfig
	Cache    CacheConfig
}

type AuthConfig struct {
	Auth0Domain   string `env:"AUTH0_DOMAIN"`
	Auth0Audience string `env:"AUTH0_AUDIENCE"`
	// TestMode accepts requests without a bearer token. Refused in production.
	TestMode bool `env:"AUTH_TEST_MODE" envDefault:"false"`
}

type DatabaseConfig struct {
	UseSQLite  bool   `env:"USE_SQLITE" envDefault:"false"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"launchpad.db"`
	Host       string `env:"DB_HOST" envDefault:"localhost"`
	Port       string `env:"DB_PORT" envDefault:"5432"`
	User       string `env:"DB_USER" envDefault:"postgres"`
	Password   string `env:"DB_PASSWORD"`
	Name       string `env:"DB_NAME" envDefault:"launchpad"`
	SSLMode    string `env:"DB_SSLMODE" envDefault:"disable"`
}

type AIConfig struct {
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `env:"OPENAI_BASE_URL"`
	AnthropicAPIKey  string        `env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string        `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com"`
	GoogleAPIKey     string        `env:"GOOGLE_AI_STUDIO_API_KEY"`
	ProviderTimeout  time.Duration `env:"AI_PROVIDER_TIMEOUT" envDefault:"60s"`
}

type StripeConfig struct {
	PublicKey         string `env:"STRIPE_PUBLIC_KEY"`
	SecretKey         string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret     string `env:"STRIPE_WEBHOOK_SECRET"`
	StarterPriceID    string `env:"STRIPE_STARTER_PRICE_ID"`
	ProPriceID        string `env:"STRIPE_PRO_PRICE_ID"`
	EnterprisePriceID string `env:"STRIPE_ENTERPRISE_PRICE_ID"`
}

type CacheConfig struct {
	RedisURL     string        `env:"REDIS_URL"`
	UserCacheTTL time.Duration `env:"USER_CACHE_TTL" envDefault:"5m"`
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, using environment variables")
	}
	return Parse()
}

func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.Auth.TestMode {
			return errors.New("AUTH_TEST_MODE cannot be enabled in production")
		}
		if c.Auth.Auth0Domain == "" {
			return errors.New("AUTH0_DOMAIN is required in production")
		}
	}
	if c.AI.ProviderTimeout <= 0 {
		return fmt.Errorf("AI_PROVIDER_TIMEOUT must be positive, got %s", c.AI.ProviderTimeout)
	}
	return nil
}

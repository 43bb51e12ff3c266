package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ----------------------------
	// Database
	// ----------------------------
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:""`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBName     string `envconfig:"DB_NAME" default:"campaigns"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// ----------------------------
	// Generation
	// ----------------------------
	OpenAIKey     string  `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIModel   string  `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIRPS     float64 `envconfig:"OPENAI_RPS" default:"2"`
	StageMinMS    int     `envconfig:"STAGE_MIN_MS" default:"800"`
	StageMaxMS    int     `envconfig:"STAGE_MAX_MS" default:"1500"`
	FollowUpDelay int     `envconfig:"FOLLOW_UP_DELAY_DAYS" default:"3"`

	// ----------------------------
	// Draft sessions
	// ----------------------------
	DraftIdleTTL       time.Duration `envconfig:"DRAFT_IDLE_TTL" default:"30m"`
	DraftSavedTTL      time.Duration `envconfig:"DRAFT_SAVED_TTL" default:"5m"`
	DraftSweepInterval time.Duration `envconfig:"DRAFT_SWEEP_INTERVAL" default:"1m"`

	// ----------------------------
	// Messaging
	// ----------------------------
	AMQPURL string `envconfig:"AMQP_URL" default:""`

	// ----------------------------
	// HTTP
	// ----------------------------
	APIPort     string `envconfig:"API_PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.StageMaxMS < cfg.StageMinMS {
		cfg.StageMaxMS = cfg.StageMinMS
	}
	return &cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) StageHolds() (min, max time.Duration) {
	return time.Duration(c.StageMinMS) * time.Millisecond, time.Duration(c.StageMaxMS) * time.Millisecond
}

// Package config loads service settings from SESAME_* environment variables.
package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/veilleux/sesame/internal/exchange"
	"github.com/veilleux/sesame/internal/objstore"
)

type Config struct {
	Port     string `env:"SESAME_PORT, default=8080"`
	DBPath   string `env:"SESAME_DB_PATH, default=sesame.db"`
	BaseURL  string `env:"SESAME_BASE_URL, default=http://localhost:8080"`
	Env      string `env:"SESAME_ENV, default=development"`
	LogLevel  string `env:"SESAME_LOG_LEVEL, default=info"`
	LogFormat string `env:"SESAME_LOG_FORMAT, default=text"`

	// SecretKey signs session tokens. When unset a random key is generated
	// at startup, which invalidates all sessions on restart.
	SecretKey string `env:"SESAME_SECRET_KEY"`

	// TokenExpiration is the sliding session window in seconds.
	TokenExpiration int `env:"SESAME_TOKEN_EXPIRATION, default=3600"`

	SMTPHost     string `env:"SESAME_SMTP_HOST"`
	SMTPPort     int    `env:"SESAME_SMTP_PORT, default=587"`
	SMTPFrom     string `env:"SESAME_SMTP_FROM"`
	SMTPPassword string `env:"SESAME_SMTP_PASSWORD"`

	S3Endpoint  string `env:"SESAME_S3_ENDPOINT"`
	S3Region    string `env:"SESAME_S3_REGION, default=us-east-1"`
	S3Bucket    string `env:"SESAME_S3_BUCKET"`
	S3AccessKey string `env:"SESAME_S3_ACCESS_KEY"`
	S3SecretKey string `env:"SESAME_S3_SECRET_KEY"`

	GeminiAPIKey string `env:"SESAME_GEMINI_API_KEY"`
	SonarAPIKey  string `env:"SESAME_SONAR_API_KEY"`
}

// Load reads the environment. Generated indicates the secret key was not
// provided and a random one was minted.
func Load(ctx context.Context) (*Config, bool, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, false, fmt.Errorf("load config: %w", err)
	}

	var generated bool
	if cfg.SecretKey == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, false, fmt.Errorf("generate secret key: %w", err)
		}
		cfg.SecretKey = hex.EncodeToString(buf)
		generated = true
	}

	return &cfg, generated, nil
}

func (c *Config) Production() bool {
	return c.Env == "production"
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.TokenExpiration) * time.Second
}

func (c *Config) S3() objstore.S3Config {
	return objstore.S3Config{
		Endpoint:  c.S3Endpoint,
		Region:    c.S3Region,
		Bucket:    c.S3Bucket,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
	}
}

func (c *Config) Exchange() exchange.Config {
	return exchange.Config{
		GeminiAPIKey: c.GeminiAPIKey,
		SonarAPIKey:  c.SonarAPIKey,
	}
}

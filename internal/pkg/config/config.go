package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port          string        `env:"PORT,            default=8080"`
	Env           string        `env:"ENV,             default=development"`
	JWTSecret     string        `env:"JWT_SECRET,      required"`
	JWTTTL        time.Duration `env:"JWT_TTL,         default=24h"`
	LogLevel      string        `env:"LOG_LEVEL,       default=info"`
	PublicBaseURL string        `env:"PUBLIC_BASE_URL, default=http://localhost:8080"`
	OTelEndpoint  string        `env:"OTEL_ENDPOINT"`
	BodyLimit     string        `env:"HTTP_BODY_LIMIT, default=6M"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Upload    UploadConfig
	Family    FamilyConfig
	AuthState AuthStateConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=family_circle"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type UploadConfig struct {
	MaxBytes int64 `env:"UPLOAD_MAX_BYTES, default=5242880"`
}

type FamilyConfig struct {
	InviteCodeMaxAttempts int `env:"INVITE_CODE_MAX_ATTEMPTS, default=5"`
}

type AuthStateConfig struct {
	Workers int `env:"AUTH_STATE_WORKERS, default=8"`
}

// IsDevelopment reports whether human-readable logs should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration from l.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	return &cfg, nil
}

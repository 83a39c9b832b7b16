// Package config loads server settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonathan/resume-rag/internal/blob"
	"github.com/jonathan/resume-rag/internal/matching"
	"github.com/jonathan/resume-rag/internal/server/ratelimit"
)

const (
	// DefaultConfigName is looked up in the working directory when no
	// config file is given.
	DefaultConfigName = "resume-rag"

	defaultMaxUploadBytes = 50 << 20
)

// Config is the resolved server configuration.
type Config struct {
	Addr            string
	CORSOrigins     []string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration

	// DatabaseURL selects PostgreSQL persistence. Empty keeps everything in
	// memory.
	DatabaseURL string

	// BlobDir stores originals on disk unless MinIO is configured.
	BlobDir string
	MinIO   *blob.MinIOConfig

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT is nil when no secret is configured.
	JWT      *JWTConfig
	Password *PasswordConfig

	GeminiAPIKey string
	GeminiModel  string

	SkillsFile    string
	SnippetWindow int
	MatchWeights  matching.Weights
	RateLimit     *ratelimit.Config
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"server.addr":             "ADDR",
	"server.cors-origins":     "CORS_ORIGINS",
	"server.max-upload-bytes": "MAX_UPLOAD_BYTES",
	"server.shutdown-timeout": "SHUTDOWN_TIMEOUT",

	"database.url": "DATABASE_URL",

	"storage.dir":              "BLOB_DIR",
	"storage.minio.endpoint":   "MINIO_ENDPOINT",
	"storage.minio.access-key": "MINIO_ACCESS_KEY",
	"storage.minio.secret-key": "MINIO_SECRET_KEY",
	"storage.minio.bucket":     "MINIO_BUCKET",
	"storage.minio.region":     "MINIO_REGION",
	"storage.minio.use-ssl":    "MINIO_USE_SSL",

	"redis.addr":     "REDIS_ADDR",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",

	"auth.jwt-secret":      "JWT_SECRET",
	"auth.jwt-expiration":  "JWT_EXPIRATION_HOURS",
	"auth.bcrypt-cost":     "BCRYPT_COST",
	"auth.password-pepper": "PASSWORD_PEPPER",

	"gemini.api-key": "GEMINI_API_KEY",
	"gemini.model":   "GEMINI_MODEL",

	"search.skills-file":    "SKILLS_FILE",
	"search.snippet-window": "SNIPPET_WINDOW",
	"match.skill-weight":    "MATCH_SKILL_WEIGHT",
	"match.text-weight":     "MATCH_TEXT_WEIGHT",

	"rate-limit.enabled":          "RATE_LIMIT_ENABLED",
	"rate-limit.default-limit":    "RATE_LIMIT_DEFAULT_LIMIT",
	"rate-limit.default-window":   "RATE_LIMIT_DEFAULT_WINDOW",
	"rate-limit.cleanup-interval": "RATE_LIMIT_CLEANUP_INTERVAL",
	"rate-limit.whitelist":        "RATE_LIMIT_WHITELIST",
	"rate-limit.blacklist":        "RATE_LIMIT_BLACKLIST",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors-origins", "*")
	v.SetDefault("server.max-upload-bytes", defaultMaxUploadBytes)
	v.SetDefault("server.shutdown-timeout", 30*time.Second)

	v.SetDefault("storage.dir", "data/blobs")
	v.SetDefault("storage.minio.bucket", "resumes")
	v.SetDefault("storage.minio.use-ssl", false)

	v.SetDefault("auth.jwt-expiration", 24)
	v.SetDefault("auth.bcrypt-cost", 12)

	v.SetDefault("search.snippet-window", 12)
	weights := matching.DefaultWeights()
	v.SetDefault("match.skill-weight", weights.Skill)
	v.SetDefault("match.text-weight", weights.Text)

	rl := ratelimit.DefaultConfig()
	v.SetDefault("rate-limit.enabled", rl.Enabled)
	v.SetDefault("rate-limit.default-limit", rl.DefaultLimit)
	v.SetDefault("rate-limit.default-window", rl.DefaultWindow)
	v.SetDefault("rate-limit.cleanup-interval", rl.CleanupInterval)
}

// Load reads path (YAML) when given, otherwise resume-rag.yaml from the
// working directory if present, and overlays environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Addr:            v.GetString("server.addr"),
		CORSOrigins:     splitList(v.GetString("server.cors-origins")),
		MaxUploadBytes:  v.GetInt64("server.max-upload-bytes"),
		ShutdownTimeout: v.GetDuration("server.shutdown-timeout"),
		DatabaseURL:     v.GetString("database.url"),
		BlobDir:         v.GetString("storage.dir"),
		RedisAddr:       v.GetString("redis.addr"),
		RedisPassword:   v.GetString("redis.password"),
		RedisDB:         v.GetInt("redis.db"),
		GeminiAPIKey:    v.GetString("gemini.api-key"),
		GeminiModel:     v.GetString("gemini.model"),
		SkillsFile:      v.GetString("search.skills-file"),
		SnippetWindow:   v.GetInt("search.snippet-window"),
		MatchWeights: matching.Weights{
			Skill: v.GetFloat64("match.skill-weight"),
			Text:  v.GetFloat64("match.text-weight"),
		},
		RateLimit: &ratelimit.Config{
			Enabled:         v.GetBool("rate-limit.enabled"),
			DefaultLimit:    v.GetInt("rate-limit.default-limit"),
			DefaultWindow:   v.GetDuration("rate-limit.default-window"),
			CleanupInterval: v.GetDuration("rate-limit.cleanup-interval"),
			Whitelist:       ratelimit.ParseIPList(v.GetString("rate-limit.whitelist")),
			Blacklist:       ratelimit.ParseIPList(v.GetString("rate-limit.blacklist")),
			EndpointConfigs: ratelimit.DefaultEndpointConfigs(),
		},
	}

	if endpoint := v.GetString("storage.minio.endpoint"); endpoint != "" {
		cfg.MinIO = &blob.MinIOConfig{
			Endpoint:  endpoint,
			AccessKey: v.GetString("storage.minio.access-key"),
			SecretKey: v.GetString("storage.minio.secret-key"),
			Bucket:    v.GetString("storage.minio.bucket"),
			Region:    v.GetString("storage.minio.region"),
			UseSSL:    v.GetBool("storage.minio.use-ssl"),
		}
	}

	if secret := v.GetString("auth.jwt-secret"); secret != "" {
		jwtCfg, err := NewJWTConfig(secret, v.GetInt("auth.jwt-expiration"))
		if err != nil {
			return nil, err
		}
		cfg.JWT = jwtCfg
	}

	pw, err := NewPasswordConfig(v.GetInt("auth.bcrypt-cost"), v.GetString("auth.password-pepper"))
	if err != nil {
		return nil, err
	}
	cfg.Password = pw

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no safe fallback.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config error: server address is empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config error: max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.SnippetWindow < 1 {
		return fmt.Errorf("config error: snippet window must be at least 1, got %d", c.SnippetWindow)
	}
	if err := c.MatchWeights.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.MinIO != nil && c.MinIO.Bucket == "" {
		return fmt.Errorf("config error: MINIO_BUCKET is required with MINIO_ENDPOINT")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

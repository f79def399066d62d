package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

const EnvPrefix = "AIRMANGO"

type Config struct {
	Port            string   `envconfig:"PORT" default:"8080"`
	DatabaseURL     string   `envconfig:"DATABASE_URL" required:"true"`
	AllowOrigins    []string `envconfig:"ALLOW_ORIGINS" default:"*"`
	LogLevel        string   `envconfig:"LOG_LEVEL" default:"info"`
	LogstashTCPAddr string   `envconfig:"LOGSTASH_TCP_ADDR"`

	JWTSecret   string        `envconfig:"JWT_SECRET" required:"true"`
	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	IdentityTTL time.Duration `envconfig:"IDENTITY_CACHE_TTL" default:"1m"`

	MinIO   MinIOConfig  `envconfig:"MINIO"`
	Uploads UploadConfig `envconfig:"UPLOAD"`

	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
}

// MinIOConfig holds two credential pairs: the scoped direct pair used for
// client-side uploads, and the privileged pair used by the relay and by
// server-side cleanup.
type MinIOConfig struct {
	Endpoint            string `envconfig:"ENDPOINT" required:"true"`
	UseSSL              bool   `envconfig:"USE_SSL" default:"false"`
	DirectAccessKey     string `envconfig:"DIRECT_ACCESS_KEY" required:"true"`
	DirectSecretKey     string `envconfig:"DIRECT_SECRET_KEY" required:"true"`
	PrivilegedAccessKey string `envconfig:"ACCESS_KEY" required:"true"`
	PrivilegedSecretKey string `envconfig:"SECRET_KEY" required:"true"`
	PublicURL           string `envconfig:"PUBLIC_URL"`
	BucketDayMedia      string `envconfig:"BUCKET_DAY_MEDIA" default:"day-media"`
	BucketCovers        string `envconfig:"BUCKET_COVERS" default:"trip-covers"`
}

type UploadConfig struct {
	// RelayURL is the base URL of the bulk upload relay. Empty falls back to an
	// in-process privileged client.
	RelayURL       string        `envconfig:"RELAY_URL"`
	Concurrency    int           `envconfig:"CONCURRENCY" default:"6"`
	BucketCacheTTL time.Duration `envconfig:"BUCKET_CACHE_TTL" default:"10m"`
	MaxMemory      int64         `envconfig:"MAX_MEMORY" default:"33554432"`
	RelayTimeout   time.Duration `envconfig:"RELAY_TIMEOUT" default:"2m"`
}

// Load reads .env when present, then the AIRMANGO_ environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg(".env file not loaded")
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.AllowOrigins = splitAndTrim(cfg.AllowOrigins)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	required := map[string]string{
		"DATABASE_URL":            c.DatabaseURL,
		"JWT_SECRET":              c.JWTSecret,
		"MINIO_ENDPOINT":          c.MinIO.Endpoint,
		"MINIO_DIRECT_ACCESS_KEY": c.MinIO.DirectAccessKey,
		"MINIO_DIRECT_SECRET_KEY": c.MinIO.DirectSecretKey,
		"MINIO_ACCESS_KEY":        c.MinIO.PrivilegedAccessKey,
		"MINIO_SECRET_KEY":        c.MinIO.PrivilegedSecretKey,
		"MINIO_BUCKET_DAY_MEDIA":  c.MinIO.BucketDayMedia,
		"MINIO_BUCKET_COVERS":     c.MinIO.BucketCovers,
	}
	for _, key := range slices.Sorted(maps.Keys(required)) {
		if strings.TrimSpace(required[key]) == "" {
			errs = append(errs, fmt.Errorf("%s_%s is required", EnvPrefix, key))
		}
	}
	if c.MinIO.BucketDayMedia != "" && c.MinIO.BucketDayMedia == c.MinIO.BucketCovers {
		errs = append(errs, errors.New("day media and cover buckets must differ"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.IdentityTTL <= 0 {
		errs = append(errs, errors.New("identity cache ttl must be positive"))
	}
	if c.Uploads.Concurrency <= 0 {
		errs = append(errs, errors.New("upload concurrency must be positive"))
	}
	if c.Uploads.BucketCacheTTL <= 0 {
		errs = append(errs, errors.New("bucket cache ttl must be positive"))
	}
	if c.Uploads.MaxMemory <= 0 {
		errs = append(errs, errors.New("max multipart memory must be positive"))
	}
	return errors.Join(errs...)
}

func splitAndTrim(input []string) []string {
	out := make([]string, 0, len(input))
	for _, p := range input {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

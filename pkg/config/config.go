package config

import (
	"fmt"
	"time"
)

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `env:"WORKSPACE_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"WORKSPACE_PG_PORT" env-default:"5432"`
	Database string `env:"WORKSPACE_PG_DATABASE" env-default:"workspace_db"`
	User     string `env:"WORKSPACE_PG_USER" env-default:"workspace"`
	Password string `env:"WORKSPACE_PG_PASSWORD" env-default:"pwd"`
}

// URL renders the pgx connection string
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		d.User, d.Password, d.Host, d.Port, d.Database)
}

// IdpConfig holds identity provider settings. In local mode tokens are
// verified with a shared HMAC secret; in remote mode they are sent to
// the provider's verification endpoint.
type IdpConfig struct {
	Mode     string `env:"IDP_MODE" env-default:"local"`
	BaseURL  string `env:"IDP_BASE_URL" env-default:"http://localhost:4000"`
	Secret   string `env:"IDP_JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer   string `env:"IDP_JWT_ISSUER" env-default:""`
	Audience string `env:"IDP_JWT_AUDIENCE" env-default:""`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `env:"WORKSPACE_HOST" env-default:"localhost"`
	Port uint16 `env:"WORKSPACE_PORT" env-default:"4000"`
}

// Addr renders the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	Enabled         bool          `env:"RATE_LIMIT_ENABLED" env-default:"true"`
	PerIPBurst      int           `env:"RATE_LIMIT_PER_IP_BURST" env-default:"100"`
	PerAccountBurst int           `env:"RATE_LIMIT_PER_ACCOUNT_BURST" env-default:"200"`
	AdminBurst      int           `env:"RATE_LIMIT_ADMIN_BURST" env-default:"30"`
	BucketTTL       time.Duration `env:"RATE_LIMIT_BUCKET_TTL" env-default:"1h"`
}

// Config is the full application configuration
type Config struct {
	DatabaseConfig  DatabaseConfig
	IdpConfig       IdpConfig
	ServerConfig    ServerConfig
	RateLimitConfig RateLimitConfig
}

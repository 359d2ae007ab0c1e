// Package config handles configuration for the server component,
// including defaults, JSON file overlay, environment variables, and
// command-line flags.
package config

import "time"

// Config holds runtime settings for the AuthVault server.
//
// Fields:
//   - HTTPAddr: bind address for the public HTTP endpoint.
//   - DatabaseDSN: storage DSN; postgres://... selects PostgreSQL (pgx),
//     sqlite://path selects an embedded SQLite file.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Required; the server
//     refuses to start without it.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - BcryptCost: bcrypt work factor for password hashing.
//   - S3AccessKey / S3SecretKey: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
//   - PresignValidityDuration: lifetime of presigned download URLs.
type Config struct {
	HTTPAddr                     string
	DatabaseDSN                  string
	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	BcryptCost                   int
	S3AccessKey                  string
	S3SecretKey                  string
	S3Bucket                     string
	S3Region                     string
	S3BaseEndpoint               string
	PresignValidityDuration      time.Duration
}

// LoadDefaults populates Config with development defaults. SecretKey is left
// empty on purpose: signing secrets must always come from the environment,
// a config file, or a flag.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8000"
	c.DatabaseDSN = "sqlite://dev.db"
	c.SecretKey = ""
	c.AccessTokenValidityDuration = 900 * time.Second
	c.RefreshTokenValidityDuration = 30 * 24 * time.Hour
	c.BcryptCost = 12
	c.S3AccessKey = "miniouser"
	c.S3SecretKey = "miniopassword123"
	c.S3Bucket = "uploads"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://minio:9000"
	c.PresignValidityDuration = 1 * time.Hour
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, then environment variables, and finally
// command-line flags. Later sources win.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvConfig mirrors the environment variables recognized by the server.
// Durations are given as whole seconds, matching the deployment convention
// (ACCESS_TOKEN_EXPIRE_SECONDS=900 and friends).
type EnvConfig struct {
	HTTPAddr                  string `env:"HTTP_ADDR"`
	DatabaseDSN               string `env:"DATABASE_URL"`
	SecretKey                 string `env:"JWT_SECRET"`
	AccessTokenExpireSeconds  int    `env:"ACCESS_TOKEN_EXPIRE_SECONDS"`
	RefreshTokenExpireSeconds int    `env:"REFRESH_TOKEN_EXPIRE_SECONDS"`
	BcryptCost                int    `env:"BCRYPT_ROUNDS"`
	S3AccessKey               string `env:"STORAGE_ACCESS_KEY"`
	S3SecretKey               string `env:"STORAGE_SECRET_KEY"`
	S3Bucket                  string `env:"STORAGE_BUCKET"`
	S3Region                  string `env:"STORAGE_REGION"`
	S3BaseEndpoint            string `env:"STORAGE_ENDPOINT"`
	PresignExpireSeconds      int    `env:"PRESIGN_EXPIRE_SECONDS"`
}

// parseEnv overlays Config with values from environment variables. Only
// variables that are actually set override the current values. Malformed
// values (e.g. a non-numeric ACCESS_TOKEN_EXPIRE_SECONDS) cause a panic.
func parseEnv(config *Config) {
	c := &EnvConfig{}
	if err := env.Parse(c); err != nil {
		panic(err)
	}

	if c.HTTPAddr != "" {
		config.HTTPAddr = c.HTTPAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenExpireSeconds != 0 {
		config.AccessTokenValidityDuration = time.Duration(c.AccessTokenExpireSeconds) * time.Second
	}
	if c.RefreshTokenExpireSeconds != 0 {
		config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenExpireSeconds) * time.Second
	}
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.S3AccessKey != "" {
		config.S3AccessKey = c.S3AccessKey
	}
	if c.S3SecretKey != "" {
		config.S3SecretKey = c.S3SecretKey
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
	if c.PresignExpireSeconds != 0 {
		config.PresignValidityDuration = time.Duration(c.PresignExpireSeconds) * time.Second
	}
}

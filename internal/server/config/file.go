package config

import (
	"github.com/dmitrijs2005/pmvault/internal/flagx"
	"github.com/dmitrijs2005/pmvault/internal/timex"
)

// fileConfig is the on-disk shape of Config. timex.Duration accepts both
// "15m" strings and integer nanoseconds.
type fileConfig struct {
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN      string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey        string         `json:"secret_key" yaml:"secret_key"`
	MaxTokenTTL      timex.Duration `json:"max_token_ttl" yaml:"max_token_ttl"`
	S3RootUser       string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket         string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region         string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	LogBackend       string         `json:"log_backend" yaml:"log_backend"`
	LogFormat        string         `json:"log_format" yaml:"log_format"`
	LogLevel         string         `json:"log_level" yaml:"log_level"`
}

func parseFile(cfg *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	var fc fileConfig
	if err := flagx.DecodeFile(path, &fc); err != nil {
		panic(err)
	}

	setString(&cfg.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.SecretKey, fc.SecretKey)
	setString(&cfg.S3RootUser, fc.S3RootUser)
	setString(&cfg.S3RootPassword, fc.S3RootPassword)
	setString(&cfg.S3Bucket, fc.S3Bucket)
	setString(&cfg.S3Region, fc.S3Region)
	setString(&cfg.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&cfg.LogBackend, fc.LogBackend)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.LogLevel, fc.LogLevel)
	if fc.MaxTokenTTL.Duration > 0 {
		cfg.MaxTokenTTL = fc.MaxTokenTTL.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Package config loads the ANP runtime's settings from configs/anpd.yaml
// (or environment variables, ANPD_-prefixed) with spf13/viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Domain is one virtual host this server is configured to serve.
type Domain struct {
	Host string
	Port string
}

// Config is the fully resolved runtime configuration.
type Config struct {
	HTTPPort      int
	DataRoot      string
	Domains       []Domain
	CORSOrigins   []string
	RateLimitRPS  int
	BodyLimitByte int64

	DatabaseURL string // empty disables the Postgres-backed audit ledger

	JWTSecret string
	JWTIssuer string

	UseFrameworkServer  bool
	FrameworkServerURL  string
	FallbackToLocal     bool
	UpstreamTimeout     time.Duration
	HostedPollInterval  time.Duration
	ContactTokenTTL     time.Duration
	ResultRetentionTime time.Duration
}

// Load reads configs/anpd.yaml (if present) plus ANPD_-prefixed
// environment variables into a Config, applying the defaults below.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("anpd")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath(".")
	v.SetEnvPrefix("anpd")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 9527)
	v.SetDefault("server.data_root", "data")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.body_limit_bytes", 1<<20)
	v.SetDefault("server.domains", []string{"localhost:9527"})

	v.SetDefault("database.url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "anpd")

	v.SetDefault("framework.use_framework_server", false)
	v.SetDefault("framework.url", "")
	v.SetDefault("framework.fallback_to_local", true)
	v.SetDefault("framework.upstream_timeout", "10s")

	v.SetDefault("hosted.poll_interval", "5s")
	v.SetDefault("hosted.result_retention", "168h")
	v.SetDefault("contacts.token_ttl", "24h")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	domains, err := parseDomains(v.GetStringSlice("server.domains"))
	if err != nil {
		return nil, err
	}

	upstreamTimeout, err := time.ParseDuration(v.GetString("framework.upstream_timeout"))
	if err != nil {
		return nil, fmt.Errorf("parse framework.upstream_timeout: %w", err)
	}
	pollInterval, err := time.ParseDuration(v.GetString("hosted.poll_interval"))
	if err != nil {
		return nil, fmt.Errorf("parse hosted.poll_interval: %w", err)
	}
	retention, err := time.ParseDuration(v.GetString("hosted.result_retention"))
	if err != nil {
		return nil, fmt.Errorf("parse hosted.result_retention: %w", err)
	}
	tokenTTL, err := time.ParseDuration(v.GetString("contacts.token_ttl"))
	if err != nil {
		return nil, fmt.Errorf("parse contacts.token_ttl: %w", err)
	}

	return &Config{
		HTTPPort:            v.GetInt("server.port"),
		DataRoot:            v.GetString("server.data_root"),
		Domains:             domains,
		CORSOrigins:         v.GetStringSlice("server.cors_origins"),
		RateLimitRPS:        v.GetInt("server.rate_limit_rps"),
		BodyLimitByte:       v.GetInt64("server.body_limit_bytes"),
		DatabaseURL:         v.GetString("database.url"),
		JWTSecret:           v.GetString("auth.jwt_secret"),
		JWTIssuer:           v.GetString("auth.jwt_issuer"),
		UseFrameworkServer:  v.GetBool("framework.use_framework_server"),
		FrameworkServerURL:  v.GetString("framework.url"),
		FallbackToLocal:     v.GetBool("framework.fallback_to_local"),
		UpstreamTimeout:     upstreamTimeout,
		HostedPollInterval:  pollInterval,
		ResultRetentionTime: retention,
		ContactTokenTTL:     tokenTTL,
	}, nil
}

// parseDomains splits "host:port" entries. An entry with no port, or with
// an empty host or port, is rejected with an error.
func parseDomains(entries []string) ([]Domain, error) {
	out := make([]Domain, 0, len(entries))
	for _, e := range entries {
		host, port, ok := strings.Cut(e, ":")
		if !ok || host == "" || port == "" {
			return nil, fmt.Errorf("invalid server.domains entry %q, expected host:port", e)
		}
		out = append(out, Domain{Host: host, Port: port})
	}
	return out, nil
}

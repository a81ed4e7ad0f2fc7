package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	RedisURL            string
	NatsURL             string
	NatsSubject         string
	JWTSecret           string
	CORSAllowOrigins    string
	ActiveCodesCacheTTL time.Duration
	RedeemRateLimit     int
	RedeemRateWindow    time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EDUKITA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Edukita API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.subject", "edukita.enrollments")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("active_codes.cache_ttl", "2m")
	v.SetDefault("redeem.rate_limit", 5)
	v.SetDefault("redeem.rate_window", "1m")

	cacheTTL, err := time.ParseDuration(v.GetString("active_codes.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid active codes cache ttl: %w", err)
	}

	rateWindow, err := time.ParseDuration(v.GetString("redeem.rate_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid redeem rate window: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NatsURL:             v.GetString("nats.url"),
		NatsSubject:         v.GetString("nats.subject"),
		JWTSecret:           v.GetString("jwt.secret"),
		CORSAllowOrigins:    v.GetString("cors.allow_origins"),
		ActiveCodesCacheTTL: cacheTTL,
		RedeemRateLimit:     v.GetInt("redeem.rate_limit"),
		RedeemRateWindow:    rateWindow,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.RedeemRateLimit <= 0 {
		cfg.RedeemRateLimit = 5
	}

	return cfg, nil
}

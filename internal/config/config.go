package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the review API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	RedisURL          string
	AuthServiceURL    string
	AuthKeyTTL        time.Duration
	AuthFetchTimeout  time.Duration
	AggregateCacheTTL time.Duration
	NATSURL           string
	NATSSubjectBase   string
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
	v.SetEnvPrefix("PEERFLOW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "PeerFlow Review API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("auth.key_ttl", "5m")
	v.SetDefault("auth.fetch_timeout", "10s")
	v.SetDefault("aggregate.cache_ttl", "2m")
	v.SetDefault("nats.subject_base", "peerflow.reviews")

	keyTTL, err := parseDurationSetting(v, "auth.key_ttl")
	if err != nil {
		return Config{}, fmt.Errorf("invalid auth key ttl: %w", err)
	}

	fetchTimeout, err := parseDurationSetting(v, "auth.fetch_timeout")
	if err != nil {
		return Config{}, fmt.Errorf("invalid auth fetch timeout: %w", err)
	}

	cacheTTL, err := parseDurationSetting(v, "aggregate.cache_ttl")
	if err != nil {
		return Config{}, fmt.Errorf("invalid aggregate cache ttl: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		AuthServiceURL:    strings.TrimRight(v.GetString("auth.service_url"), "/"),
		AuthKeyTTL:        keyTTL,
		AuthFetchTimeout:  fetchTimeout,
		AggregateCacheTTL: cacheTTL,
		NATSURL:           v.GetString("nats.url"),
		NATSSubjectBase:   v.GetString("nats.subject_base"),
	}

	if cfg.AuthServiceURL == "" && cfg.AppEnv != "development" {
		return Config{}, fmt.Errorf("auth service url must be provided outside development")
	}

	return cfg, nil
}

func parseDurationSetting(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return 0, fmt.Errorf("value must not be empty")
	}

	return time.ParseDuration(raw)
}

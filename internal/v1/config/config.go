// Package config validates and holds the hub's environment configuration,
// following the ValidateEnv pattern of the teacher's config package: read
// every variable up front, collect every validation failure, and fail
// fast with all of them at once rather than one at a time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds validated environment configuration for the hub process.
type Config struct {
	Port     string
	GoEnv    string
	LogLevel string

	AllowedOrigins string

	IceServerWhitelist string
	StunServers        string
	TurnServerConfigs  string
	TurnServers        string
	TurnUsername       string
	TurnCredential     string

	BusEnabled  bool
	RedisAddr   string
	RedisPasswd string

	TracingEnabled bool
	OtlpEndpoint   string
}

// ValidateEnv reads and validates the process environment, returning a
// ready-to-use Config or every validation failure joined into one error.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var problems []string

	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
	} else if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got %q)", cfg.Port))
	}

	cfg.GoEnv = getEnvOrDefault("GO_ENV", "production")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")

	cfg.IceServerWhitelist = os.Getenv("ICE_SERVER_WHITELIST")
	cfg.StunServers = os.Getenv("STUN_SERVERS")
	cfg.TurnServerConfigs = os.Getenv("TURN_SERVER_CONFIGS")
	cfg.TurnServers = os.Getenv("TURN_SERVERS")
	cfg.TurnUsername = os.Getenv("TURN_USERNAME")
	cfg.TurnCredential = os.Getenv("TURN_CREDENTIAL")

	cfg.BusEnabled = os.Getenv("BUS_ENABLED") == "true"
	if cfg.BusEnabled {
		cfg.RedisAddr = getEnvOrDefault("REDIS_ADDR", "localhost:6379")
		cfg.RedisPasswd = os.Getenv("REDIS_PASSWORD")
	}

	cfg.TracingEnabled = os.Getenv("TRACING_ENABLED") == "true"
	if cfg.TracingEnabled {
		cfg.OtlpEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		if cfg.OtlpEndpoint == "" {
			problems = append(problems, "OTEL_EXPORTER_OTLP_ENDPOINT is required when TRACING_ENABLED=true")
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return cfg, nil
}

// Lookup implements ice.ConfigSource: it exposes the subset of Config
// relevant to ICE server resolution as a key/value lookup, the same
// environment-variable names ValidateEnv already read.
func (c *Config) Lookup(key string) (string, bool) {
	switch key {
	case "ICE_SERVER_WHITELIST":
		return lookupIfSet(c.IceServerWhitelist, keySetFromEnv("ICE_SERVER_WHITELIST"))
	case "STUN_SERVERS":
		return lookupIfSet(c.StunServers, keySetFromEnv("STUN_SERVERS"))
	case "TURN_SERVER_CONFIGS":
		return lookupIfSet(c.TurnServerConfigs, keySetFromEnv("TURN_SERVER_CONFIGS"))
	case "TURN_SERVERS":
		return lookupIfSet(c.TurnServers, keySetFromEnv("TURN_SERVERS"))
	case "TURN_USERNAME":
		return lookupIfSet(c.TurnUsername, keySetFromEnv("TURN_USERNAME"))
	case "TURN_CREDENTIAL":
		return lookupIfSet(c.TurnCredential, keySetFromEnv("TURN_CREDENTIAL"))
	default:
		return "", false
	}
}

func lookupIfSet(value string, set bool) (string, bool) { return value, set }

func keySetFromEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

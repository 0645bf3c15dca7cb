package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string
	EngineID  string

	HTTPPort int
	GRPCPort int

	StorageBackend string
	DatabaseURL    string
	MaxDBConns     int
	RedisURL       string

	JWTSecret string

	KafkaBrokers   []string
	TopicDomain    string
	TopicAnalytics string
	TopicOps       string
	TopicDLQ       string

	HookTimeout time.Duration

	IdempotencyTTL     time.Duration
	EventDedupTTL      time.Duration
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		EngineID string `yaml:"engine_id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Storage struct {
		Backend     string `yaml:"backend"`
		DatabaseURL string `yaml:"database_url"`
		MaxDBConns  int    `yaml:"max_db_conns"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"storage"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Dependencies struct {
		KafkaBrokers   []string `yaml:"kafka_brokers"`
		TopicDomain    string   `yaml:"topic_domain"`
		TopicAnalytics string   `yaml:"topic_analytics"`
		TopicOps       string   `yaml:"topic_ops"`
		TopicDLQ       string   `yaml:"topic_dlq"`
	} `yaml:"dependencies"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:          "M15-Settlement-Engine",
		EngineID:           "settlement-engine",
		HTTPPort:           8080,
		GRPCPort:           9090,
		StorageBackend:     "memory",
		MaxDBConns:         10,
		TopicDomain:        "settlement-engine.domain",
		TopicAnalytics:     "settlement-engine.analytics",
		TopicOps:           "settlement-engine.ops",
		TopicDLQ:           "settlement-engine.dlq",
		HookTimeout:        5 * time.Second,
		IdempotencyTTL:     7 * 24 * time.Hour,
		EventDedupTTL:      7 * 24 * time.Hour,
		OutboxPollInterval: 2 * time.Second,
		OutboxBatchSize:    100,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.EngineID != "" {
			cfg.EngineID = f.Service.EngineID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Storage.Backend != "" {
			cfg.StorageBackend = f.Storage.Backend
		}
		cfg.DatabaseURL = f.Storage.DatabaseURL
		if f.Storage.MaxDBConns > 0 {
			cfg.MaxDBConns = f.Storage.MaxDBConns
		}
		cfg.RedisURL = f.Storage.RedisURL
		cfg.JWTSecret = f.Auth.JWTSecret
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
		}
		if f.Dependencies.TopicDomain != "" {
			cfg.TopicDomain = f.Dependencies.TopicDomain
		}
		if f.Dependencies.TopicAnalytics != "" {
			cfg.TopicAnalytics = f.Dependencies.TopicAnalytics
		}
		if f.Dependencies.TopicOps != "" {
			cfg.TopicOps = f.Dependencies.TopicOps
		}
		if f.Dependencies.TopicDLQ != "" {
			cfg.TopicDLQ = f.Dependencies.TopicDLQ
		}
	}

	cfg.StorageBackend = strings.ToLower(envOrDefault("STORAGE_BACKEND", cfg.StorageBackend))
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.EngineID = envOrDefault("ENGINE_ID", cfg.EngineID)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.TopicDomain = envOrDefault("KAFKA_TOPIC_DOMAIN", cfg.TopicDomain)
	cfg.TopicAnalytics = envOrDefault("KAFKA_TOPIC_ANALYTICS", cfg.TopicAnalytics)
	cfg.TopicOps = envOrDefault("KAFKA_TOPIC_OPS", cfg.TopicOps)
	cfg.TopicDLQ = envOrDefault("KAFKA_TOPIC_DLQ", cfg.TopicDLQ)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = envInt("MAX_DB_CONNS", cfg.MaxDBConns)
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.EventDedupTTL = time.Duration(envInt("EVENT_DEDUP_TTL_HOURS", int(cfg.EventDedupTTL.Hours()))) * time.Hour
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)

	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

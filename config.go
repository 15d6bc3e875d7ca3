package main

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the recovery service.
type Config struct {
	Port          string
	WebhookSecret string

	SnovClientID      string
	SnovClientSecret  string
	SnovListAbandoned string
	SnovListUpsell    string
	SnovListWelcome   string
	MockSnov          bool

	AbandonedThresholdMinutes int
	ScanSchedule              string

	LifecycleSNSTopicARN string
}

// LoadConfig reads configuration from environment variables. Postgres
// settings are read by the database package itself.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8084"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),

		SnovClientID:      os.Getenv("SNOV_CLIENT_ID"),
		SnovClientSecret:  os.Getenv("SNOV_CLIENT_SECRET"),
		SnovListAbandoned: os.Getenv("SNOV_LIST_ABANDONED"),
		SnovListUpsell:    os.Getenv("SNOV_LIST_UPSELL"),
		SnovListWelcome:   os.Getenv("SNOV_LIST_WELCOME"),
		MockSnov:          getEnv("MOCK_SNOV", "false") == "true",

		AbandonedThresholdMinutes: getEnvInt("ABANDONED_THRESHOLD_MINUTES", 45),
		ScanSchedule:              getEnv("SCAN_SCHEDULE", "*/5 * * * *"),

		LifecycleSNSTopicARN: os.Getenv("LIFECYCLE_SNS_TOPIC_ARN"),
	}

	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("WEBHOOK_SECRET is required")
	}
	if !cfg.MockSnov && (cfg.SnovClientID == "" || cfg.SnovClientSecret == "") {
		return nil, fmt.Errorf("SNOV_CLIENT_ID and SNOV_CLIENT_SECRET are required unless MOCK_SNOV=true")
	}
	if cfg.AbandonedThresholdMinutes <= 0 {
		return nil, fmt.Errorf("ABANDONED_THRESHOLD_MINUTES must be positive")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

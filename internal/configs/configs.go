package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppURL                 string
	DatabaseDSN            string
	RateLimit              int
	ShutdownTimeoutSeconds int
	RedisAddr              string
	EventsEnabled          bool
	EventChannelPrefix     string
	ReminderWorkers        int
	ReminderQueueSize      int
	ReminderSweepSeconds   int
	ReminderBatchSize      int
	ReminderClaimSeconds   int
	TelegramToken          string
	TelegramChatID         int64
	OTLPEndpoint           string
	ServiceName            string
	Environment            string
	LogLevel               string
}

func Load() (Config, error) {
	appHost := getEnv("APP_HOST", "127.0.0.1")
	appPort := getEnv("APP_PORT", "8080")
	redisHost := getEnv("REDIS_HOST", "127.0.0.1")
	redisPort := getEnv("REDIS_PORT", "6379")

	var errs []error
	cfg := Config{
		AppURL:                 fmt.Sprintf("%s:%s", appHost, appPort),
		DatabaseDSN:            getEnv("DATABASE_DSN", "tasks.db"),
		RateLimit:              getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120, &errs),
		ShutdownTimeoutSeconds: getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 20, &errs),
		RedisAddr:              fmt.Sprintf("%s:%s", redisHost, redisPort),
		EventsEnabled:          getEnvAsBool("EVENTS_ENABLED", false, &errs),
		EventChannelPrefix:     getEnv("EVENTS_CHANNEL_PREFIX", ""),
		ReminderWorkers:        getEnvAsInt("REMINDER_WORKERS", 2, &errs),
		ReminderQueueSize:      getEnvAsInt("REMINDER_QUEUE_SIZE", 100, &errs),
		ReminderSweepSeconds:   getEnvAsInt("REMINDER_SWEEP_SECONDS", 30, &errs),
		ReminderBatchSize:      getEnvAsInt("REMINDER_BATCH_SIZE", 50, &errs),
		ReminderClaimSeconds:   getEnvAsInt("REMINDER_CLAIM_SECONDS", 120, &errs),
		TelegramToken:          strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		TelegramChatID:         int64(getEnvAsInt("TELEGRAM_CHAT_ID", 0, &errs)),
		OTLPEndpoint:           os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:            getEnv("OTEL_SERVICE_NAME", "todo-service"),
		Environment:            getEnv("ENVIRONMENT", "development"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
	}

	errs = append(errs, validate(cfg)...)
	return cfg, errors.Join(errs...)
}

func validate(cfg Config) []error {
	var errs []error
	if cfg.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must not be empty"))
	}
	if cfg.RateLimit <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be greater than 0"))
	}
	if cfg.ReminderWorkers <= 0 {
		errs = append(errs, errors.New("REMINDER_WORKERS must be greater than 0"))
	}
	if cfg.ReminderQueueSize <= 0 {
		errs = append(errs, errors.New("REMINDER_QUEUE_SIZE must be greater than 0"))
	}
	if cfg.ReminderSweepSeconds <= 0 {
		errs = append(errs, errors.New("REMINDER_SWEEP_SECONDS must be greater than 0"))
	}
	if cfg.ReminderBatchSize <= 0 {
		errs = append(errs, errors.New("REMINDER_BATCH_SIZE must be greater than 0"))
	}
	if cfg.ReminderClaimSeconds <= 0 {
		errs = append(errs, errors.New("REMINDER_CLAIM_SECONDS must be greater than 0"))
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set"))
	}
	return errs
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int, errs *[]error) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid integer value for %s", key))
			return defaultVal
		}
		return i
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool, errs *[]error) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid boolean value for %s", key))
			return defaultVal
		}
		return b
	}
	return defaultVal
}

package app

import (
	"fmt"
	"os"
	"strings"
)

// Backend определяет выбранный адаптер хранилища.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
	BackendGorm     Backend = "gorm"
)

// Config описывает настройки запуска приложения.
type Config struct {
	Backend      Backend
	PostgresDSN  string
	MetricsAddr  string
	KafkaBrokers []string
}

// DefaultConfig возвращает конфигурацию для локального запуска:
// in-memory хранилище и метрики на :9090.
func DefaultConfig() Config {
	return Config{
		Backend:     BackendMemory,
		MetricsAddr: ":9090",
	}
}

// ConfigFromEnv читает конфигурацию из переменных окружения поверх
// значений по умолчанию: ORDERS_BACKEND, ORDERS_POSTGRES_DSN,
// ORDERS_METRICS_ADDR и KAFKA_BROKERS (список через запятую).
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if backend := os.Getenv("ORDERS_BACKEND"); backend != "" {
		switch Backend(backend) {
		case BackendMemory, BackendPostgres, BackendGorm:
			cfg.Backend = Backend(backend)
		default:
			return Config{}, fmt.Errorf("unknown ORDERS_BACKEND %q (expected memory, postgres or gorm)", backend)
		}
	}

	if dsn := os.Getenv("ORDERS_POSTGRES_DSN"); dsn != "" {
		cfg.PostgresDSN = dsn
	}
	if addr := os.Getenv("ORDERS_METRICS_ADDR"); addr != "" {
		cfg.MetricsAddr = addr
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if cfg.Backend != BackendMemory && cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("backend %q requires ORDERS_POSTGRES_DSN", cfg.Backend)
	}

	return cfg, nil
}

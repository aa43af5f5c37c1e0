// Package config собирает настройки процессов bricks из окружения.
//
// Переменные можно положить в .env рядом с бинарником: уже заданные
// в окружении значения имеют приоритет над файлом.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/shaiso/bricks/internal/mq"
	"github.com/shaiso/bricks/internal/repo"
)

// Значения по умолчанию.
const (
	DefaultAPIPort        = "8080"
	DefaultWorkerPort     = "8081"
	DefaultRunTimeout     = 30 * time.Second
	DefaultWorkerPrefetch = 4
)

// Config — настройки API, worker и CLI.
type Config struct {
	// DatabaseURL — DSN PostgreSQL (DB_URL).
	DatabaseURL string

	// RabbitMQURL — адрес брокера (RABBITMQ_URL).
	RabbitMQURL string

	// APIPort — порт HTTP API (API_PORT).
	APIPort string

	// WorkerPort — порт /healthz и /metrics worker (WORKER_PORT).
	WorkerPort string

	// RunTimeout — ограничение на одно выполнение (RUN_TIMEOUT_SEC, 0 — без ограничения).
	RunTimeout time.Duration

	// WorkerPrefetch — сколько запросов worker держит одновременно (WORKER_PREFETCH).
	WorkerPrefetch int
}

// Load читает .env (если есть) и переменные окружения.
//
// Без аргументов читается ./.env. Отсутствующий файл не ошибка,
// некорректное число — ошибка.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	timeoutSec, err := intEnv("RUN_TIMEOUT_SEC", int(DefaultRunTimeout/time.Second))
	if err != nil {
		return nil, err
	}
	if timeoutSec < 0 {
		return nil, fmt.Errorf("RUN_TIMEOUT_SEC must be >= 0, got %d", timeoutSec)
	}

	prefetch, err := intEnv("WORKER_PREFETCH", DefaultWorkerPrefetch)
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURL:    stringEnv("DB_URL", repo.DefaultDSN),
		RabbitMQURL:    stringEnv("RABBITMQ_URL", mq.DefaultURL()),
		APIPort:        stringEnv("API_PORT", DefaultAPIPort),
		WorkerPort:     stringEnv("WORKER_PORT", DefaultWorkerPort),
		RunTimeout:     time.Duration(timeoutSec) * time.Second,
		WorkerPrefetch: prefetch,
	}, nil
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

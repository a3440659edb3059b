package config

import (
	"os"
	"strconv"
	"strings"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port           string
	Environment    string
	ReadTimeout    int
	WriteTimeout   int
	LogLevel       string
	StorageBackend string
	DBPath         string
	DataDir        string
	CORSOrigins    []string

	// Сессии вне окна простоя выгружаются из памяти.
	SessionIdleMinutes  int
	SessionSweepSeconds int
}

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "3000"),
		Environment:    getEnv("ENV", "development"),
		ReadTimeout:    getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout:   getEnvAsInt("WRITE_TIMEOUT", 10),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendSQLite)),
		DBPath:         getEnv("CALC_DB_PATH", "data/db/calculator.db"),
		DataDir:        getEnv("CALC_DATA_DIR", "data/states"),
		CORSOrigins:    getEnvAsList("CORS_ORIGINS", []string{"*"}),

		SessionIdleMinutes:  getEnvAsInt("SESSION_IDLE_MINUTES", 30),
		SessionSweepSeconds: getEnvAsInt("SESSION_SWEEP_SECONDS", 60),
	}
}

// IsProduction сообщает, запущен ли сервис в production-окружении.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

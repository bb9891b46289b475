// Package config загружает конфигурацию симулятора из переменных окружения и каталог станций
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Режимы воспроизведения
const (
	ModeSequential = "sequential"
	ModeTimeBased  = "time-based"
)

const (
	// DefaultUpdateInterval один симулированный час каждые 30 секунд
	DefaultUpdateInterval = 30 * time.Second
	// DefaultSpeedFactor оставлен для совместимости и не влияет на продвижение
	DefaultSpeedFactor = 120.0
)

// ErrUnsupportedMode возвращается для всех режимов, кроме sequential
var ErrUnsupportedMode = errors.New("unsupported replay mode")

// Config содержит конфигурацию сервиса
type Config struct {
	ServerAddr      string
	DataDir         string
	FarmsFile       string
	UpdateInterval  time.Duration
	MetricsInterval time.Duration
	// SpeedFactor и Mode зарезервированы: движок всегда делает одну запись за тик.
	SpeedFactor   float64
	Mode          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LogLevel      string
	CORSOrigins   string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	addr := getEnv("SERVER_ADDR", "")
	if addr == "" {
		addr = ":" + getEnv("PORT", "3000")
	}

	update := time.Duration(getEnvInt("UPDATE_INTERVAL", int(DefaultUpdateInterval/time.Millisecond))) * time.Millisecond

	cfg := &Config{
		ServerAddr:      addr,
		DataDir:         getEnv("DATA_DIR", "./data"),
		FarmsFile:       getEnv("FARMS_FILE", ""),
		UpdateInterval:  update,
		MetricsInterval: time.Duration(getEnvInt("METRICS_INTERVAL", int(update/time.Millisecond))) * time.Millisecond,
		SpeedFactor:     getEnvFloat("REPLAY_SPEED_FACTOR", DefaultSpeedFactor),
		Mode:            getEnv("REPLAY_MODE", ModeSequential),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSOrigins:     getEnv("CORS_ORIGINS", "*"),
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет интервалы и режим воспроизведения
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("update interval must be positive, got %s", c.UpdateInterval)
	}
	if c.MetricsInterval <= 0 {
		return fmt.Errorf("metrics interval must be positive, got %s", c.MetricsInterval)
	}
	switch c.Mode {
	case ModeSequential:
	case ModeTimeBased:
		return fmt.Errorf("%w: %q is reserved and not implemented", ErrUnsupportedMode, c.Mode)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMode, c.Mode)
	}
	return nil
}

// getEnv получает переменную окружения со значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленную переменную окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

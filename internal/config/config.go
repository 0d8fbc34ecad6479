// Package config - Application configuration management.
//
// Использует Viper для:
// - Загрузки из YAML файлов
// - Переменных окружения
// - Значений по умолчанию
//
// Порядок приоритета (от высшего к низшему):
// 1. Environment variables
// 2. Config file
// 3. Default values
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// ============================================
// Main Configuration
// ============================================

// Config - главная структура конфигурации приложения.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Interest  InterestConfig  `mapstructure:"interest"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
}

// ============================================
// App Configuration
// ============================================

// AppConfig - конфигурация приложения.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
	BuildTime   string `mapstructure:"build_time"`
	GitCommit   string `mapstructure:"git_commit"`
}

// IsDevelopment возвращает true если окружение development.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction возвращает true если окружение production.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// ============================================
// Server Configuration
// ============================================

// ServerConfig - конфигурация HTTP сервера.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address возвращает полный адрес сервера.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ============================================
// Database Configuration
// ============================================

// DatabaseConfig - конфигурация PostgreSQL.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MinConnections  int32         `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// DSN возвращает строку подключения к PostgreSQL.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

// ============================================
// Redis Configuration
// ============================================

// RedisConfig - конфигурация Redis (идемпотентный кэш).
//
// Redis опционален: при Enabled=false движок переводов работает
// напрямую через журнал в PostgreSQL.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ============================================
// NATS Configuration
// ============================================

// NATSConfig - конфигурация NATS (публикация доменных событий).
//
// NATS опционален: при Enabled=false события копятся в outbox
// таблице и никуда не уходят.
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// ============================================
// Auth Configuration
// ============================================

// AuthConfig - конфигурация аутентификации.
//
// Пустой Secret отключает auth полностью - режим для локальной
// разработки и тестов.
type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// ============================================
// Telemetry Configuration
// ============================================

// TelemetryConfig - конфигурация распределённого трейсинга.
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"` // OTLP/HTTP, например "localhost:4318"
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// ============================================
// Interest Configuration
// ============================================

// InterestConfig - параметры начисления процентов.
type InterestConfig struct {
	// AnnualRate - годовая ставка как десятичная строка ("0.275" = 27.5%).
	// Строка, а не float: ставка входит в денежную арифметику.
	AnnualRate string `mapstructure:"annual_rate"`
}

// Rate парсит годовую ставку.
func (c *InterestConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.AnnualRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid annual rate %q: %w", c.AnnualRate, err)
	}
	return rate, nil
}

// ============================================
// Outbox Configuration
// ============================================

// OutboxConfig - параметры relay процесса outbox -> NATS.
type OutboxConfig struct {
	RelayInterval time.Duration `mapstructure:"relay_interval"`
	BatchSize     int           `mapstructure:"batch_size"`
	CleanupAfter  time.Duration `mapstructure:"cleanup_after"`
}

// ============================================
// CORS Configuration
// ============================================

// CORSConfig - конфигурация CORS.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ============================================
// Log Configuration
// ============================================

// LogConfig - конфигурация логирования.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// ============================================
// Configuration Loading
// ============================================

// Load загружает конфигурацию из файла и переменных окружения.
//
// configPath - путь к директории с конфигурацией (например, "configs")
// configName - имя файла конфигурации без расширения (например, "config")
//
// Поддерживаемые форматы: yaml, json, toml
func Load(configPath, configName string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/ledgerhub")

	v.SetEnvPrefix("LEDGERHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Файл не найден - используем defaults и env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv загружает конфигурацию только из переменных окружения.
func LoadFromEnv() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("LEDGERHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults устанавливает значения по умолчанию.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "LedgerHub")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", true)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "ledgerhub")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.connect_timeout", "5s")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// NATS defaults
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")

	// Auth defaults: auth выключена, пока не задан секрет
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "ledgerhub")
	v.SetDefault("auth.token_ttl", "1h")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sample_ratio", 1.0)

	// Interest defaults: 27.5% годовых
	v.SetDefault("interest.annual_rate", "0.275")

	// Outbox defaults
	v.SetDefault("outbox.relay_interval", "1s")
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.cleanup_after", "24h")

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"*"})

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// bindEnvVars привязывает переменные окружения.
func bindEnvVars(v *viper.Viper) {
	// Database (обычно передаётся через env в production)
	_ = v.BindEnv("database.host", "LEDGERHUB_DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "LEDGERHUB_DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.user", "LEDGERHUB_DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "LEDGERHUB_DATABASE_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("database.database", "LEDGERHUB_DATABASE_DATABASE", "DB_NAME")

	// Redis / NATS
	_ = v.BindEnv("redis.address", "LEDGERHUB_REDIS_ADDRESS", "REDIS_ADDR")
	_ = v.BindEnv("nats.url", "LEDGERHUB_NATS_URL", "NATS_URL")

	// Auth
	_ = v.BindEnv("auth.secret", "LEDGERHUB_AUTH_SECRET", "JWT_SECRET")

	// Server
	_ = v.BindEnv("server.port", "LEDGERHUB_SERVER_PORT", "PORT")

	// App
	_ = v.BindEnv("app.environment", "LEDGERHUB_APP_ENVIRONMENT", "ENVIRONMENT", "ENV")
}

// ============================================
// Configuration Validation
// ============================================

// Validate валидирует конфигурацию.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	rate, err := c.Interest.Rate()
	if err != nil {
		return err
	}
	if rate.IsNegative() {
		return fmt.Errorf("annual rate must be non-negative, got %s", c.Interest.AnnualRate)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be in [0,1], got %f", c.Telemetry.SampleRatio)
	}

	// Деньги через открытый API без подписи - только для разработки
	if c.App.IsProduction() && c.Auth.Secret == "" {
		return fmt.Errorf("auth secret is required in production")
	}

	return nil
}

// ============================================
// Development Helpers
// ============================================

// Development возвращает конфигурацию для разработки.
func Development() *Config {
	return &Config{
		App: AppConfig{
			Name:        "LedgerHub",
			Version:     "dev",
			Environment: "development",
			Debug:       true,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Password:        "postgres",
			Database:        "ledgerhub",
			SSLMode:         "disable",
			MaxConnections:  10,
			MinConnections:  2,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
			ConnectTimeout:  5 * time.Second,
		},
		Redis: RedisConfig{
			Enabled: false,
			Address: "localhost:6379",
		},
		NATS: NATSConfig{
			Enabled: false,
			URL:     "nats://localhost:4222",
		},
		Auth: AuthConfig{
			Secret:   "",
			Issuer:   "ledgerhub-dev",
			TokenTTL: time.Hour,
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "localhost:4318",
			Insecure:    true,
			SampleRatio: 1.0,
		},
		Interest: InterestConfig{
			AnnualRate: "0.275",
		},
		Outbox: OutboxConfig{
			RelayInterval: time.Second,
			BatchSize:     100,
			CleanupAfter:  24 * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
		},
	}
}

// Test возвращает конфигурацию для тестов.
func Test() *Config {
	cfg := Development()
	cfg.App.Environment = "test"
	cfg.Database.Database = "ledgerhub_test"
	cfg.Log.Level = "error" // Меньше шума в тестах
	return cfg
}

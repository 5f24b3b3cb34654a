package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Price source kinds
const (
	SourceSimulator = "simulator"
	SourceDatabase  = "database"
	SourceKafka     = "kafka"
)

// Store kinds
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Significance modes
const (
	SignificanceAlways    = "always"
	SignificanceThreshold = "threshold"
	SignificanceRandom    = "random"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Monitor  MonitorConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Store          string
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// KafkaConfig holds Kafka configuration. An empty broker list disables Kafka.
type KafkaConfig struct {
	Brokers           []string
	PriceTopic        string
	NotificationTopic string
	GroupID           string
}

// RedisConfig holds Redis configuration. An empty address disables Redis.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string
}

// MonitorConfig holds scheduling, dispatch and detection settings
type MonitorConfig struct {
	PriceSource             string
	InitialDelay            time.Duration
	Period                  time.Duration
	PersistTimeout          time.Duration
	DeliveryTimeout         time.Duration
	MailboxSize             int
	Significance            string
	SignificanceThreshold   float64
	SignificanceProbability float64
	BreakerFailures         int
	BreakerTimeout          time.Duration
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Store:          getEnv("STORE", StorePostgres),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "notifier"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
		},
		Kafka: KafkaConfig{
			Brokers:           getEnvList("KAFKA_BROKERS", nil),
			PriceTopic:        getEnv("KAFKA_PRICE_TOPIC", "market-prices"),
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "notifications"),
			GroupID:           getEnv("KAFKA_GROUP_ID", "market-notifier"),
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", ""),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvInt("REDIS_DB", 0),
			ChannelPrefix: getEnv("REDIS_CHANNEL_PREFIX", "notifier:notifications"),
		},
		Monitor: MonitorConfig{
			PriceSource:             getEnv("PRICE_SOURCE", SourceSimulator),
			InitialDelay:            getEnvDuration("MONITOR_INITIAL_DELAY", 5*time.Second),
			Period:                  getEnvDuration("MONITOR_PERIOD", 10*time.Second),
			PersistTimeout:          getEnvDuration("MONITOR_PERSIST_TIMEOUT", 2*time.Second),
			DeliveryTimeout:         getEnvDuration("MONITOR_DELIVERY_TIMEOUT", 100*time.Millisecond),
			MailboxSize:             getEnvInt("MONITOR_MAILBOX_SIZE", 64),
			Significance:            getEnv("MONITOR_SIGNIFICANCE", SignificanceThreshold),
			SignificanceThreshold:   getEnvFloat("MONITOR_SIGNIFICANCE_THRESHOLD", 0),
			SignificanceProbability: getEnvFloat("MONITOR_SIGNIFICANCE_PROBABILITY", 0.2),
			BreakerFailures:         getEnvInt("PRICE_BREAKER_FAILURES", 3),
			BreakerTimeout:          getEnvDuration("PRICE_BREAKER_TIMEOUT", 30*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
	}
}

// Validate checks that settings are usable together
func (c *Config) Validate() error {
	switch c.Database.Store {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("invalid STORE %q: want %s or %s", c.Database.Store, StorePostgres, StoreMemory)
	}

	m := c.Monitor
	switch m.PriceSource {
	case SourceSimulator:
	case SourceDatabase:
		if c.Database.Store != StorePostgres {
			return fmt.Errorf("PRICE_SOURCE=%s requires STORE=%s", SourceDatabase, StorePostgres)
		}
	case SourceKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("PRICE_SOURCE=%s requires KAFKA_BROKERS", SourceKafka)
		}
	default:
		return fmt.Errorf("invalid PRICE_SOURCE %q", m.PriceSource)
	}

	if m.InitialDelay < 0 {
		return fmt.Errorf("MONITOR_INITIAL_DELAY must not be negative, got %s", m.InitialDelay)
	}
	if m.Period <= 0 {
		return fmt.Errorf("MONITOR_PERIOD must be positive, got %s", m.Period)
	}
	if m.PersistTimeout <= 0 {
		return fmt.Errorf("MONITOR_PERSIST_TIMEOUT must be positive, got %s", m.PersistTimeout)
	}
	if m.DeliveryTimeout <= 0 {
		return fmt.Errorf("MONITOR_DELIVERY_TIMEOUT must be positive, got %s", m.DeliveryTimeout)
	}
	if m.MailboxSize < 1 {
		return fmt.Errorf("MONITOR_MAILBOX_SIZE must be at least 1, got %d", m.MailboxSize)
	}

	switch m.Significance {
	case SignificanceAlways:
	case SignificanceThreshold:
		if m.SignificanceThreshold < 0 {
			return fmt.Errorf("MONITOR_SIGNIFICANCE_THRESHOLD must not be negative, got %v", m.SignificanceThreshold)
		}
	case SignificanceRandom:
		if m.SignificanceProbability < 0 || m.SignificanceProbability > 1 {
			return fmt.Errorf("MONITOR_SIGNIFICANCE_PROBABILITY must be within [0, 1], got %v", m.SignificanceProbability)
		}
	default:
		return fmt.Errorf("invalid MONITOR_SIGNIFICANCE %q", m.Significance)
	}

	if m.BreakerFailures < 1 {
		return fmt.Errorf("PRICE_BREAKER_FAILURES must be at least 1, got %d", m.BreakerFailures)
	}
	return nil
}

// Addr returns the HTTP listen address
func (s *ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

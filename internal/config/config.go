package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultLeadMinutes    = 35
	defaultIdempotencyTTL = 24 * time.Hour
	defaultOrderTopic     = "campus-eats.orders"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string
	SecretKey  string
	LogFile    string

	// APP_TIMEZONE decides where "today" starts for order statistics.
	AppTimezone string

	OrderLeadMinutes string

	RedisAddr      string
	RedisPassword  string
	IdempotencyTTL string

	KafkaBrokers    string
	KafkaOrderTopic string

	ClientURL          string
	InternalServiceKey string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:           os.Getenv("DB_HOST"),
		DBUser:           os.Getenv("DB_USER"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBName:           os.Getenv("DB_NAME"),
		DBPort:           os.Getenv("DB_PORT"),
		AppPort:          os.Getenv("APP_PORT"),
		AppEnv:           os.Getenv("APP_ENV"),
		SecretKey:        os.Getenv("SECRET_KEY"),
		LogFile:          os.Getenv("LOG_FILE"),
		AppTimezone:      os.Getenv("APP_TIMEZONE"),
		OrderLeadMinutes: os.Getenv("ORDER_LEAD_MINUTES"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		IdempotencyTTL:   os.Getenv("IDEMPOTENCY_TTL"),
		KafkaBrokers:     os.Getenv("KAFKA_BROKERS"),
		KafkaOrderTopic:  os.Getenv("KAFKA_ORDER_TOPIC"),

		ClientURL:          os.Getenv("CLIENT_URL"),
		InternalServiceKey: os.Getenv("INTERNAL_SERVICE_KEY"),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	if cfg.AppPort == "" {
		cfg.AppPort = "5000"
	}

	return cfg
}

// LeadTime is the fixed delay added to creation time for the delivery estimate.
func (c *Config) LeadTime() time.Duration {
	minutes, err := strconv.Atoi(strings.TrimSpace(c.OrderLeadMinutes))
	if err != nil || minutes <= 0 {
		minutes = defaultLeadMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// Location falls back to the process local zone when APP_TIMEZONE is unset or unknown.
func (c *Config) Location() *time.Location {
	if c.AppTimezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		log.Printf("unknown APP_TIMEZONE %q, using local time", c.AppTimezone)
		return time.Local
	}
	return loc
}

func (c *Config) IdempotencyWindow() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.IdempotencyTTL))
	if err != nil || d <= 0 {
		return defaultIdempotencyTTL
	}
	return d
}

func (c *Config) OrderTopic() string {
	if c.KafkaOrderTopic == "" {
		return defaultOrderTopic
	}
	return c.KafkaOrderTopic
}

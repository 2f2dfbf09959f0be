package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string

	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	MigrationsPath string

	KafkaBrokers []string

	VippsBaseURL         string
	VippsProduction      bool
	VippsClientID        string
	VippsClientSecret    string
	VippsSubscriptionKey string
	VippsMerchantSerial  string
	VippsWebhookURL      string

	CheckoutReturnURL string
	Currency          string
	OptimisticCapture bool
}

// Load reads configuration from the environment, with a .env file as the
// local development fallback.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, err
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "memorybear"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         dbPort,
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "memorybear"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),

		KafkaBrokers: splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),

		VippsBaseURL:         getEnv("VIPPS_BASE_URL", ""),
		VippsProduction:      getEnvBool("VIPPS_PRODUCTION", false),
		VippsClientID:        getEnv("VIPPS_CLIENT_ID", ""),
		VippsClientSecret:    getEnv("VIPPS_CLIENT_SECRET", ""),
		VippsSubscriptionKey: getEnv("VIPPS_SUBSCRIPTION_KEY", ""),
		VippsMerchantSerial:  getEnv("VIPPS_MERCHANT_SERIAL_NUMBER", ""),
		VippsWebhookURL:      getEnv("VIPPS_WEBHOOK_URL", ""),

		CheckoutReturnURL: getEnv("CHECKOUT_RETURN_URL", "http://localhost:3000/checkout/complete"),
		Currency:          getEnv("CURRENCY", "DKK"),
		OptimisticCapture: getEnvBool("OPTIMISTIC_CAPTURE", true),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

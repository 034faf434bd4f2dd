package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For durations

	"github.com/joho/godotenv"      // For loading .env files
	"github.com/shopspring/decimal" // For the starting balance
	"github.com/sirupsen/logrus"    // For reporting bad values
)

// Store drivers
const (
	DriverMySQL  = "mysql"  // Production
	DriverSQLite = "sqlite" // Embedded
	DriverMemory = "memory" // In-process, non-durable
)

// Config holds the application configuration
type Config struct {
	AppPort         string          // Application port
	StoreDriver     string          // mysql, sqlite or memory
	DBUser          string          // Database user
	DBPassword      string          // Database password
	DBHost          string          // Database host
	DBPort          string          // Database port
	DBName          string          // Database name
	SQLitePath      string          // SQLite database file
	JWTSecret       string          // JWT secret key
	RedisAddr       string          // Redis server address, empty disables Redis
	RedisPass       string          // Redis password
	RedisDB         int             // Redis database number
	IsProd          bool            // Is production environment
	MaxAttempts     int             // Transfer attempts before reporting contention
	RetryBackoff    time.Duration   // Base delay between transfer attempts
	StartingBalance decimal.Decimal // Balance credited at registration
	CacheTTL        time.Duration   // TTL of cached reads
	IdempotencyTTL  time.Duration   // Retention of Idempotency-Key responses
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:         getEnv("APP_PORT", "8080"),                                // Application port
		StoreDriver:     getEnv("STORE_DRIVER", DriverMySQL),                       // Store driver
		DBUser:          os.Getenv("DB_USER"),                                      // Database user
		DBPassword:      os.Getenv("DB_PASSWORD"),                                  // Database password
		DBHost:          getEnv("DB_HOST", "127.0.0.1"),                            // Database host
		DBPort:          getEnv("DB_PORT", "3306"),                                 // Database port
		DBName:          os.Getenv("DB_NAME"),                                      // Database name
		SQLitePath:      getEnv("SQLITE_PATH", "peerpay.db"),                       // SQLite database file
		JWTSecret:       os.Getenv("JWT_SECRET"),                                   // JWT secret key
		RedisAddr:       os.Getenv("REDIS_ADDR"),                                   // Redis server address
		RedisPass:       os.Getenv("REDIS_PASS"),                                   // Redis password
		RedisDB:         getInt("REDIS_DB", 0),                                     // Redis database number
		IsProd:          os.Getenv("IS_PROD") == "true",                            // Is production environment
		MaxAttempts:     getInt("TRANSFER_MAX_ATTEMPTS", 5),                        // Transfer attempts
		RetryBackoff:    getDuration("TRANSFER_RETRY_BACKOFF", 5*time.Millisecond), // Retry backoff
		StartingBalance: getDecimal("STARTING_BALANCE", "1000.00"),                 // Sign-up credit
		CacheTTL:        getDuration("CACHE_TTL", 60*time.Second),                  // Cache TTL
		IdempotencyTTL:  getDuration("IDEMPOTENCY_TTL", 24*time.Hour),              // Idempotency key retention
	}
}

// DSN builds the MySQL Data Source Name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithField("key", key).Warnf("invalid integer %q, using %d", v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logrus.WithField("key", key).Warnf("invalid duration %q, using %s", v, fallback)
		return fallback
	}
	return d
}

func getDecimal(key, fallback string) decimal.Decimal {
	v := getEnv(key, fallback)
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		logrus.WithField("key", key).Warnf("invalid amount %q, using %s", v, fallback)
		return decimal.RequireFromString(fallback)
	}
	return d.Round(2)
}

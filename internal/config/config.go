package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Storage drivers
const (
	StoreMySQL  = "mysql"  // GORM over MySQL
	StoreMemory = "memory" // In-process store, single instance only
)

// Config holds the application configuration
type Config struct {
	AppPort      string        // Application port
	Store        string        // Storage driver: mysql or memory
	DBUser       string        // Database user
	DBPassword   string        // Database password
	DBHost       string        // Database host
	DBPort       string        // Database port
	DBName       string        // Database name
	JWTSecret    string        // JWT secret key
	RedisAddr    string        // Redis server address, empty disables cache and shared lock
	RedisPass    string        // Redis password
	RedisDB      int           // Redis database number
	AMQPURL      string        // RabbitMQ URL, empty disables events
	AMQPExchange string        // RabbitMQ exchange for transaction events
	CancelWindow time.Duration // How long a USE stays cancellable
	LockWait     time.Duration // How long to wait for an account lock
	LockLease    time.Duration // How long an account lock lives without release
	IsProd       bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:      getEnv("APP_PORT", "8080"),                     // Application port
		Store:        getEnv("STORE", StoreMySQL),                    // Storage driver
		DBUser:       os.Getenv("DB_USER"),                           // Database user
		DBPassword:   os.Getenv("DB_PASSWORD"),                       // Database password
		DBHost:       getEnv("DB_HOST", "localhost"),                 // Database host
		DBPort:       getEnv("DB_PORT", "3306"),                      // Database port
		DBName:       getEnv("DB_NAME", "account"),                   // Database name
		JWTSecret:    os.Getenv("JWT_SECRET"),                        // JWT secret key
		RedisAddr:    os.Getenv("REDIS_ADDR"),                        // Redis server address
		RedisPass:    os.Getenv("REDIS_PASS"),                        // Redis password
		RedisDB:      redisDB,                                        // Redis database number
		AMQPURL:      os.Getenv("AMQP_URL"),                          // RabbitMQ URL
		AMQPExchange: getEnv("AMQP_EXCHANGE", "account"),             // RabbitMQ exchange
		CancelWindow: getDuration("CANCEL_WINDOW", 365*24*time.Hour), // One year by default
		LockWait:     getDuration("LOCK_WAIT", time.Second),          // Account lock wait
		LockLease:    getDuration("LOCK_LEASE", 15*time.Second),      // Account lock lease
		IsProd:       os.Getenv("IS_PROD") == "true",                 // Is production environment
	}
}

// getEnv returns the variable or def when it is unset or empty
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getDuration parses the variable as a time.Duration, falling back to def when unset or invalid
func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Package config provides centralized default values for OrderStack
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Kafka Configuration
	KafkaBrokers     []string
	KafkaTopic       string
	KafkaGroupID     string
	KafkaClientID    string
	KafkaWriteLimit  time.Duration
	KafkaMinBytes    int
	KafkaMaxBytes    int
	KafkaMaxAttempts int

	// Redis Configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Database Configuration
	DBPath                   string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int

	// Security
	JWTSecret string

	// CORS
	AllowedOrigins []string

	// TTL Configuration
	CacheDefaultTTL time.Duration
	ListingCacheTTL time.Duration
	MinuteBucketTTL time.Duration

	// Real-time Configuration
	FanoutChannel      string
	ClientSendBuffer   int
	ClientWriteWait    time.Duration
	ClientPongWait     time.Duration
	ClientPingInterval time.Duration
	ClientMaxFrameSize int64
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Kafka Configuration
	KafkaBrokers = strings.Split(getEnvString("KAFKA_BROKERS", "localhost:9092"), ",")
	KafkaTopic = getEnvString("KAFKA_TOPIC", "order-events")
	KafkaGroupID = getEnvString("KAFKA_GROUP_ID", "order-metrics-group")
	KafkaClientID = getEnvString("KAFKA_CLIENT_ID", "orderstack-go")
	KafkaWriteLimit = getEnvDuration("KAFKA_WRITE_TIMEOUT", 10*time.Second)
	KafkaMinBytes = getEnvInt("KAFKA_MIN_BYTES", 1)
	KafkaMaxBytes = getEnvInt("KAFKA_MAX_BYTES", 10*1024*1024)
	KafkaMaxAttempts = getEnvInt("KAFKA_MAX_ATTEMPTS", 8)

	// Redis Configuration
	RedisAddr = getEnvString("REDIS_ADDR", "localhost:6379")
	RedisPassword = getEnvString("REDIS_PASSWORD", "")
	RedisDB = getEnvInt("REDIS_DB", 0)

	// Database Configuration
	DBPath = getEnvString("DB_PATH", "orderstack.db")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)

	// Security
	JWTSecret = getEnvString("JWT_SECRET", "dev-secret-change-me")

	// CORS
	AllowedOrigins = strings.Split(getEnvString("ALLOWED_ORIGINS", "http://localhost:3000"), ",")

	// TTL Configuration
	CacheDefaultTTL = time.Duration(getEnvInt("CACHE_DEFAULT_TTL_SECONDS", 3600)) * time.Second
	ListingCacheTTL = time.Duration(getEnvInt("LISTING_CACHE_TTL_SECONDS", 1800)) * time.Second
	MinuteBucketTTL = time.Duration(getEnvInt("MINUTE_BUCKET_TTL_SECONDS", 3600)) * time.Second

	// Real-time Configuration
	FanoutChannel = getEnvString("FANOUT_CHANNEL", "realtime:fanout")
	ClientSendBuffer = getEnvInt("CLIENT_SEND_BUFFER", 256)
	ClientWriteWait = getEnvDuration("CLIENT_WRITE_WAIT", 10*time.Second)
	ClientPongWait = getEnvDuration("CLIENT_PONG_WAIT", 60*time.Second)
	ClientPingInterval = getEnvDuration("CLIENT_PING_INTERVAL", 54*time.Second)
	ClientMaxFrameSize = int64(getEnvInt("CLIENT_MAX_FRAME_SIZE", 4096))
}

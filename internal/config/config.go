package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server  ServerConfig
	Logger  LoggerConfig
	Store   StoreConfig
	Breaker BreakerConfig
	Redis   RedisConfig
	MySQL   MySQLConfig
	Mongo   MongoConfig
}

type ServerConfig struct {
	AppEnv          string
	HTTPPort        string
	GRPCPort        string
	HealthInterval  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type StoreConfig struct {
	// Backend is one of memory, redis, mysql, mongo
	Backend    string
	Collection string
	// AtomicUpdates uses the store's atomic counter for add/remove when it has one
	AtomicUpdates bool
}

type BreakerConfig struct {
	Enabled     bool
	MaxFailures int
	OpenTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type MongoConfig struct {
	URI      string
	Database string
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:          getEnv("APP_ENV", "production"),
			HTTPPort:        getEnv("HTTP_PORT", ":8080"),
			GRPCPort:        getEnv("GRPC_PORT", ":50051"),
			HealthInterval:  getEnvDuration("HEALTH_INTERVAL", 10*time.Second),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOGGER_LEVEL", "info"),
			Encoding: getEnv("LOGGER_ENCODING", "json"),
		},
		Store: StoreConfig{
			Backend:       getEnv("STORE_BACKEND", "memory"),
			Collection:    getEnv("INVENTORY_COLLECTION", "inventory"),
			AtomicUpdates: getEnvBool("ATOMIC_UPDATES", true),
		},
		Breaker: BreakerConfig{
			Enabled:     getEnvBool("BREAKER_ENABLED", true),
			MaxFailures: getEnvInt("BREAKER_MAX_FAILURES", 5),
			OpenTimeout: getEnvDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		MySQL: MySQLConfig{
			DSN:             getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/pantry?parseTime=true"),
			MaxOpenConns:    getEnvInt("MYSQL_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("MYSQL_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "pantry"),
		},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

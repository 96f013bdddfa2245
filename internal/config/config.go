package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server ServerConfig `json:"server"`

	// Database Configuration (reference server)
	Database DatabaseConfig `json:"database"`

	// Mongo Configuration (image payload storage)
	Mongo MongoConfig `json:"mongo"`

	// Client Configuration
	Client ClientConfig `json:"client"`
}

// ServerConfig contains reference-server configuration
type ServerConfig struct {
	Port         string `json:"port"`
	Host         string `json:"host"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
	Environment  string `json:"environment"` // development, staging, production
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	DatabaseName string `json:"database_name"`
	MaxOpenConns int    `json:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
}

// MongoConfig contains image payload storage configuration
type MongoConfig struct {
	URI        string `json:"uri"`
	Database   string `json:"database"`
	BucketName string `json:"bucket_name"`
	Enabled    bool   `json:"enabled"`
}

// ClientConfig contains the settings the client core needs: where the
// backend lives and the typing-protocol timing knobs.
type ClientConfig struct {
	BaseURL          string        `json:"base_url"`
	WebsocketURL     string        `json:"websocket_url"`
	TypingIdle       time.Duration `json:"typing_idle"`        // outbound stop-typing debounce
	TypingExpiry     time.Duration `json:"typing_expiry"`      // inbound stale-flag expiry, 0 disables
	RequestTimeout   time.Duration `json:"request_timeout"`
	HandshakeTimeout time.Duration `json:"handshake_timeout"`
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvOrDefault("SERVER_PORT", "8080"),
			ReadTimeout:  getEnvIntOrDefault("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", 15),
			Environment:  getEnvOrDefault("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:         getEnvOrDefault("DB_HOST", "localhost"),
			Port:         getEnvOrDefault("DB_PORT", "3306"),
			Username:     getEnvOrDefault("DB_USER", "chatwave_user"),
			Password:     getEnvOrDefault("DB_PASSWORD", ""),
			DatabaseName: getEnvOrDefault("DB_NAME", "chatwave_db"),
			MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		},
		Mongo: MongoConfig{
			URI:        getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
			Database:   getEnvOrDefault("MONGO_DB", "chatwave_media"),
			BucketName: getEnvOrDefault("MONGO_BUCKET", "message_images"),
			Enabled:    getEnvOrDefault("MONGO_ENABLED", "false") == "true",
		},
		Client: ClientConfig{
			BaseURL:          getEnvOrDefault("CHATWAVE_BASE_URL", "http://localhost:8080"),
			WebsocketURL:     getEnvOrDefault("CHATWAVE_WS_URL", "ws://localhost:8080/ws"),
			TypingIdle:       getEnvDurationOrDefault("TYPING_IDLE_MS", 2000*time.Millisecond),
			TypingExpiry:     getEnvDurationOrDefault("TYPING_EXPIRY_MS", 10000*time.Millisecond),
			RequestTimeout:   getEnvDurationOrDefault("REQUEST_TIMEOUT_MS", 10000*time.Millisecond),
			HandshakeTimeout: getEnvDurationOrDefault("HANDSHAKE_TIMEOUT_MS", 5000*time.Millisecond),
		},
	}
}

func (cfg *Config) DSN() string {
	host := cfg.Database.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Database.Port
	if port == "" {
		port = "3306"
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Database.Username,
		cfg.Database.Password,
		host,
		port,
		cfg.Database.DatabaseName,
	)
}

func (cfg *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return defaultValue
}

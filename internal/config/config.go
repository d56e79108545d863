package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the order core service.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Foreign   ForeignServicesConfig
	App       AppConfig
	Lifecycle LifecycleConfig
}

// ServerConfig holds the caller-facing HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds the durable collection store connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds optional cache settings for the Reference Projection.
type RedisConfig struct {
	URL string // empty disables caching
}

// NATSConfig holds pub/sub broker connection settings.
type NATSConfig struct {
	URL string
}

// ForeignServicesConfig holds base URLs for the Foreign Data Client's
// four federated queries (§4.B).
type ForeignServicesConfig struct {
	CartServiceURL     string
	InventoryServiceURL string
	DiscountServiceURL  string
	ShipmentServiceURL  string
}

// AppConfig holds application-wide settings.
type AppConfig struct {
	Environment string
	LogLevel    string
}

// LifecycleConfig holds Order Lifecycle timing (§4.D).
type LifecycleConfig struct {
	PendingTimeout time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "order_core_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", "nats://nats.nats.svc.cluster.local:4222"),
		},
		Foreign: ForeignServicesConfig{
			CartServiceURL:       getEnv("CART_SERVICE_URL", "http://cart-service:8080"),
			InventoryServiceURL:  getEnv("INVENTORY_SERVICE_URL", "http://inventory-service:8080"),
			DiscountServiceURL:   getEnv("DISCOUNT_SERVICE_URL", "http://discount-service:8080"),
			ShipmentServiceURL:   getEnv("SHIPMENT_SERVICE_URL", "http://shipment-service:8080"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Lifecycle: LifecycleConfig{
			PendingTimeout: time.Duration(getEnvAsInt("PENDING_TIMEOUT_SECONDS", 3600)) * time.Second,
		},
	}

	return cfg, nil
}

// GetDatabaseDSN returns the database connection string.
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the server bind address.
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

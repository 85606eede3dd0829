// Package config provides configuration structures for the gate server.
package config

import (
	"fmt"
	"time"
)

// Config represents the server configuration.
type Config struct {
	// Server settings
	Address         string        `yaml:"address" json:"address"`
	LogLevel        string        `yaml:"log_level" json:"log_level"`
	QueryTimeout    time.Duration `yaml:"query_timeout" json:"query_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// Database connection settings
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Connection pool configuration
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool" json:"connection_pool"`

	// AI collaborator configuration
	AI AIConfig `yaml:"ai" json:"ai"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Health check configuration
	Health HealthConfig `yaml:"health" json:"health"`
}

// DatabaseConfig represents the MySQL target database.
type DatabaseConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Name     string `yaml:"name" json:"name"`
}

// DSN renders the driver connection string. parseTime makes the
// driver return time.Time for DATE and DATETIME columns.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// ConnectionPoolConfig represents connection pool configuration.
type ConnectionPoolConfig struct {
	MaxOpenConnections int           `yaml:"max_open_connections" json:"max_open_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections" json:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
	AcquireTimeout     time.Duration `yaml:"acquire_timeout" json:"acquire_timeout"`
	ConnectionTimeout  time.Duration `yaml:"connection_timeout" json:"connection_timeout"`
	HealthCheckPeriod  time.Duration `yaml:"health_check_period" json:"health_check_period"`
}

// AIConfig represents the external SQL generation service.
type AIConfig struct {
	Endpoint string        `yaml:"endpoint" json:"endpoint"`
	APIKey   string        `yaml:"api_key" json:"api_key"`
	Model    string        `yaml:"model" json:"model"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig represents health check configuration.
type HealthConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// Validate validates the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.Port <= 0 {
		c.Database.Port = 3306
	}

	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 30 * time.Second
	}

	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}

	// Set defaults for connection pool
	if c.ConnectionPool.MaxOpenConnections <= 0 {
		c.ConnectionPool.MaxOpenConnections = 25
	}
	if c.ConnectionPool.MaxIdleConnections <= 0 {
		c.ConnectionPool.MaxIdleConnections = 5
	}
	if c.ConnectionPool.ConnMaxLifetime <= 0 {
		c.ConnectionPool.ConnMaxLifetime = 30 * time.Minute
	}
	if c.ConnectionPool.ConnMaxIdleTime <= 0 {
		c.ConnectionPool.ConnMaxIdleTime = 10 * time.Minute
	}
	if c.ConnectionPool.AcquireTimeout <= 0 {
		c.ConnectionPool.AcquireTimeout = 5 * time.Second
	}
	if c.ConnectionPool.ConnectionTimeout <= 0 {
		c.ConnectionPool.ConnectionTimeout = 30 * time.Second
	}
	if c.ConnectionPool.HealthCheckPeriod <= 0 {
		c.ConnectionPool.HealthCheckPeriod = 1 * time.Minute
	}

	// Set defaults for the AI collaborator
	if c.AI.Endpoint != "" {
		if c.AI.Model == "" {
			return fmt.Errorf("AI model is required when an endpoint is set")
		}
		if c.AI.Timeout <= 0 {
			c.AI.Timeout = 30 * time.Second
		}
	}

	// Set defaults for metrics
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	// Set defaults for health checks
	if c.Health.Interval <= 0 {
		c.Health.Interval = 10 * time.Second
	}

	return nil
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:         "0.0.0.0:8080",
		LogLevel:        "info",
		QueryTimeout:    30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		Database: DatabaseConfig{
			Host: "localhost",
			Port: 3306,
			Name: "company_db",
		},
		ConnectionPool: ConnectionPoolConfig{
			MaxOpenConnections: 25,
			MaxIdleConnections: 5,
			ConnMaxLifetime:    30 * time.Minute,
			ConnMaxIdleTime:    10 * time.Minute,
			AcquireTimeout:     5 * time.Second,
			ConnectionTimeout:  30 * time.Second,
			HealthCheckPeriod:  1 * time.Minute,
		},
		AI: AIConfig{
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: ":9090",
			Path:    "/metrics",
		},
		Health: HealthConfig{
			Enabled:  true,
			Interval: 10 * time.Second,
		},
	}
}

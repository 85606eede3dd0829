package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     3307,
		User:     "app",
		Password: "hunter2",
		Name:     "company_db",
	}
	assert.Equal(t,
		"app:hunter2@tcp(db.internal:3307)/company_db?charset=utf8mb4&parseTime=true",
		d.DSN())
}

func TestValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing address", func(c *Config) { c.Address = "" }},
		{"missing db host", func(c *Config) { c.Database.Host = "" }},
		{"missing db user", func(c *Config) { c.Database.User = "" }},
		{"missing db name", func(c *Config) { c.Database.Name = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Database.User = "root"
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_FillsDefaults(t *testing.T) {
	cfg := &Config{
		Address: "0.0.0.0:8080",
		Database: DatabaseConfig{
			Host: "localhost",
			User: "root",
			Name: "company_db",
		},
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 25, cfg.ConnectionPool.MaxOpenConnections)
	assert.Equal(t, 5, cfg.ConnectionPool.MaxIdleConnections)
	assert.Equal(t, 5*time.Second, cfg.ConnectionPool.AcquireTimeout)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 10*time.Second, cfg.Health.Interval)
}

func TestValidate_AIRequiresModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.User = "root"
	cfg.AI.Endpoint = "https://api.example.com/v1/chat/completions"
	cfg.AI.Model = ""
	assert.Error(t, cfg.Validate())

	cfg.AI.Model = "gpt-4o-mini"
	assert.NoError(t, cfg.Validate())
}

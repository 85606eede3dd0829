// Package main provides the entry point for the SQL gate server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/promptsql/sqlgate/cmd/server/config"
	"github.com/promptsql/sqlgate/cmd/server/middleware"
	"github.com/promptsql/sqlgate/pkg/ai"
	"github.com/promptsql/sqlgate/pkg/handlers"
	"github.com/promptsql/sqlgate/pkg/infrastructure/converter"
	"github.com/promptsql/sqlgate/pkg/infrastructure/metrics"
	"github.com/promptsql/sqlgate/pkg/infrastructure/pool"
	"github.com/promptsql/sqlgate/pkg/services"

	_ "github.com/go-sql-driver/mysql"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "sqlgate",
	Short: "SQL gate server",
	Long: `A natural language to SQL gateway for MySQL.

sqlgate classifies and validates every statement before it reaches the
database, executes mutations transactionally, and returns a uniform
JSON envelope.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SQL gate server",
	Long: `Start the SQL gate server with the specified configuration.

Example:
  sqlgate serve --config ./config.yaml
  sqlgate serve --address 0.0.0.0:8080 --db-host localhost --db-name company_db`,
	RunE: runServer,
}

func init() {
	// Add serve command
	rootCmd.AddCommand(serveCmd)

	// Command flags
	serveCmd.Flags().StringP("config", "c", "", "config file path")
	serveCmd.Flags().String("address", "0.0.0.0:8080", "server listen address")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	serveCmd.Flags().String("db-host", "localhost", "MySQL host")
	serveCmd.Flags().Int("db-port", 3306, "MySQL port")
	serveCmd.Flags().String("db-user", "root", "MySQL user")
	serveCmd.Flags().String("db-password", "", "MySQL password")
	serveCmd.Flags().String("db-name", "company_db", "MySQL database name")
	serveCmd.Flags().Int("max-open-connections", 25, "maximum open database connections")
	serveCmd.Flags().Int("max-idle-connections", 5, "maximum idle database connections")
	serveCmd.Flags().Duration("acquire-timeout", 5*time.Second, "connection acquire timeout")
	serveCmd.Flags().Duration("query-timeout", 30*time.Second, "per-statement execution timeout")
	serveCmd.Flags().String("ai-endpoint", "", "AI service endpoint (empty disables the prompt path)")
	serveCmd.Flags().String("ai-api-key", "", "AI service API key")
	serveCmd.Flags().String("ai-model", "gpt-4o-mini", "AI model name")
	serveCmd.Flags().Duration("ai-timeout", 30*time.Second, "AI request timeout")
	serveCmd.Flags().Bool("metrics", true, "enable Prometheus metrics")
	serveCmd.Flags().String("metrics-address", ":9090", "metrics server address")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "graceful shutdown timeout")

	// Bind flags to viper
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		panic(fmt.Errorf("failed to bind flags: %w", err))
	}
	viper.SetEnvPrefix("SQLGATE")
	viper.AutomaticEnv()

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sqlgate\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Build Date: %s\n", buildDate)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logging
	logger := setupLogging(cfg.LogLevel)
	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Msg("Starting SQL gate server")

	// Create metrics collector
	var metricsCollector metrics.Collector
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsCollector = metrics.NewPrometheusCollector()
		metricsServer = metrics.NewServer(cfg.Metrics.Address, cfg.Metrics.Path)
		go func() {
			logger.Info().Str("address", cfg.Metrics.Address).Msg("Starting metrics server")
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("Failed to start metrics server")
			}
		}()
	} else {
		metricsCollector = metrics.NewNoOpCollector()
	}

	// Create connection pool
	poolCfg := pool.Config{
		DSN:                cfg.Database.DSN(),
		MaxOpenConnections: cfg.ConnectionPool.MaxOpenConnections,
		MaxIdleConnections: cfg.ConnectionPool.MaxIdleConnections,
		ConnMaxLifetime:    cfg.ConnectionPool.ConnMaxLifetime,
		ConnMaxIdleTime:    cfg.ConnectionPool.ConnMaxIdleTime,
		AcquireTimeout:     cfg.ConnectionPool.AcquireTimeout,
		ConnectionTimeout:  cfg.ConnectionPool.ConnectionTimeout,
		HealthCheckPeriod:  cfg.ConnectionPool.HealthCheckPeriod,
	}
	connPool, err := pool.New(poolCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer func() {
		if err := connPool.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing connection pool")
		}
	}()

	// Create the AI collaborator client when configured
	aiCfg := ai.Config{
		Endpoint: cfg.AI.Endpoint,
		APIKey:   cfg.AI.APIKey,
		Model:    cfg.AI.Model,
		Timeout:  cfg.AI.Timeout,
	}
	var generator ai.Generator
	if aiCfg.Configured() {
		generator = ai.NewClient(aiCfg, logger.With().Str("component", "ai_client").Logger())
	} else {
		logger.Warn().Msg("AI endpoint not configured; prompt path disabled")
	}

	// Create services
	executor := services.NewTransactionalExecutor(
		connPool,
		converter.New(logger.With().Str("component", "value_converter").Logger()),
		&serviceLoggerAdapter{logger: logger.With().Str("component", "executor").Logger()},
		metricsCollector,
		cfg.QueryTimeout,
	)
	metadataService := services.NewMetadataService(
		connPool,
		&serviceLoggerAdapter{logger: logger.With().Str("component", "metadata_service").Logger()},
	)
	gate := services.NewGate(
		executor,
		generator,
		metadataService,
		&serviceLoggerAdapter{logger: logger.With().Str("component", "gate").Logger()},
		metricsCollector,
	)

	// HTTP edge
	gateHandler := handlers.NewGateHandler(
		gate,
		metadataService,
		connPool,
		aiCfg.Configured(),
		&serviceLoggerAdapter{logger: logger.With().Str("component", "http_handler").Logger()},
	)

	router := chi.NewRouter()
	router.Use(middleware.NewRecoveryMiddleware(logger.With().Str("component", "recovery_middleware").Logger()).Handler)
	router.Use(middleware.NewLoggingMiddleware(logger.With().Str("component", "logging_middleware").Logger()).Handler)
	router.Use(middleware.NewMetricsMiddleware(metricsCollector).Handler)
	gateHandler.Mount(router)

	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup graceful shutdown
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	// Start server
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("address", cfg.Address).
			Str("database", cfg.Database.Name).
			Bool("ai_configured", aiCfg.Configured()).
			Msg("Server listening")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case <-shutdownCh:
		logger.Info().Msg("Received shutdown signal")
	case err := <-serverErrCh:
		return err
	}

	// Graceful shutdown
	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("Starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	// Stop metrics server
	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	logger.Info().Msg("Server shutdown complete")
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	// Load config file if specified
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Build configuration
	cfg := &config.Config{
		Address:         viper.GetString("address"),
		LogLevel:        viper.GetString("log-level"),
		QueryTimeout:    viper.GetDuration("query-timeout"),
		ShutdownTimeout: viper.GetDuration("shutdown-timeout"),
		Database: config.DatabaseConfig{
			Host:     viper.GetString("db-host"),
			Port:     viper.GetInt("db-port"),
			User:     viper.GetString("db-user"),
			Password: viper.GetString("db-password"),
			Name:     viper.GetString("db-name"),
		},
		ConnectionPool: config.ConnectionPoolConfig{
			MaxOpenConnections: viper.GetInt("max-open-connections"),
			MaxIdleConnections: viper.GetInt("max-idle-connections"),
			AcquireTimeout:     viper.GetDuration("acquire-timeout"),
		},
		AI: config.AIConfig{
			Endpoint: viper.GetString("ai-endpoint"),
			APIKey:   viper.GetString("ai-api-key"),
			Model:    viper.GetString("ai-model"),
			Timeout:  viper.GetDuration("ai-timeout"),
		},
		Metrics: config.MetricsConfig{
			Enabled: viper.GetBool("metrics"),
			Address: viper.GetString("metrics-address"),
		},
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setupLogging(level string) zerolog.Logger {
	// Configure zerolog
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	// Set log level
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).
		Level(logLevel).
		With().
		Timestamp().
		Str("service", "sqlgate")

	if logLevel == zerolog.DebugLevel {
		logger = logger.Caller()
	}

	return logger.Logger()
}

// serviceLoggerAdapter adapts zerolog.Logger to services.Logger
type serviceLoggerAdapter struct {
	logger zerolog.Logger
}

func (l *serviceLoggerAdapter) Debug(msg string, keysAndValues ...interface{}) {
	logEvent(l.logger.Debug(), msg, keysAndValues)
}

func (l *serviceLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	logEvent(l.logger.Info(), msg, keysAndValues)
}

func (l *serviceLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	logEvent(l.logger.Warn(), msg, keysAndValues)
}

func (l *serviceLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	logEvent(l.logger.Error(), msg, keysAndValues)
}

func logEvent(event *zerolog.Event, msg string, keysAndValues []interface{}) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		event = event.Interface(key, keysAndValues[i+1])
	}
	event.Msg(msg)
}

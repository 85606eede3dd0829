// Package pool provides lease-scoped database connection pooling.
package pool

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	pkgerrors "github.com/promptsql/sqlgate/pkg/errors"
)

// Config represents pool configuration.
type Config struct {
	DSN                string        `json:"dsn"`
	MaxOpenConnections int           `json:"max_open_connections"`
	MaxIdleConnections int           `json:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `json:"conn_max_idle_time"`
	AcquireTimeout     time.Duration `json:"acquire_timeout"`
	ConnectionTimeout  time.Duration `json:"connection_timeout"`
	HealthCheckPeriod  time.Duration `json:"health_check_period"`
}

// ConnectionPool manages database connections. It is process-wide
// state with an explicit lifecycle: construct at startup, serve
// leases, drain and close at shutdown.
type ConnectionPool interface {
	// Acquire leases a dedicated connection for one request. The wait
	// is bounded by the configured acquire timeout; when it elapses the
	// acquisition fails with a pool-exhausted error.
	Acquire(ctx context.Context) (*Lease, error)
	// Stats returns pool statistics.
	Stats() PoolStats
	// HealthCheck performs a health check on the pool.
	HealthCheck(ctx context.Context) error
	// Close drains and closes the connection pool.
	Close() error
}

// PoolStats represents connection pool statistics.
type PoolStats struct {
	OpenConnections   int           `json:"open_connections"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	ActiveLeases      int64         `json:"active_leases"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	LastHealthCheck   time.Time     `json:"last_health_check"`
	HealthCheckStatus string        `json:"health_check_status"`
}

// Lease is a scoped acquisition of one pooled connection. It is owned
// exclusively by the request that acquired it and must be released on
// every exit path; Release is idempotent.
type Lease struct {
	conn       *sql.Conn
	pool       *connectionPool
	acquiredAt time.Time
	released   atomic.Bool
}

// Conn returns the leased connection.
func (l *Lease) Conn() *sql.Conn {
	return l.conn
}

// Release returns the connection to the pool. Safe to call more than
// once; only the first call has an effect.
func (l *Lease) Release() {
	if !l.released.CompareAndSwap(false, true) {
		return
	}
	l.pool.activeLeases.Add(-1)
	if err := l.conn.Close(); err != nil {
		l.pool.logger.Warn().Err(err).Msg("Failed to return connection to pool")
	}
	l.pool.logger.Debug().
		Dur("held", time.Since(l.acquiredAt)).
		Msg("Lease released")
}

type connectionPool struct {
	db     *sql.DB
	config Config
	logger zerolog.Logger

	closed atomic.Bool

	lastHealthCheck atomic.Int64 // Unix timestamp
	healthStatus    atomic.Value // string

	ctx    context.Context
	cancel context.CancelFunc

	activeLeases atomic.Int64
	waitCount    atomic.Int64
	waitDuration atomic.Int64
}

// New creates a new connection pool and verifies connectivity.
func New(cfg Config, logger zerolog.Logger) (ConnectionPool, error) {
	cfg = withDefaults(cfg)

	logger.Info().
		Str("dsn", maskDSN(cfg.DSN)).
		Int("max_open", cfg.MaxOpenConnections).
		Int("max_idle", cfg.MaxIdleConnections).
		Dur("acquire_timeout", cfg.AcquireTimeout).
		Msg("Creating MySQL connection pool")

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "failed to open database")
	}

	pool := configure(db, cfg, logger)

	connCtx, connCancel := context.WithTimeout(context.Background(), cfg.ConnectionTimeout)
	defer connCancel()

	if err := pool.HealthCheck(connCtx); err != nil {
		db.Close()
		pool.cancel()
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "initial health check failed")
	}

	if cfg.HealthCheckPeriod > 0 {
		go pool.healthCheckRoutine(pool.ctx)
	}

	logger.Info().Msg("MySQL connection pool created successfully")
	return pool, nil
}

// NewWithDB wraps an existing database handle. Used by tests; skips the
// initial health check and the periodic health routine.
func NewWithDB(db *sql.DB, cfg Config, logger zerolog.Logger) ConnectionPool {
	return configure(db, withDefaults(cfg), logger)
}

func configure(db *sql.DB, cfg Config, logger zerolog.Logger) *connectionPool {
	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithCancel(context.Background())
	pool := &connectionPool{
		db:     db,
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	pool.healthStatus.Store("unknown")
	return pool
}

func withDefaults(cfg Config) Config {
	if cfg.MaxOpenConnections <= 0 {
		cfg.MaxOpenConnections = 25
	}
	if cfg.MaxIdleConnections <= 0 {
		cfg.MaxIdleConnections = 5
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.ConnMaxIdleTime <= 0 {
		cfg.ConnMaxIdleTime = 10 * time.Minute
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 5 * time.Second
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = 30 * time.Second
	}
	return cfg
}

// Acquire leases a dedicated connection, waiting at most the configured
// acquire timeout for one to become available.
func (p *connectionPool) Acquire(ctx context.Context) (*Lease, error) {
	if p.closed.Load() {
		return nil, pkgerrors.ErrPoolClosed
	}

	acquireCtx, cancel := context.WithTimeout(ctx, p.config.AcquireTimeout)
	defer cancel()

	start := time.Now()
	p.waitCount.Add(1)

	conn, err := p.db.Conn(acquireCtx)
	p.waitDuration.Add(int64(time.Since(start)))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			// The bounded wait elapsed while the caller's context was
			// still live: the pool is saturated.
			return nil, pkgerrors.ErrPoolExhausted
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "failed to acquire connection")
	}

	p.activeLeases.Add(1)
	return &Lease{conn: conn, pool: p, acquiredAt: start}, nil
}

// Stats returns pool statistics.
func (p *connectionPool) Stats() PoolStats {
	dbStats := p.db.Stats()
	return PoolStats{
		OpenConnections:   dbStats.OpenConnections,
		InUse:             dbStats.InUse,
		Idle:              dbStats.Idle,
		ActiveLeases:      p.activeLeases.Load(),
		WaitCount:         p.waitCount.Load(),
		WaitDuration:      time.Duration(p.waitDuration.Load()),
		LastHealthCheck:   time.Unix(p.lastHealthCheck.Load(), 0),
		HealthCheckStatus: p.getHealthStatus(),
	}
}

// HealthCheck pings the database and runs a trivial query.
func (p *connectionPool) HealthCheck(ctx context.Context) error {
	if p.closed.Load() {
		return pkgerrors.ErrPoolClosed
	}

	if err := p.db.PingContext(ctx); err != nil {
		p.updateHealthStatus("unhealthy", err.Error())
		return pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "health check ping failed")
	}

	var result int
	err := p.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
	if err != nil || result != 1 {
		p.updateHealthStatus("unhealthy", "query test failed")
		return pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "health check query failed")
	}

	p.updateHealthStatus("healthy", "")
	return nil
}

// Close drains and closes the pool. In-flight leases finish on their
// own connections; new acquisitions fail immediately.
func (p *connectionPool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}

	p.logger.Info().
		Int64("active_leases", p.activeLeases.Load()).
		Msg("Closing MySQL connection pool")

	p.cancel()

	if err := p.db.Close(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to close database")
	}
	return nil
}

// healthCheckRoutine performs periodic health checks until ctx is cancelled.
func (p *connectionPool) healthCheckRoutine(ctx context.Context) {
	ticker := time.NewTicker(p.config.HealthCheckPeriod)
	defer ticker.Stop()

	p.logger.Info().Dur("period", p.config.HealthCheckPeriod).Msg("Health check routine started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Health check routine stopped")
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := p.HealthCheck(probeCtx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error().Err(err).Msg("Periodic health check failed")
			}
			cancel()
		}
	}
}

func (p *connectionPool) updateHealthStatus(status, detail string) {
	p.lastHealthCheck.Store(time.Now().Unix())
	p.healthStatus.Store(status)

	if status == "unhealthy" && detail != "" {
		p.logger.Warn().
			Str("status", status).
			Str("detail", detail).
			Msg("Connection pool health status changed")
	}
}

func (p *connectionPool) getHealthStatus() string {
	if v := p.healthStatus.Load(); v != nil {
		return v.(string)
	}
	return "unknown"
}

// maskDSN hides credentials but keeps enough of the string to be
// recognisable in logs. MySQL DSNs are user:pass@tcp(host)/db; URL-like
// DSNs get user-info and sensitive query params redacted; anything
// unparseable falls back to a middle-mask.
func maskDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}

	// user:pass@... form used by go-sql-driver.
	if at := strings.LastIndex(dsn, "@"); at > 0 && !strings.Contains(dsn, "://") {
		creds := dsn[:at]
		if colon := strings.Index(creds, ":"); colon >= 0 {
			return creds[:colon] + ":*****" + dsn[at:]
		}
		return dsn
	}

	u, err := url.Parse(dsn)
	if err == nil && (u.Scheme != "" || u.Host != "" || u.RawQuery != "") {
		if ui := u.User; ui != nil {
			user := ui.Username()
			if _, hasPass := ui.Password(); hasPass {
				u.User = url.UserPassword(user, "*****")
			} else {
				u.User = url.User(user)
			}
		}
		q := u.Query()
		for k := range q {
			if isSensitiveKey(k) {
				q.Set(k, "*****")
			}
		}
		u.RawQuery = q.Encode()
		return u.String()
	}

	runes := []rune(dsn)
	if len(runes) <= 10 {
		return "***"
	}
	return string(runes[:3]) + "***" + string(runes[len(runes)-3:])
}

// isSensitiveKey reports whether a query key should have its value masked.
func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	switch {
	case strings.Contains(key, "pass"),
		strings.Contains(key, "token"),
		strings.Contains(key, "secret"),
		strings.HasSuffix(key, "key"):
		return true
	default:
		return false
	}
}

package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	stderrors "errors"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/promptsql/sqlgate/pkg/errors"
	"github.com/promptsql/sqlgate/pkg/infrastructure/converter"
	"github.com/promptsql/sqlgate/pkg/infrastructure/metrics"
	"github.com/promptsql/sqlgate/pkg/infrastructure/pool"
	"github.com/promptsql/sqlgate/pkg/models"
)

// MySQL error numbers for constraint violations and statement errors.
// The constraint set follows the classification velox-style drivers use
// for class-23 failures.
const (
	mysqlBadNullColumn    = 1048
	mysqlDuplicateEntry   = 1062
	mysqlForeignKeyParent = 1451
	mysqlForeignKeyChild  = 1452
	mysqlCheckViolation   = 3819

	mysqlBadFieldError = 1054
	mysqlParseError    = 1064
	mysqlNoSuchTable   = 1146
)

// TransactionalExecutor runs one statement per request on a leased
// connection. Reads run outside an explicit transaction; mutations run
// inside one that spans exactly that statement. The lease is released
// on every exit path.
type TransactionalExecutor struct {
	pool         pool.ConnectionPool
	conv         *converter.ValueConverter
	logger       Logger
	metrics      metrics.Collector
	queryTimeout time.Duration
}

// NewTransactionalExecutor creates a new executor.
func NewTransactionalExecutor(
	p pool.ConnectionPool,
	conv *converter.ValueConverter,
	logger Logger,
	collector metrics.Collector,
	queryTimeout time.Duration,
) *TransactionalExecutor {
	return &TransactionalExecutor{
		pool:         p,
		conv:         conv,
		logger:       logger,
		metrics:      collector,
		queryTimeout: queryTimeout,
	}
}

// Execute runs the statement and returns a normalized result. A read
// that fails with a connection-class error is retried exactly once on
// a fresh lease; mutations never retry, to avoid double application.
func (e *TransactionalExecutor) Execute(ctx context.Context, stmt *models.Statement) (*models.ExecutionResult, error) {
	execCtx := ctx
	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	var result *models.ExecutionResult
	var err error

	switch stmt.Kind {
	case models.KindSelect:
		result, err = e.executeRead(execCtx, stmt)
		if err != nil && errors.IsConnectionError(err) {
			e.logger.Warn("Retrying read after connection failure",
				"error", err, "statement", truncateSQL(stmt.Normalized))
			e.metrics.IncrementCounter("sqlgate_read_retries_total")
			result, err = e.executeRead(execCtx, stmt)
		}
	case models.KindInsert, models.KindUpdate, models.KindDelete:
		result, err = e.executeWrite(execCtx, stmt)
	default:
		return nil, errors.New(errors.CodeInternal,
			fmt.Sprintf("executor received non-executable statement kind %s", stmt.Kind))
	}

	duration := time.Since(start)
	e.metrics.RecordGauge("sqlgate_pool_active_leases", float64(e.pool.Stats().ActiveLeases))
	if err != nil {
		e.metrics.IncrementCounter("sqlgate_statements_total",
			"kind", stmt.Kind.String(), "outcome", "error")
		return nil, err
	}

	result.ExecutionTime = duration
	e.metrics.IncrementCounter("sqlgate_statements_total",
		"kind", stmt.Kind.String(), "outcome", "ok")
	e.metrics.RecordHistogram("sqlgate_statement_duration_seconds",
		duration.Seconds(), "kind", stmt.Kind.String())
	return result, nil
}

// executeRead runs a SELECT on its own lease, outside an explicit
// transaction, and collects all rows.
func (e *TransactionalExecutor) executeRead(ctx context.Context, stmt *models.Statement) (*models.ExecutionResult, error) {
	lease, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	rows, err := lease.Conn().QueryContext(ctx, stmt.Normalized)
	if err != nil {
		return nil, e.reclassify(ctx, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, e.reclassify(ctx, err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		e.logger.Debug("Column type metadata unavailable", "error", err)
		colTypes = nil
	}

	var collected []models.Row
	values := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, e.reclassify(ctx, err)
		}
		collected = append(collected, e.conv.ConvertRow(columns, colTypes, values))
	}
	if err := rows.Err(); err != nil {
		return nil, e.reclassify(ctx, err)
	}

	e.metrics.RecordHistogram("sqlgate_rows_returned", float64(len(collected)))
	return &models.ExecutionResult{
		Kind:         models.KindSelect,
		Columns:      columns,
		Rows:         collected,
		AffectedRows: -1,
		Message:      fmt.Sprintf("Retrieved %d row(s)", len(collected)),
	}, nil
}

// executeWrite runs a mutation inside a transaction scoped to exactly
// this statement. Any failure after the transaction begins rolls back
// before the error propagates.
func (e *TransactionalExecutor) executeWrite(ctx context.Context, stmt *models.Statement) (*models.ExecutionResult, error) {
	lease, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	tx, err := lease.Conn().BeginTx(ctx, nil)
	if err != nil {
		return nil, e.reclassify(ctx, err)
	}

	res, err := tx.ExecContext(ctx, stmt.Normalized)
	if err != nil {
		e.rollback(tx, stmt)
		return nil, e.reclassify(ctx, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		e.rollback(tx, stmt)
		return nil, e.reclassify(ctx, err)
	}

	if err := tx.Commit(); err != nil {
		e.rollback(tx, stmt)
		return nil, e.reclassify(ctx, err)
	}

	e.metrics.RecordHistogram("sqlgate_rows_affected", float64(affected),
		"kind", stmt.Kind.String())
	return &models.ExecutionResult{
		Kind:         stmt.Kind,
		Rows:         []models.Row{},
		AffectedRows: affected,
		Message:      models.MutationMessage(stmt.Kind, affected),
	}, nil
}

func (e *TransactionalExecutor) rollback(tx *sql.Tx, stmt *models.Statement) {
	if err := tx.Rollback(); err != nil && !stderrors.Is(err, sql.ErrTxDone) {
		e.logger.Error("Failed to roll back transaction",
			"error", err, "statement", truncateSQL(stmt.Normalized))
	}
}

// reclassify maps raw driver errors into the gate taxonomy. Raw driver
// text stays in the wrapped cause for logs; the message is sanitized.
func (e *TransactionalExecutor) reclassify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return errors.Wrap(err, errors.CodeTimeout, "timeout")
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.Wrap(err, errors.CodeExecutionFailed, "request canceled")
	}

	var myErr *mysql.MySQLError
	if stderrors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlBadNullColumn, mysqlDuplicateEntry, mysqlForeignKeyParent,
			mysqlForeignKeyChild, mysqlCheckViolation:
			return errors.Wrap(err, errors.CodeConstraintViolation, "constraint violation").
				WithDetail("mysql_error", int(myErr.Number))
		case mysqlParseError, mysqlBadFieldError, mysqlNoSuchTable:
			return errors.Wrap(err, errors.CodeSyntaxError, "syntax error or unknown object").
				WithDetail("mysql_error", int(myErr.Number))
		}
		return errors.Wrap(err, errors.CodeExecutionFailed, "statement rejected by database")
	}

	if stderrors.Is(err, driver.ErrBadConn) || stderrors.Is(err, mysql.ErrInvalidConn) {
		return errors.Wrap(err, errors.CodeConnectionFailed, "database connection failed")
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return errors.Wrap(err, errors.CodeConnectionFailed, "database connection failed")
	}

	return errors.Wrap(err, errors.CodeExecutionFailed, "statement execution failed")
}

// truncateSQL truncates long statements for logging.
func truncateSQL(sql string) string {
	const maxLen = 100
	if len(sql) <= maxLen {
		return sql
	}
	return sql[:maxLen] + "..."
}

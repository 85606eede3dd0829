package services

import (
	"context"

	"github.com/promptsql/sqlgate/pkg/models"
)

// Executor runs one classified statement with correct transactional
// semantics and returns a normalized result.
type Executor interface {
	Execute(ctx context.Context, stmt *models.Statement) (*models.ExecutionResult, error)
}

// Gate is the full pipeline: classify, validate, execute, project.
type Gate interface {
	// ExecuteSQL runs raw SQL text under the given trust context. The
	// envelope is always non-nil; err carries the typed failure when
	// Success is false.
	ExecuteSQL(ctx context.Context, rawSQL string, trust models.TrustContext) (*models.Envelope, error)
	// ExecutePrompt converts a natural-language prompt to SQL via the
	// AI collaborator and runs it on the AI-generated trust path.
	ExecutePrompt(ctx context.Context, prompt string) (*models.Envelope, error)
}

// MetadataService exposes the database schema, both structured and as
// the textual context handed to the AI collaborator.
type MetadataService interface {
	GetSchema(ctx context.Context) ([]models.TableSchema, error)
	SchemaContext(ctx context.Context) (string, error)
}

// Logger defines the logging interface services depend on.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

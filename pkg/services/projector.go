package services

import (
	"github.com/promptsql/sqlgate/pkg/errors"
	"github.com/promptsql/sqlgate/pkg/models"
)

// ResultProjector converts execution results and pipeline errors into
// the uniform response envelope. The envelope shape is identical for
// the AI path and the manual-edit path.
type ResultProjector struct{}

// NewResultProjector creates a new result projector.
func NewResultProjector() *ResultProjector {
	return &ResultProjector{}
}

// Project builds the success envelope. For SELECT the data rows carry
// transport-safe values and row_count is set; for mutations data is an
// empty array (never null) and affected_rows is set.
func (p *ResultProjector) Project(stmt *models.Statement, result *models.ExecutionResult) *models.Envelope {
	env := &models.Envelope{
		Success: true,
		SQL:     stmt.Normalized,
		Message: result.Message,
		Data:    make([]map[string]interface{}, 0, len(result.Rows)),
	}

	for _, row := range result.Rows {
		projected := make(map[string]interface{}, len(result.Columns))
		for _, col := range result.Columns {
			projected[col] = row[col].Native()
		}
		env.Data = append(env.Data, projected)
	}

	if result.Kind == models.KindSelect {
		count := len(result.Rows)
		env.RowCount = &count
	} else {
		affected := result.AffectedRows
		env.AffectedRows = &affected
	}
	return env
}

// ProjectError builds the failure envelope from a typed pipeline
// error. Raw driver text never reaches the caller; the sanitized
// message and the taxonomy kind do. sql may be empty when the input
// never classified.
func (p *ResultProjector) ProjectError(sql string, err error) *models.Envelope {
	return models.Failure(sql, errors.GetMessage(err), errors.GetKind(err))
}

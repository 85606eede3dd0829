package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/promptsql/sqlgate/pkg/errors"
	"github.com/promptsql/sqlgate/pkg/infrastructure/pool"
	"github.com/promptsql/sqlgate/pkg/models"
)

const schemaQuery = `SELECT table_name, column_name, column_type, is_nullable, column_key, column_default
FROM information_schema.columns
WHERE table_schema = DATABASE()
ORDER BY table_name, ordinal_position`

// metadataService reads table and column information from
// information_schema through a pooled lease. The rendered description
// is the context handed to the AI collaborator.
type metadataService struct {
	pool   pool.ConnectionPool
	logger Logger
}

// NewMetadataService creates a new metadata service.
func NewMetadataService(p pool.ConnectionPool, logger Logger) MetadataService {
	return &metadataService{pool: p, logger: logger}
}

// GetSchema returns every table of the current database with its
// columns in ordinal order.
func (s *metadataService) GetSchema(ctx context.Context) ([]models.TableSchema, error) {
	lease, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	rows, err := lease.Conn().QueryContext(ctx, schemaQuery)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExecutionFailed, "failed to read schema")
	}
	defer rows.Close()

	var tables []models.TableSchema
	byName := make(map[string]int)

	for rows.Next() {
		var table, column, colType, nullable, key string
		var def sql.NullString
		if err := rows.Scan(&table, &column, &colType, &nullable, &key, &def); err != nil {
			return nil, errors.Wrap(err, errors.CodeExecutionFailed, "failed to scan schema row")
		}

		idx, ok := byName[table]
		if !ok {
			idx = len(tables)
			byName[table] = idx
			tables = append(tables, models.TableSchema{Name: table})
		}

		col := models.ColumnSchema{
			Name:     column,
			Type:     colType,
			Nullable: strings.EqualFold(nullable, "YES"),
			Key:      key,
		}
		if def.Valid {
			v := def.String
			col.Default = &v
		}
		tables[idx].Columns = append(tables[idx].Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeExecutionFailed, "failed to read schema")
	}

	return tables, nil
}

// SchemaContext renders the human-readable schema description used as
// AI prompt context.
func (s *metadataService) SchemaContext(ctx context.Context) (string, error) {
	tables, err := s.GetSchema(ctx)
	if err != nil {
		return "", err
	}
	if len(tables) == 0 {
		return "", errors.New(errors.CodeExecutionFailed, "database has no tables")
	}

	var b strings.Builder
	b.WriteString("Database Schema:\n")
	for _, table := range tables {
		fmt.Fprintf(&b, "\nTable: %s\nColumns:\n", table.Name)
		for _, col := range table.Columns {
			fmt.Fprintf(&b, "  - %s (%s)", col.Name, col.Type)
			switch col.Key {
			case "PRI":
				b.WriteString(" [PRIMARY KEY]")
			case "MUL":
				b.WriteString(" [FOREIGN KEY]")
			}
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

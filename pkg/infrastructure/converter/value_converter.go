// Package converter normalizes driver values into the gate's closed
// value variant.
package converter

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/promptsql/sqlgate/pkg/models"
)

// ValueConverter converts raw driver values into models.Value exactly
// once, at the database boundary. Everything downstream of the executor
// sees only the closed variant.
type ValueConverter struct {
	logger zerolog.Logger
}

// New creates a new value converter.
func New(logger zerolog.Logger) *ValueConverter {
	return &ValueConverter{logger: logger}
}

// Date/time layouts the MySQL text protocol produces when parseTime is
// not in effect.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// Convert converts one scanned cell. colType may be nil when column
// metadata is unavailable; conversion then relies on the Go value alone.
func (c *ValueConverter) Convert(value interface{}, colType *sql.ColumnType) models.Value {
	switch v := value.(type) {
	case nil:
		return models.Null()
	case bool:
		return models.NewBool(v)
	case int64:
		return models.NewInt(v)
	case int32:
		return models.NewInt(int64(v))
	case int:
		return models.NewInt(int64(v))
	case uint64:
		// BIGINT UNSIGNED values above the int64 range cannot be held
		// in the integer variant without flipping sign.
		if v > math.MaxInt64 {
			return models.NewText(strconv.FormatUint(v, 10))
		}
		return models.NewInt(int64(v))
	case float64:
		return models.NewFloat(v)
	case float32:
		return models.NewFloat(float64(v))
	case time.Time:
		return models.NewTime(v)
	case string:
		return c.convertText(v, colType)
	case []byte:
		return c.convertText(string(v), colType)
	default:
		c.logger.Debug().
			Type("go_type", value).
			Msg("Unhandled driver type, passing through as text")
		return models.NewText(stringify(value))
	}
}

// convertText resolves the byte/string payloads the MySQL text protocol
// uses for decimals, dates, and character data.
func (c *ValueConverter) convertText(s string, colType *sql.ColumnType) models.Value {
	if colType == nil {
		return models.NewText(s)
	}

	switch dbType := strings.ToUpper(colType.DatabaseTypeName()); dbType {
	case "DECIMAL", "NUMERIC":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return models.NewFloat(f)
		}
		c.logger.Debug().Str("value", s).Msg("Unparseable decimal, passing through as text")
		return models.NewText(s)
	case "FLOAT", "DOUBLE":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return models.NewFloat(f)
		}
		return models.NewText(s)
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return models.NewInt(n)
		}
		return models.NewText(s)
	case "DATE", "DATETIME", "TIMESTAMP":
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return models.NewTime(t)
			}
		}
		return models.NewText(s)
	default:
		return models.NewText(s)
	}
}

// ConvertRow converts one scanned row, pairing values with their
// column metadata by position.
func (c *ValueConverter) ConvertRow(columns []string, colTypes []*sql.ColumnType, values []interface{}) models.Row {
	row := make(models.Row, len(columns))
	for i, name := range columns {
		var ct *sql.ColumnType
		if i < len(colTypes) {
			ct = colTypes[i]
		}
		row[name] = c.Convert(values[i], ct)
	}
	return row
}

func stringify(v interface{}) string {
	return fmt.Sprintf("%v", v)
}

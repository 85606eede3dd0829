package converter

import (
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptsql/sqlgate/pkg/models"
)

func TestConvert_GoTypes(t *testing.T) {
	conv := New(zerolog.Nop())
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		value    interface{}
		expected models.Value
	}{
		{"nil", nil, models.Null()},
		{"bool", true, models.NewBool(true)},
		{"int64", int64(42), models.NewInt(42)},
		{"int32", int32(7), models.NewInt(7)},
		{"int", 9, models.NewInt(9)},
		{"uint64", uint64(5), models.NewInt(5)},
		{"uint64 at int64 max", uint64(math.MaxInt64), models.NewInt(math.MaxInt64)},
		{"uint64 above int64 max", uint64(math.MaxUint64), models.NewText("18446744073709551615")},
		{"float64", 3.5, models.NewFloat(3.5)},
		{"float32", float32(1.5), models.NewFloat(1.5)},
		{"time", ts, models.NewTime(ts)},
		{"string", "hello", models.NewText("hello")},
		{"bytes", []byte("raw"), models.NewText("raw")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := conv.Convert(tt.value, nil)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// columnTypesFor fabricates real column metadata through a mocked query.
func columnTypesFor(t *testing.T, cols ...*sqlmock.Column) []*sql.ColumnType {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT meta").
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(cols...))

	rows, err := db.Query("SELECT meta")
	require.NoError(t, err)
	defer rows.Close()

	types, err := rows.ColumnTypes()
	require.NoError(t, err)
	return types
}

func TestConvertText_DatabaseTypes(t *testing.T) {
	conv := New(zerolog.Nop())

	types := columnTypesFor(t,
		sqlmock.NewColumn("price").OfType("DECIMAL", ""),
		sqlmock.NewColumn("count").OfType("BIGINT", ""),
		sqlmock.NewColumn("hired").OfType("DATETIME", ""),
		sqlmock.NewColumn("day").OfType("DATE", ""),
		sqlmock.NewColumn("name").OfType("VARCHAR", ""),
	)
	require.Len(t, types, 5)

	decimal := conv.Convert([]byte("75000.50"), types[0])
	assert.Equal(t, models.NewFloat(75000.50), decimal)

	count := conv.Convert([]byte("12"), types[1])
	assert.Equal(t, models.NewInt(12), count)

	hired := conv.Convert([]byte("2023-01-15 09:30:00"), types[2])
	require.Equal(t, models.ValueTime, hired.Kind)
	assert.Equal(t, 2023, hired.Time.Year())

	day := conv.Convert([]byte("2023-01-15"), types[3])
	require.Equal(t, models.ValueTime, day.Kind)
	assert.Equal(t, time.January, day.Time.Month())

	name := conv.Convert([]byte("Ana"), types[4])
	assert.Equal(t, models.NewText("Ana"), name)
}

func TestConvertText_UnparseablePayloadFallsBackToText(t *testing.T) {
	conv := New(zerolog.Nop())

	types := columnTypesFor(t,
		sqlmock.NewColumn("price").OfType("DECIMAL", ""),
		sqlmock.NewColumn("hired").OfType("DATETIME", ""),
	)

	assert.Equal(t, models.NewText("not-a-number"), conv.Convert("not-a-number", types[0]))
	assert.Equal(t, models.NewText("not-a-date"), conv.Convert("not-a-date", types[1]))
}

func TestConvertRow(t *testing.T) {
	conv := New(zerolog.Nop())

	columns := []string{"id", "name", "salary"}
	values := []interface{}{int64(1), []byte("Ana"), nil}

	row := conv.ConvertRow(columns, nil, values)
	require.Len(t, row, 3)
	assert.Equal(t, models.NewInt(1), row["id"])
	assert.Equal(t, models.NewText("Ana"), row["name"])
	assert.True(t, row["salary"].IsNull())
}

func TestValueNative(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	assert.Nil(t, models.Null().Native())
	assert.Equal(t, int64(3), models.NewInt(3).Native())
	assert.Equal(t, 2.5, models.NewFloat(2.5).Native())
	assert.Equal(t, "x", models.NewText("x").Native())
	assert.Equal(t, true, models.NewBool(true).Native())
	assert.Equal(t, "2024-05-01T12:30:00Z", models.NewTime(ts).Native())
}

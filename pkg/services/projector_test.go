package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/promptsql/sqlgate/pkg/errors"
	"github.com/promptsql/sqlgate/pkg/models"
)

func TestResultProjector_Select(t *testing.T) {
	projector := NewResultProjector()

	stmt := &models.Statement{Normalized: "SELECT id, name FROM employees", Kind: models.KindSelect}
	result := &models.ExecutionResult{
		Kind:    models.KindSelect,
		Columns: []string{"id", "name"},
		Rows: []models.Row{
			{"id": models.NewInt(1), "name": models.NewText("Ana")},
			{"id": models.NewInt(2), "name": models.Null()},
		},
		AffectedRows: -1,
		Message:      "Retrieved 2 row(s)",
	}

	env := projector.Project(stmt, result)
	assert.True(t, env.Success)
	assert.Equal(t, stmt.Normalized, env.SQL)
	require.NotNil(t, env.RowCount)
	assert.Equal(t, 2, *env.RowCount)
	assert.Nil(t, env.AffectedRows)
	require.Len(t, env.Data, 2)
	assert.Equal(t, int64(1), env.Data[0]["id"])
	assert.Equal(t, "Ana", env.Data[0]["name"])
	assert.Nil(t, env.Data[1]["name"])
}

func TestResultProjector_SelectEmptyDataIsArray(t *testing.T) {
	projector := NewResultProjector()

	stmt := &models.Statement{Normalized: "SELECT id FROM employees", Kind: models.KindSelect}
	result := &models.ExecutionResult{
		Kind:         models.KindSelect,
		Columns:      []string{"id"},
		AffectedRows: -1,
		Message:      "Retrieved 0 row(s)",
	}

	env := projector.Project(stmt, result)
	require.NotNil(t, env.Data)
	assert.Empty(t, env.Data)
	require.NotNil(t, env.RowCount)
	assert.Equal(t, 0, *env.RowCount)

	// The JSON form must carry [] rather than null.
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"data":[]`)
}

func TestResultProjector_Mutation(t *testing.T) {
	projector := NewResultProjector()

	stmt := &models.Statement{Normalized: "DELETE FROM employees WHERE id = 1", Kind: models.KindDelete}
	result := &models.ExecutionResult{
		Kind:         models.KindDelete,
		Rows:         []models.Row{},
		AffectedRows: 3,
		Message:      "Successfully deleted 3 row(s).",
	}

	env := projector.Project(stmt, result)
	assert.True(t, env.Success)
	assert.Nil(t, env.RowCount)
	require.NotNil(t, env.AffectedRows)
	assert.Equal(t, int64(3), *env.AffectedRows)
	assert.NotNil(t, env.Data)
	assert.Empty(t, env.Data)
	assert.Equal(t, "Successfully deleted 3 row(s).", env.Message)
}

func TestResultProjector_ProjectError(t *testing.T) {
	projector := NewResultProjector()

	err := pkgerrors.New(pkgerrors.CodePolicyViolation, ReasonMutationNoFilter)
	env := projector.ProjectError("DELETE FROM employees", err)

	assert.False(t, env.Success)
	assert.Equal(t, "DELETE FROM employees", env.SQL)
	assert.Equal(t, ReasonMutationNoFilter, env.Error)
	assert.Equal(t, pkgerrors.KindPolicyViolation, env.ErrorKind)
	assert.Nil(t, env.RowCount)
	assert.Nil(t, env.AffectedRows)
}

func TestResultProjector_ProjectErrorSanitizesDriverText(t *testing.T) {
	projector := NewResultProjector()

	cause := assert.AnError
	err := pkgerrors.Wrap(cause, pkgerrors.CodeConstraintViolation, "constraint violation")
	env := projector.ProjectError("INSERT INTO t VALUES (1)", err)

	assert.Equal(t, "constraint violation", env.Error)
	assert.NotContains(t, env.Error, cause.Error())
	assert.Equal(t, pkgerrors.KindExecutionError, env.ErrorKind)
}

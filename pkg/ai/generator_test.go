package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/promptsql/sqlgate/pkg/errors"
)

func newTestClient(endpoint string) *Client {
	return NewClient(Config{
		Endpoint: endpoint,
		APIKey:   "test-key",
		Model:    "test-model",
		Timeout:  2 * time.Second,
	}, zerolog.Nop())
}

func TestClient_GenerateSQL(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "SELECT * FROM employees"}},
			},
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	out, err := client.GenerateSQL(context.Background(), "show all employees", "Database Schema:\n\nTable: employees")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM employees", out)

	assert.Equal(t, "test-model", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "Table: employees")
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "show all employees", captured.Messages[1].Content)
}

func TestClient_GenerateSQL_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"message": "invalid api key"},
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.GenerateSQL(context.Background(), "prompt", "schema")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeExecutionFailed, pkgerrors.GetCode(err))
	assert.Contains(t, pkgerrors.GetMessage(err), "invalid api key")
}

func TestClient_GenerateSQL_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.GenerateSQL(context.Background(), "prompt", "schema")
	require.Error(t, err)
	assert.Equal(t, "AI collaborator returned no candidates", pkgerrors.GetMessage(err))
}

func TestClient_GenerateSQL_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.GenerateSQL(context.Background(), "prompt", "schema")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeExecutionFailed, pkgerrors.GetCode(err))
}

func TestClient_GenerateSQL_NotConfigured(t *testing.T) {
	client := NewClient(Config{}, zerolog.Nop())
	_, err := client.GenerateSQL(context.Background(), "prompt", "schema")
	require.Error(t, err)
	assert.Equal(t, "AI collaborator is not configured", pkgerrors.GetMessage(err))
}

func TestConfig_Configured(t *testing.T) {
	assert.False(t, Config{}.Configured())
	assert.False(t, Config{Endpoint: "http://x"}.Configured())
	assert.False(t, Config{APIKey: "k"}.Configured())
	assert.True(t, Config{Endpoint: "http://x", APIKey: "k"}.Configured())
}

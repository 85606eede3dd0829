// Package handlers exposes the SQL gate over a JSON HTTP boundary.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/promptsql/sqlgate/pkg/errors"
	"github.com/promptsql/sqlgate/pkg/infrastructure/pool"
	"github.com/promptsql/sqlgate/pkg/models"
	"github.com/promptsql/sqlgate/pkg/services"
)

const maxRequestBody = 1 << 20 // 1 MiB

// GateHandler serves the AI-originated and manual-edit request paths.
// Both accept exactly one statement per call and return the uniform
// envelope.
type GateHandler struct {
	gate         services.Gate
	metadata     services.MetadataService
	pool         pool.ConnectionPool
	aiConfigured bool
	logger       services.Logger
}

// NewGateHandler creates a new HTTP handler for the gate.
func NewGateHandler(
	gate services.Gate,
	metadata services.MetadataService,
	p pool.ConnectionPool,
	aiConfigured bool,
	logger services.Logger,
) *GateHandler {
	return &GateHandler{
		gate:         gate,
		metadata:     metadata,
		pool:         p,
		aiConfigured: aiConfigured,
		logger:       logger,
	}
}

// Mount registers the gate routes on the given router.
func (h *GateHandler) Mount(r chi.Router) {
	r.Get("/", h.handleInfo)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Get("/schema", h.handleSchema)
		r.Get("/examples", h.handleExamples)
		r.Post("/prompt", h.handlePrompt)
		r.Post("/raw-query", h.handleRawQuery)
		r.Post("/execute-manual", h.handleExecuteManual)
	})
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type sqlRequest struct {
	SQL string `json:"sql"`
}

func (h *GateHandler) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":        "sqlgate",
		"description": "Natural language to SQL gateway with a safety gate and transactional executor",
		"endpoints": map[string]string{
			"POST /api/prompt":         "Convert natural language to SQL and execute (read-only)",
			"POST /api/raw-query":      "Execute caller-supplied SQL on the read-only profile",
			"POST /api/execute-manual": "Execute hand-edited SQL (SELECT/INSERT/UPDATE/DELETE)",
			"GET /api/health":          "Health check",
			"GET /api/schema":          "Database schema",
			"GET /api/examples":        "Example prompts",
		},
	})
}

func (h *GateHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbConnected := true
	dbMessage := "connected"
	if err := h.pool.HealthCheck(r.Context()); err != nil {
		dbConnected = false
		dbMessage = pkgerrors.GetMessage(err)
	}

	status := "healthy"
	code := http.StatusOK
	if !dbConnected {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"database": map[string]interface{}{
			"connected": dbConnected,
			"message":   dbMessage,
		},
		"ai_service": map[string]interface{}{
			"configured": h.aiConfigured,
		},
	})
}

func (h *GateHandler) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.metadata.GetSchema(r.Context())
	if err != nil {
		h.logger.Error("Schema request failed", "error", err)
		writeJSON(w, statusForError(err), models.Failure("", pkgerrors.GetMessage(err), pkgerrors.GetKind(err)))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"schema":  schema,
	})
}

func (h *GateHandler) handleExamples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"examples": []map[string]string{
			{"prompt": "Show all employees", "description": "Basic query to list all employee records"},
			{"prompt": "Find employees with salary greater than 70000", "description": "Filter employees by salary"},
			{"prompt": "List employees in the Engineering department", "description": "Filter by department name"},
			{"prompt": "Get the top 5 highest paid employees", "description": "Limiting results with ordering"},
			{"prompt": "Count employees in each department", "description": "Aggregation with GROUP BY"},
			{"prompt": "List departments with their total employee count", "description": "JOIN with aggregation"},
		},
	})
}

func (h *GateHandler) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest,
			models.Failure("", "empty prompt provided", pkgerrors.KindValidationError))
		return
	}

	env, err := h.gate.ExecutePrompt(r.Context(), req.Prompt)
	writeEnvelope(w, env, err)
}

func (h *GateHandler) handleRawQuery(w http.ResponseWriter, r *http.Request) {
	h.handleSQL(w, r, models.TrustAIGenerated)
}

func (h *GateHandler) handleExecuteManual(w http.ResponseWriter, r *http.Request) {
	h.handleSQL(w, r, models.TrustManualEdit)
}

func (h *GateHandler) handleSQL(w http.ResponseWriter, r *http.Request, trust models.TrustContext) {
	var req sqlRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SQL == "" {
		writeJSON(w, http.StatusBadRequest,
			models.Failure("", "no SQL query provided", pkgerrors.KindValidationError))
		return
	}

	env, err := h.gate.ExecuteSQL(r.Context(), req.SQL, trust)
	writeEnvelope(w, env, err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest,
			models.Failure("", "invalid JSON body", pkgerrors.KindValidationError))
		return false
	}
	return true
}

func writeEnvelope(w http.ResponseWriter, env *models.Envelope, err error) {
	if err != nil {
		writeJSON(w, statusForError(err), env)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

// statusForError maps the gate taxonomy to HTTP status codes. Raw
// driver errors never reach this layer.
func statusForError(err error) int {
	var gateErr *pkgerrors.GateError
	if !errors.As(err, &gateErr) {
		return http.StatusInternalServerError
	}
	switch gateErr.Kind() {
	case pkgerrors.KindValidationError, pkgerrors.KindPolicyViolation:
		return http.StatusBadRequest
	case pkgerrors.KindConnectionError:
		return http.StatusServiceUnavailable
	case pkgerrors.KindExecutionError:
		if gateErr.Code == pkgerrors.CodeTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

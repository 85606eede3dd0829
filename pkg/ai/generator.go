// Package ai specifies the external AI collaborator at its interface
// and provides an HTTP-backed client. The collaborator turns a
// natural-language prompt plus a schema description into candidate SQL
// text; everything it returns enters the gate untrusted.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/promptsql/sqlgate/pkg/errors"
)

// Generator produces candidate SQL text from a natural-language prompt.
type Generator interface {
	GenerateSQL(ctx context.Context, prompt, schemaContext string) (string, error)
}

// Config holds client settings for the AI collaborator.
type Config struct {
	Endpoint string        `json:"endpoint"`
	APIKey   string        `json:"-"`
	Model    string        `json:"model"`
	Timeout  time.Duration `json:"timeout"`
}

// Configured reports whether the client has enough settings to call
// the collaborator.
func (c Config) Configured() bool {
	return c.Endpoint != "" && c.APIKey != ""
}

// Client calls an OpenAI-compatible chat-completion endpoint.
type Client struct {
	config Config
	http   *http.Client
	logger zerolog.Logger
}

// NewClient creates a new AI collaborator client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

const systemPromptTemplate = `You are a SQL query generator for a MySQL database.
Convert the user's natural language request into a single SELECT statement.
Return only the SQL statement, with no explanation and no markdown formatting.
Never generate INSERT, UPDATE, DELETE, or DDL statements.

%s`

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateSQL asks the collaborator for SQL text. The returned string
// is raw model output; callers must clean and then gate it.
func (c *Client) GenerateSQL(ctx context.Context, prompt, schemaContext string) (string, error) {
	if !c.config.Configured() {
		return "", errors.New(errors.CodeExecutionFailed, "AI collaborator is not configured")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(systemPromptTemplate, schemaContext)},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to encode AI request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to build AI request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeExecutionFailed, "AI collaborator unreachable")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, errors.CodeExecutionFailed, "failed to read AI response")
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("AI collaborator responded")

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", errors.Wrap(err, errors.CodeExecutionFailed, "malformed AI response")
	}
	if parsed.Error != nil {
		return "", errors.New(errors.CodeExecutionFailed,
			fmt.Sprintf("AI collaborator error: %s", parsed.Error.Message))
	}
	if resp.StatusCode != http.StatusOK || len(parsed.Choices) == 0 {
		return "", errors.New(errors.CodeExecutionFailed, "AI collaborator returned no candidates")
	}

	return parsed.Choices[0].Message.Content, nil
}

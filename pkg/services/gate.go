package services

import (
	"context"

	"github.com/promptsql/sqlgate/pkg/ai"
	"github.com/promptsql/sqlgate/pkg/errors"
	"github.com/promptsql/sqlgate/pkg/infrastructure/metrics"
	"github.com/promptsql/sqlgate/pkg/models"
)

// gateService composes the pipeline: classifier, policy, executor,
// projector. Each stage fails fast with a typed error; no stage
// retries or downgrades another stage's decision.
type gateService struct {
	classifier *StatementClassifier
	policy     *SafetyPolicy
	executor   Executor
	projector  *ResultProjector
	generator  ai.Generator
	metadata   MetadataService
	logger     Logger
	metrics    metrics.Collector
}

// NewGate creates the gate pipeline. generator and metadata may be nil
// when the AI path is not served (ExecutePrompt then fails cleanly).
func NewGate(
	executor Executor,
	generator ai.Generator,
	metadata MetadataService,
	logger Logger,
	collector metrics.Collector,
) Gate {
	return &gateService{
		classifier: NewStatementClassifier(),
		policy:     NewSafetyPolicy(),
		executor:   executor,
		projector:  NewResultProjector(),
		generator:  generator,
		metadata:   metadata,
		logger:     logger,
		metrics:    collector,
	}
}

// ExecuteSQL runs one raw SQL string through the full pipeline under
// the given trust context.
func (s *gateService) ExecuteSQL(ctx context.Context, rawSQL string, trust models.TrustContext) (*models.Envelope, error) {
	timer := s.metrics.StartTimer("sqlgate_request_duration_seconds")
	defer timer.Stop()

	stmt, err := s.classifier.Classify(rawSQL)
	if err != nil {
		// Label names must match the policy path below; a vector only
		// registers once.
		s.metrics.IncrementCounter("sqlgate_rejections_total",
			"stage", "classifier", "reason", errors.GetMessage(err))
		s.logger.Warn("Statement rejected by classifier", "error", err, "trust", trust.String())
		return s.projector.ProjectError("", err), err
	}

	if outcome := s.policy.Validate(stmt, trust); !outcome.Accepted {
		err := errors.New(errors.CodePolicyViolation, outcome.Reason)
		s.metrics.IncrementCounter("sqlgate_rejections_total",
			"stage", "policy", "reason", outcome.Reason)
		s.logger.Warn("Statement rejected by safety policy",
			"reason", outcome.Reason,
			"kind", stmt.Kind.String(),
			"trust", trust.String(),
			"statement", truncateSQL(stmt.Normalized))
		return s.projector.ProjectError(stmt.Normalized, err), err
	}

	result, err := s.executor.Execute(ctx, stmt)
	if err != nil {
		s.logger.Error("Statement execution failed",
			"error", err,
			"kind", stmt.Kind.String(),
			"statement", truncateSQL(stmt.Normalized))
		return s.projector.ProjectError(stmt.Normalized, err), err
	}

	s.logger.Info("Statement executed",
		"kind", stmt.Kind.String(),
		"trust", trust.String(),
		"rows", len(result.Rows),
		"affected", result.AffectedRows,
		"duration", result.ExecutionTime)
	return s.projector.Project(stmt, result), nil
}

// ExecutePrompt is the AI-originated path: build the schema context,
// ask the collaborator for SQL, clean its response, then run it with
// the AI trust profile.
func (s *gateService) ExecutePrompt(ctx context.Context, prompt string) (*models.Envelope, error) {
	if s.generator == nil || s.metadata == nil {
		err := errors.New(errors.CodeExecutionFailed, "AI path is not configured")
		return s.projector.ProjectError("", err), err
	}

	schemaContext, err := s.metadata.SchemaContext(ctx)
	if err != nil {
		s.logger.Error("Failed to build schema context", "error", err)
		return s.projector.ProjectError("", err), err
	}

	generated, err := s.generator.GenerateSQL(ctx, prompt, schemaContext)
	if err != nil {
		s.metrics.IncrementCounter("sqlgate_ai_failures_total")
		s.logger.Error("AI generation failed", "error", err)
		return s.projector.ProjectError("", err), err
	}

	cleaned := ai.CleanResponse(generated)
	s.logger.Debug("AI collaborator produced candidate SQL",
		"statement", truncateSQL(cleaned))

	return s.ExecuteSQL(ctx, cleaned, models.TrustAIGenerated)
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/persistence"
	"github.com/arbiterhq/arbiter/pkg/pipeline"
)

// EvaluationService runs staged pipeline evaluations and keeps their
// sessions durable.
type EvaluationService struct {
	orchestrator *pipeline.Orchestrator
	persistence  persistence.Persistence
	logger       *slog.Logger
}

func NewEvaluationService(orchestrator *pipeline.Orchestrator, store persistence.Persistence, logger *slog.Logger) *EvaluationService {
	return &EvaluationService{
		orchestrator: orchestrator,
		persistence:  store,
		logger:       logger.With("module", "evaluation-service"),
	}
}

// Evaluate runs the full pipeline over one artifact. The session is
// persisted whether the pipeline completed or failed.
func (s *EvaluationService) Evaluate(ctx context.Context, artifact models.Artifact, evalCtx models.EvaluationContext) (*models.PipelineSession, error) {
	if strings.TrimSpace(artifact.Text) == "" {
		return nil, validationErrorf("artifact text must not be empty")
	}

	session, execErr := s.orchestrator.Execute(ctx, artifact, evalCtx)
	if session != nil {
		if err := s.persistence.Sessions().Save(ctx, session); err != nil {
			s.logger.ErrorContext(ctx, "Failed to persist session", "session_id", session.ID, "error", err)
		}
	}

	if execErr != nil {
		return session, fmt.Errorf("evaluation failed: %w", execErr)
	}

	return session, nil
}

// GetSession returns an in-flight session if one is active, otherwise the
// persisted record.
func (s *EvaluationService) GetSession(ctx context.Context, id string) (*models.PipelineSession, error) {
	if session, ok := s.orchestrator.ActiveSession(id); ok {
		return session, nil
	}

	return s.persistence.Sessions().GetByID(ctx, id)
}

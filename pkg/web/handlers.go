// Package web provides the REST API over evaluations, workflows, batches
// and approvals.
package web

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/persistence"
	"github.com/arbiterhq/arbiter/pkg/services"
)

type APIHandlers struct {
	evaluations *services.EvaluationService
	executions  *services.ExecutionService
	approvals   *services.ApprovalService
	persistence persistence.Persistence
}

func NewAPIHandlers(
	evaluations *services.EvaluationService,
	executions *services.ExecutionService,
	approvals *services.ApprovalService,
	store persistence.Persistence,
) *APIHandlers {
	return &APIHandlers{
		evaluations: evaluations,
		executions:  executions,
		approvals:   approvals,
		persistence: store,
	}
}

// RegisterRoutes mounts every API route on the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	app.Post("/evaluations", h.CreateEvaluation)
	app.Get("/evaluations/:id", h.GetEvaluation)

	app.Post("/batches", h.SubmitBatch)
	app.Get("/batches/:id", h.GetBatch)
	app.Post("/batches/:id/cancel", h.CancelBatch)

	app.Post("/workflows", h.CreateWorkflow)
	app.Get("/workflows", h.ListWorkflows)
	app.Get("/workflows/:id", h.GetWorkflow)
	app.Delete("/workflows/:id", h.DeleteWorkflow)
	app.Post("/workflows/:id/executions", h.StartExecution)

	app.Get("/executions", h.ListExecutions)
	app.Get("/executions/:id", h.GetExecution)
	app.Post("/executions/:id/cancel", h.CancelExecution)

	app.Get("/approvals", h.ListPendingApprovals)
	app.Post("/approvals/:id/decision", h.DecideApproval)

	app.Get("/health", h.HealthCheck)
}

// CreateEvaluation runs the full staged pipeline synchronously and returns
// the session with its report.
func (h *APIHandlers) CreateEvaluation(c fiber.Ctx) error {
	var req EvaluationRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	session, err := h.evaluations.Evaluate(c.Context(), req.Artifact, req.Context)
	if err != nil {
		if services.IsValidationError(err) {
			return badRequest(c, err.Error())
		}

		// A failed session is still useful to the caller.
		if session != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(session)
		}

		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

func (h *APIHandlers) GetEvaluation(c fiber.Ctx) error {
	session, err := h.evaluations.GetSession(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(session)
}

func (h *APIHandlers) SubmitBatch(c fiber.Ctx) error {
	var req BatchSubmission
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	batch, err := h.executions.SubmitBatch(c.Context(), models.BatchRequest{
		AgentIDs: req.AgentIDs,
		Artifact: req.Artifact,
		Priority: req.Priority,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(batch)
}

func (h *APIHandlers) GetBatch(c fiber.Ctx) error {
	batch, err := h.executions.GetBatch(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(batch)
}

func (h *APIHandlers) CancelBatch(c fiber.Ctx) error {
	if err := h.executions.CancelBatch(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// CreateWorkflow validates the raw definition against the workflow schema
// before decoding, so structural errors surface with schema messages.
func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var document map[string]any
	if err := json.Unmarshal(c.Body(), &document); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := models.ValidateWorkflowDocument(document); err != nil {
		return badRequest(c, err.Error())
	}

	var workflow models.Workflow
	if err := json.Unmarshal(c.Body(), &workflow); err != nil {
		return badRequest(c, "Invalid workflow definition: "+err.Error())
	}

	if err := h.executions.CreateWorkflow(c.Context(), &workflow); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) ListWorkflows(c fiber.Ctx) error {
	workflows, err := h.executions.ListWorkflows(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows, "count": len(workflows)})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.executions.GetWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.executions.DeleteWorkflow(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// StartExecution launches a workflow run and returns its pending record;
// the run continues in the background.
func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	var req StartExecutionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return badRequest(c, "Invalid request body: "+err.Error())
		}
	}

	execution, err := h.executions.StartExecution(c.Context(), c.Params("id"), req.Input, req.Metadata)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(execution)
}

func (h *APIHandlers) ListExecutions(c fiber.Ctx) error {
	executions, err := h.executions.ListExecutions(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions, "count": len(executions)})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.executions.GetExecution(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	if err := h.executions.CancelExecution(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) ListPendingApprovals(c fiber.Ctx) error {
	approvals, err := h.approvals.ListPending(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"approvals": approvals, "count": len(approvals)})
}

func (h *APIHandlers) DecideApproval(c fiber.Ctx) error {
	var req ApprovalDecisionRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if req.DecidedBy == "" {
		return badRequest(c, "decided_by is required")
	}

	approval, err := h.approvals.Decide(c.Context(), c.Params("id"), req.Approve, req.DecidedBy, req.Comment)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(approval)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}

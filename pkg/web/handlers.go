// Package web provides the HTTP handlers of the sub-workflow API.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/subflow/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// Coordinator is the part of subflow.Coordinator the handlers call.
type Coordinator interface {
	Execute(ctx context.Context, req models.ExecutionRequest) models.ExecutionResult
	GetResults(ctx context.Context, sessionRef string, wait bool, timeout, pollInterval int) models.ExecutionResult
	GetStatus(ctx context.Context, sessionRef string) models.ResultStatus
}

// Store is the persistence surface of the workflow and health endpoints.
type Store interface {
	HealthCheck(ctx context.Context) error
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
}

type APIHandlers struct {
	coordinator Coordinator
	store       Store
	validator   *validator.Validate
}

func NewAPIHandlers(coordinator Coordinator, store Store, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		coordinator: coordinator,
		store:       store,
		validator:   validator,
	}
}

// Register mounts every endpoint on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Post("/executions", h.Execute)

	s := router.Group("/sessions")
	s.Get("/:id/results", h.GetResults)
	s.Get("/:id/status", h.GetStatus)

	w := router.Group("/workflows")
	w.Post("/", h.SaveWorkflow)
	w.Get("/:id", h.GetWorkflow)

	router.Get("/health", h.HealthCheck)
}

// Execute launches a sub-workflow. Outcomes of the call itself, including guard
// rejections, are returned as an ExecutionResult with status 200.
func (h *APIHandlers) Execute(c fiber.Ctx) error {
	var req ExecuteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result := h.coordinator.Execute(c.Context(), req.ToModel())

	return c.JSON(result)
}

func (h *APIHandlers) GetResults(c fiber.Ctx) error {
	sessionRef := c.Params("id")
	if sessionRef == "" {
		return badRequest(c, "Session ID is required")
	}

	query, err := parseResultsQuery(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	if err := h.validator.Struct(query); err != nil {
		return badRequest(c, err.Error())
	}

	result := h.coordinator.GetResults(c.Context(), sessionRef, query.Wait, query.Timeout, query.PollInterval)

	return c.JSON(result)
}

// parseResultsQuery reads wait, timeout and poll_interval. Without wait the run is checked once.
func parseResultsQuery(c fiber.Ctx) (ResultsQuery, error) {
	var query ResultsQuery

	if waitStr := c.Query("wait"); waitStr != "" {
		wait, err := strconv.ParseBool(waitStr)
		if err != nil {
			return query, err
		}

		query.Wait = wait
	}

	if timeoutStr := c.Query("timeout"); timeoutStr != "" {
		timeout, err := strconv.Atoi(timeoutStr)
		if err != nil {
			return query, err
		}

		query.Timeout = timeout
	}

	if intervalStr := c.Query("poll_interval"); intervalStr != "" {
		interval, err := strconv.Atoi(intervalStr)
		if err != nil {
			return query, err
		}

		query.PollInterval = interval
	}

	return query, nil
}

func (h *APIHandlers) GetStatus(c fiber.Ctx) error {
	sessionRef := c.Params("id")
	if sessionRef == "" {
		return badRequest(c, "Session ID is required")
	}

	status := h.coordinator.GetStatus(c.Context(), sessionRef)

	return c.JSON(StatusResponse{
		SessionRef: sessionRef,
		Status:     status,
		Complete:   status.IsTerminal(),
	})
}

func (h *APIHandlers) SaveWorkflow(c fiber.Ctx) error {
	var req SaveWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow := &models.Workflow{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Status:      models.WorkflowStatusPublished,
		InputSchema: req.InputSchema,
		Metadata:    req.Metadata,
		Owner:       req.Owner,
	}

	if workflow.ID == "" {
		workflow.ID = uuid.NewString()
	}

	if err := h.store.SaveWorkflow(c.Context(), workflow); err != nil {
		return handleStoreError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.store.GetWorkflow(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Subflow API is healthy"
	httpStatus := http.StatusOK
	check := "ok"

	if err := h.store.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Subflow API is unhealthy"
		httpStatus = http.StatusInternalServerError
		check = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"persistence": check,
		},
		"timestamp": time.Now().UTC(),
	})
}

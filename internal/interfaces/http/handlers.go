package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/elevix/approval-flow/internal/application/port"
	"github.com/elevix/approval-flow/internal/application/service"
	"github.com/elevix/approval-flow/internal/domain/entity"
	"github.com/elevix/approval-flow/internal/domain/workflow"
	"github.com/elevix/approval-flow/internal/report"
)

// actingUserHeader names the caller for permission checks. The value is an
// e-mail address resolved through the directory.
const actingUserHeader = "X-Acting-User"

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine    service.TransitionEngine
	ledger    *service.LedgerService
	directory port.DirectoryResolver
	exporter  *report.Exporter
	logger    Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	engine service.TransitionEngine,
	ledger *service.LedgerService,
	directory port.DirectoryResolver,
	exporter *report.Exporter,
	logger Logger,
) *Handlers {
	return &Handlers{
		engine:    engine,
		ledger:    ledger,
		directory: directory,
		exporter:  exporter,
		logger:    logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SubmitWorkflowRequest is the POST /workflows body
type SubmitWorkflowRequest struct {
	Kind     string                 `json:"kind" binding:"required"`
	Title    string                 `json:"title" binding:"required"`
	Document *entity.DocumentFields `json:"document,omitempty"`
	Leave    *entity.LeaveFields    `json:"leave,omitempty"`
	Task     *entity.TaskFields     `json:"task,omitempty"`
}

// TransitionRequest is the body for advance and reject calls
type TransitionRequest struct {
	Comment string `json:"comment"`
}

// ListWorkflowsRequest represents query parameters for listing workflows
type ListWorkflowsRequest struct {
	Kind        string `form:"kind"`
	Status      string `form:"status"`
	Submitter   int64  `form:"submitter"`
	Responsible int64  `form:"responsible"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

// WorkflowResponse pairs the workflow record with its subject
type WorkflowResponse struct {
	Workflow *entity.WorkflowRecord `json:"workflow"`
	Subject  *entity.SubjectRecord  `json:"subject,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// SubmitWorkflow handles POST /api/v1/workflows
func (h *Handlers) SubmitWorkflow(c *gin.Context) {
	actingUser, ok := h.actingUser(c)
	if !ok {
		return
	}

	var req SubmitWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	kind := workflow.Kind(req.Kind)
	if !kind.IsValid() {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "unknown workflow kind",
		})
		return
	}

	rec, err := h.engine.Submit(c.Request.Context(), service.SubmitRequest{
		Kind:        kind,
		SubmitterID: actingUser,
		Title:       req.Title,
		Document:    req.Document,
		Leave:       req.Leave,
		Task:        req.Task,
	})
	if err != nil {
		h.writeError(c, err, "failed to submit workflow")
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    WorkflowResponse{Workflow: rec},
	})
}

// ListWorkflows handles GET /api/v1/workflows
func (h *Handlers) ListWorkflows(c *gin.Context) {
	var req ListWorkflowsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	records, err := h.engine.List(c.Request.Context(), port.WorkflowFilter{
		Kind:          workflow.Kind(req.Kind),
		Status:        workflow.Status(req.Status),
		SubmitterID:   req.Submitter,
		ResponsibleID: req.Responsible,
		Limit:         req.Limit,
		Offset:        req.Offset,
	})
	if err != nil {
		h.logger.Error("Failed to list workflows", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve workflows",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    records,
	})
}

// GetWorkflow handles GET /api/v1/workflows/:id
func (h *Handlers) GetWorkflow(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	rec, subj, err := h.engine.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to retrieve workflow")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    WorkflowResponse{Workflow: rec, Subject: subj},
	})
}

// GetCapabilities handles GET /api/v1/workflows/:id/capabilities
func (h *Handlers) GetCapabilities(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	actingUser, ok := h.actingUser(c)
	if !ok {
		return
	}

	caps, err := h.engine.Capabilities(c.Request.Context(), id, actingUser)
	if err != nil {
		h.writeError(c, err, "failed to compute capabilities")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"capabilities": caps.List()},
	})
}

// AdvanceWorkflow handles POST /api/v1/workflows/:id/advance
func (h *Handlers) AdvanceWorkflow(c *gin.Context) {
	h.transition(c, h.engine.Advance)
}

// RejectWorkflow handles POST /api/v1/workflows/:id/reject
func (h *Handlers) RejectWorkflow(c *gin.Context) {
	h.transition(c, h.engine.Reject)
}

// CancelWorkflow handles POST /api/v1/workflows/:id/cancel
func (h *Handlers) CancelWorkflow(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	actingUser, ok := h.actingUser(c)
	if !ok {
		return
	}

	rec, err := h.engine.Cancel(c.Request.Context(), id, actingUser)
	if err != nil {
		h.writeError(c, err, "failed to cancel workflow")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    WorkflowResponse{Workflow: rec},
	})
}

// ListBalances handles GET /api/v1/balances/:owner
func (h *Handlers) ListBalances(c *gin.Context) {
	ownerStr := c.Param("owner")
	ownerID, err := strconv.ParseInt(ownerStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid owner ID",
		})
		return
	}

	balances, err := h.ledger.Balances(c.Request.Context(), ownerID)
	if err != nil {
		h.logger.Error("Failed to list balances", "owner_id", ownerID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve balances",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    balances,
	})
}

// ExportWorkflows handles GET /api/v1/reports/workflows.xlsx
func (h *Handlers) ExportWorkflows(c *gin.Context) {
	records, err := h.engine.List(c.Request.Context(), port.WorkflowFilter{Limit: 1000})
	if err != nil {
		h.logger.Error("Failed to list workflows for export", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve workflows",
		})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="workflows.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := h.exporter.WriteWorkbook(records, c.Writer); err != nil {
		h.logger.Error("Failed to write workbook", "error", err)
	}
}

// transition runs an advance or reject call, sharing the identical
// request/response plumbing between the two.
func (h *Handlers) transition(c *gin.Context, op func(ctx context.Context, workflowID, actingUser int64, comment string) (*entity.WorkflowRecord, error)) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	actingUser, ok := h.actingUser(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   "invalid request body",
			})
			return
		}
	}

	rec, err := op(c.Request.Context(), id, actingUser, req.Comment)
	if err != nil {
		h.writeError(c, err, "transition failed")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    WorkflowResponse{Workflow: rec},
	})
}

// actingUser resolves the caller named in the X-Acting-User header. Every
// mutating call and the capabilities endpoint require it.
func (h *Handlers) actingUser(c *gin.Context) (int64, bool) {
	email := c.GetHeader(actingUserHeader)
	if email == "" {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   actingUserHeader + " header is required",
		})
		return 0, false
	}

	id, err := h.directory.ResolveID(c.Request.Context(), email)
	if err != nil {
		h.logger.Error("Failed to resolve acting user", "email", email, "error", err)
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "unknown acting user",
		})
		return 0, false
	}
	return id, true
}

func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid workflow ID",
		})
		return 0, false
	}
	return id, true
}

// writeError maps domain errors to HTTP status codes
func (h *Handlers) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
	case errors.Is(err, workflow.ErrUnauthorized):
		c.JSON(http.StatusForbidden, Response{Success: false, Error: err.Error()})
	case errors.Is(err, workflow.ErrConflict),
		errors.Is(err, workflow.ErrAlreadyTerminal),
		errors.Is(err, workflow.ErrInvalidTransition):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	case errors.Is(err, workflow.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	case errors.Is(err, workflow.ErrNotConfigured):
		c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error(fallback, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: fallback})
	}
}

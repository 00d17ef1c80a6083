package fraud

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shailjagaurzz/jan-kavach/pkg/common"
	"github.com/shailjagaurzz/jan-kavach/pkg/middleware"
	"github.com/shailjagaurzz/jan-kavach/pkg/pagination"
	"github.com/shailjagaurzz/jan-kavach/pkg/security"
	"github.com/shailjagaurzz/jan-kavach/pkg/validation"
)

// Handler handles HTTP requests for fraud detection
type Handler struct {
	service *Service
}

// NewHandler creates a new fraud handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Detect scores a detection event for the authenticated user
// POST /api/v1/fraud/detect
func (h *Handler) Detect(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req DetectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	req.PhoneNumber = security.SanitizePhone(req.PhoneNumber)
	req.Content = security.SanitizeString(req.Content)
	if err := validation.ValidateStruct(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result := h.service.DetectFraud(c.Request.Context(), userID, &req)
	common.SuccessResponse(c, result)
}

// Report submits a community fraud report for a number
// POST /api/v1/fraud/report
func (h *Handler) Report(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	req.PhoneNumber = security.SanitizePhone(req.PhoneNumber)
	req.Reason = security.SanitizeString(req.Reason)
	req.Evidence = security.SanitizeString(req.Evidence)
	if err := validation.ValidateStruct(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result := h.service.ReportFraudNumber(c.Request.Context(), userID, &req)
	if !result.Success {
		common.ErrorResponse(c, http.StatusInternalServerError, result.Message)
		return
	}
	common.CreatedResponse(c, result)
}

// AddTrusted adds a number to the caller's trust list
// POST /api/v1/fraud/trusted
func (h *Handler) AddTrusted(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req TrustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	req.PhoneNumber = security.SanitizePhone(req.PhoneNumber)
	req.Name = security.SanitizeString(req.Name)
	if err := validation.ValidateStruct(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result := h.service.AddTrustedNumber(c.Request.Context(), userID, &req)
	if !result.Success {
		common.ErrorResponse(c, http.StatusInternalServerError, result.Message)
		return
	}
	common.CreatedResponse(c, result)
}

// ListLogs returns the caller's detection history
// GET /api/v1/fraud/logs
func (h *Handler) ListLogs(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	params := pagination.ParseParams(c)
	logs, total, err := h.service.ListDetectionLogs(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list detection logs")
		return
	}

	meta := pagination.BuildMeta(params.Limit, params.Offset, total)
	common.SuccessResponseWithMeta(c, logs, meta)
}

// UpdateLogResponse attaches the user's follow-up to a detection log.
// The route binds the body via middleware.ValidateRequest(&ResponseRequest{}).
// PATCH /api/v1/fraud/logs/:id/response
func (h *Handler) UpdateLogResponse(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	logID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid log id")
		return
	}

	validated, ok := middleware.GetValidatedRequest(c)
	if !ok {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}
	req := validated.(*ResponseRequest)

	if err := h.service.UpdateLogResponse(c.Request.Context(), logID, userID, req.Response); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.ErrorResponse(c, http.StatusNotFound, "detection log not found")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to update detection log")
		return
	}
	common.SuccessResponse(c, gin.H{"updated": true})
}

// Stats returns detection aggregates over the trailing 30 days (admin)
// GET /api/v1/admin/fraud/stats
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to load detection stats")
		return
	}
	common.SuccessResponse(c, stats)
}

package evidence

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shailjagaurzz/jan-kavach/pkg/common"
	"github.com/shailjagaurzz/jan-kavach/pkg/middleware"
	"github.com/shailjagaurzz/jan-kavach/pkg/pagination"
	"github.com/shailjagaurzz/jan-kavach/pkg/security"
)

// Handler handles HTTP requests for the evidence vault
type Handler struct {
	service *Service
}

// NewHandler creates a new evidence handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

const maxEvidenceSize = 25 << 20 // 25 MiB

// Upload ingests a multipart evidence file
// POST /api/v1/evidence
func (h *Handler) Upload(c *gin.Context) {
	ownerID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "missing evidence file")
		return
	}
	if fileHeader.Size > maxEvidenceSize {
		common.ErrorResponse(c, http.StatusRequestEntityTooLarge, "evidence file exceeds size limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "unable to read evidence file")
		return
	}
	defer file.Close()

	fileName := security.SanitizeFilename(fileHeader.Filename)
	mimeType := fileHeader.Header.Get("Content-Type")

	record, err := h.service.Upload(c.Request.Context(), ownerID, fileName, mimeType, file)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to store evidence")
		return
	}

	common.CreatedResponse(c, record)
}

// List returns the caller's evidence records
// GET /api/v1/evidence
func (h *Handler) List(c *gin.Context) {
	ownerID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	params := pagination.ParseParams(c)
	records, total, err := h.service.ListByOwner(c.Request.Context(), ownerID, params.Limit, params.Offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list evidence")
		return
	}

	meta := pagination.BuildMeta(params.Limit, params.Offset, total)
	common.SuccessResponseWithMeta(c, records, meta)
}

// Verify reports the integrity status of one evidence record
// GET /api/v1/evidence/:id/verify
func (h *Handler) Verify(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid evidence id")
		return
	}

	result, err := h.service.Verify(c.Request.Context(), id)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to verify evidence")
		return
	}

	common.SuccessResponse(c, result)
}

// Download streams the evidence file when its integrity verifies
// GET /api/v1/evidence/:id/download
func (h *Handler) Download(c *gin.Context) {
	ownerID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid evidence id")
		return
	}

	reader, record, err := h.service.Download(c.Request.Context(), id, ownerID)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to download evidence")
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.FileName))
	c.Header("Content-Type", record.MimeType)
	c.Header("Content-Length", fmt.Sprintf("%d", record.SizeBytes))

	if _, err := io.Copy(c.Writer, reader); err != nil {
		// Headers are already written; nothing left to do but log via gin
		_ = c.Error(err)
	}
}

// presignedURLTTL bounds how long a direct download link stays usable.
const presignedURLTTL = 15 * time.Minute

// PresignedDownload issues a time-limited direct download link
// GET /api/v1/evidence/:id/url
func (h *Handler) PresignedDownload(c *gin.Context) {
	ownerID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid evidence id")
		return
	}

	result, err := h.service.PresignedDownloadURL(c.Request.Context(), id, ownerID, presignedURLTTL)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to presign evidence download")
		return
	}

	common.SuccessResponse(c, result)
}

// ChainStats surfaces ledger aggregates
// GET /api/v1/chain/stats
func (h *Handler) ChainStats(c *gin.Context) {
	common.SuccessResponse(c, h.service.ChainStats())
}

// VerifyChain runs a full chain validation
// GET /api/v1/chain/verify
func (h *Handler) VerifyChain(c *gin.Context) {
	valid := h.service.VerifyChain()
	status := "valid"
	if !valid {
		status = "compromised"
	}
	common.SuccessResponse(c, gin.H{"chain_valid": valid, "status": status})
}

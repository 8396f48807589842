package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/claimflow/backend/internal/models"
	"github.com/claimflow/backend/internal/repository"
	"github.com/claimflow/backend/internal/s3io"
	"github.com/claimflow/backend/internal/service"
	"github.com/claimflow/backend/internal/store"
)

type Handler struct {
	Appeals     *service.AppealService
	Store       *store.Store
	Documents   *s3io.Documents
	Validator   *validator.Validate
	Logger      zerolog.Logger
	Concurrency int
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Storage unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Dashboard counts
// @Tags dashboard
// @Produce json
// @Success 200 {object} service.Dashboard
// @Router /api/dashboard [get]
func (h *Handler) Dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.Appeals.Dashboard(c.Request.Context()))
}

// @Summary List rejected claims
// @Tags claims
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/claims [get]
func (h *Handler) ClaimsList(c *gin.Context) {
	items := h.Appeals.Repo.ListClaims(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary Claim details
// @Tags claims
// @Produce json
// @Param id path string true "Claim ID"
// @Success 200 {object} models.Claim
// @Failure 404 {object} map[string]any
// @Router /api/claims/{id} [get]
func (h *Handler) ClaimDetails(c *gin.Context) {
	claim, err := h.Appeals.GetClaim(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

// @Summary List appeals
// @Tags appeals
// @Produce json
// @Param view query string false "all, in-progress or decided"
// @Success 200 {object} map[string]any
// @Router /api/appeals [get]
func (h *Handler) AppealsList(c *gin.Context) {
	ctx := c.Request.Context()
	view := strings.ToLower(strings.TrimSpace(c.DefaultQuery("view", "all")))

	var items []models.Appeal
	switch view {
	case "all":
		items = h.Appeals.ListAppeals(ctx)
	case "in-progress":
		items = h.Appeals.InProgress(ctx)
	case "decided":
		items = h.Appeals.Decided(ctx)
	default:
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "view must be all, in-progress or decided", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "view": view})
}

// @Summary Appeal review
// @Description Appeal with its claim, lifecycle state and allowed actions
// @Tags appeals
// @Produce json
// @Param id path string true "Appeal ID"
// @Success 200 {object} service.Review
// @Failure 404 {object} map[string]any
// @Router /api/appeals/{id} [get]
func (h *Handler) AppealDetails(c *gin.Context) {
	review, err := h.Appeals.Review(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

type DocumentInput struct {
	Name string `json:"name" validate:"required,max=255"`
	Key  string `json:"key" validate:"omitempty,max=1024"`
}

type SubmitAppealRequest struct {
	ClaimID             string          `json:"claimId" validate:"required"`
	AppealReason        string          `json:"appealReason" validate:"required,min=10,max=2000"`
	SupportingDocuments []DocumentInput `json:"supportingDocuments" validate:"max=5,dive"`
}

// @Summary Submit an appeal
// @Tags appeals
// @Accept json
// @Produce json
// @Param body body SubmitAppealRequest true "Appeal"
// @Success 201 {object} models.Appeal
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/appeals [post]
func (h *Handler) SubmitAppeal(c *gin.Context) {
	var req SubmitAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	req.ClaimID = strings.TrimSpace(req.ClaimID)
	req.AppealReason = strings.TrimSpace(req.AppealReason)
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	docs := make([]models.Document, 0, len(req.SupportingDocuments))
	for _, d := range req.SupportingDocuments {
		docs = append(docs, models.Document{Name: strings.TrimSpace(d.Name), Key: d.Key})
	}
	appeal, err := h.Appeals.Submit(c.Request.Context(), service.SubmitInput{
		ClaimID:      req.ClaimID,
		AppealReason: req.AppealReason,
		Documents:    docs,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appeal)
}

// @Summary Run automated validation
// @Tags appeals
// @Produce json
// @Param id path string true "Appeal ID"
// @Success 200 {object} models.Appeal
// @Failure 409 {object} map[string]any
// @Router /api/appeals/{id}/validate [post]
func (h *Handler) ValidateAppeal(c *gin.Context) {
	appeal, err := h.Appeals.Advance(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, appeal)
}

type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=Approved Rejected 'Info Requested'"`
	Comments string `json:"comments" validate:"max=2000"`
}

// @Summary Record an agent decision
// @Tags appeals
// @Accept json
// @Produce json
// @Param id path string true "Appeal ID"
// @Param body body DecisionRequest true "Decision"
// @Success 200 {object} models.Appeal
// @Failure 400 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/appeals/{id}/decision [post]
func (h *Handler) DecideAppeal(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	appeal, err := h.Appeals.Decide(c.Request.Context(), c.Param("id"), models.AppealStatus(req.Decision), req.Comments)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, appeal)
}

type ConfirmRequest struct {
	Comments string `json:"comments" validate:"max=2000"`
}

// @Summary Confirm an automated outcome
// @Tags appeals
// @Accept json
// @Produce json
// @Param id path string true "Appeal ID"
// @Param body body ConfirmRequest false "Optional comments"
// @Success 200 {object} models.Appeal
// @Failure 409 {object} map[string]any
// @Router /api/appeals/{id}/confirm [post]
func (h *Handler) ConfirmAppeal(c *gin.Context) {
	var req ConfirmRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
			return
		}
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	appeal, err := h.Appeals.Confirm(c.Request.Context(), c.Param("id"), req.Comments)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, appeal)
}

// @Summary Validate every pending appeal
// @Tags process
// @Produce json
// @Success 200 {object} service.RunSummary
// @Router /api/process [post]
func (h *Handler) Process(c *gin.Context) {
	summary, err := h.Appeals.ProcessPending(c.Request.Context(), h.Concurrency)
	if err != nil {
		h.Logger.Error().Err(err).Msg("processing failed")
		writeError(c, http.StatusInternalServerError, "PROCESSING_ERROR", "Processing failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Reset storage to sample data
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/admin/reset [post]
func (h *Handler) Reset(c *gin.Context) {
	h.Appeals.Repo.Reset(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type PresignRequest struct {
	ClaimID  string `json:"claimId" validate:"required"`
	Filename string `json:"filename" validate:"required,max=255"`
}

// @Summary Presign a supporting document upload
// @Tags documents
// @Accept json
// @Produce json
// @Param body body PresignRequest true "Document"
// @Success 200 {object} s3io.Upload
// @Failure 400 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /api/documents/presign [post]
func (h *Handler) PresignDocument(c *gin.Context) {
	var req PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	ctx := c.Request.Context()
	if _, err := h.Appeals.GetClaim(ctx, req.ClaimID); err != nil {
		h.writeServiceError(c, err)
		return
	}

	upload, err := h.Documents.PresignDocument(ctx, req.ClaimID, req.Filename)
	switch {
	case errors.Is(err, s3io.ErrNotConfigured):
		writeError(c, http.StatusServiceUnavailable, "UPLOADS_DISABLED", "Document uploads are not configured", nil)
	case errors.Is(err, s3io.ErrFilename), errors.Is(err, s3io.ErrContentType):
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unsupported document", err.Error())
	case err != nil:
		h.Logger.Error().Err(err).Str("claim_id", req.ClaimID).Msg("presign failed")
		writeError(c, http.StatusInternalServerError, "PRESIGN_ERROR", "Failed to presign upload", err.Error())
	default:
		c.JSON(http.StatusOK, upload)
	}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAppealNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Appeal not found", err.Error())
	case errors.Is(err, service.ErrClaimNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Claim not found", err.Error())
	case errors.Is(err, repository.ErrAppealExists):
		writeError(c, http.StatusConflict, "ALREADY_EXISTS", "Appeal already exists", err.Error())
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrInconsistentState):
		writeError(c, http.StatusConflict, "INVALID_STATE", "Appeal cannot move to that state", err.Error())
	case errors.Is(err, repository.ErrStorageUnavailable):
		writeError(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage is unavailable, nothing was changed", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(c, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out", err.Error())
	default:
		h.Logger.Error().Err(err).Msg("request failed")
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error", err.Error())
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

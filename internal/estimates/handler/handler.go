// Package handler exposes the estimates module over HTTP.
package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"printcalc_backend/internal/estimates/service"
	"printcalc_backend/internal/estimates/transport"
	"printcalc_backend/platform/httpkit"
	"printcalc_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgMissingTenant    = "missing or invalid X-Tenant-ID header"
	msgMissingModel     = "model file is required"
	msgInvalidJobID     = "invalid job ID"

	modelFormField  = "model"
	configFormField = "config"
)

// Handler handles HTTP requests for estimates.
type Handler struct {
	svc         *service.Service
	val         *validator.Validator
	maxModelLen int64
}

// New creates a new estimates handler. maxModelLen caps uploaded model
// size in bytes.
func New(svc *service.Service, val *validator.Validator, maxModelLen int64) *Handler {
	if maxModelLen <= 0 {
		maxModelLen = 100 << 20
	}
	return &Handler{svc: svc, val: val, maxModelLen: maxModelLen}
}

func (h *Handler) tenantID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetHeader("X-Tenant-ID"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgMissingTenant, nil)
		return uuid.Nil, false
	}
	return id, true
}

// parseForm extracts the model bytes and configuration from the
// multipart request.
func (h *Handler) parseForm(c *gin.Context) (string, []byte, transport.EstimateOptions, bool) {
	var opts transport.EstimateOptions

	file, header, err := c.Request.FormFile(modelFormField)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgMissingModel, nil)
		return "", nil, opts, false
	}
	defer file.Close()

	if header.Size > h.maxModelLen {
		httpkit.Error(c, http.StatusRequestEntityTooLarge, "model file too large", nil)
		return "", nil, opts, false
	}

	model, err := io.ReadAll(io.LimitReader(file, h.maxModelLen+1))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "failed to read model file", nil)
		return "", nil, opts, false
	}
	if int64(len(model)) > h.maxModelLen {
		httpkit.Error(c, http.StatusRequestEntityTooLarge, "model file too large", nil)
		return "", nil, opts, false
	}

	configRaw := c.PostForm(configFormField)
	if configRaw == "" {
		httpkit.Error(c, http.StatusBadRequest, "config field is required", nil)
		return "", nil, opts, false
	}
	if err := json.Unmarshal([]byte(configRaw), &opts); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return "", nil, opts, false
	}
	if err := h.val.Struct(opts); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return "", nil, opts, false
	}

	return header.Filename, model, opts, true
}

// Create runs an estimate synchronously.
// POST /api/v1/estimates
func (h *Handler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	filename, model, opts, ok := h.parseForm(c)
	if !ok {
		return
	}

	result, err := h.svc.Estimate(c.Request.Context(), tenantID, filename, model, opts)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateJob stages the model and queues a background estimate.
// POST /api/v1/estimates/jobs
func (h *Handler) CreateJob(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	filename, model, opts, ok := h.parseForm(c)
	if !ok {
		return
	}

	result, err := h.svc.Enqueue(c.Request.Context(), tenantID, filename, model, opts)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, result)
}

// GetJob polls the state of a queued estimate.
// GET /api/v1/estimates/jobs/:id
func (h *Handler) GetJob(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return
	}

	result, err := h.svc.GetJob(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// List returns the tenant's estimate history.
// GET /api/v1/estimates
func (h *Handler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	result, err := h.svc.List(c.Request.Context(), tenantID, limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

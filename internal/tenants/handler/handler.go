// Package handler exposes the tenants module over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"printcalc_backend/internal/tenants/service"
	"printcalc_backend/internal/tenants/transport"
	"printcalc_backend/platform/httpkit"
	"printcalc_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidTenantID  = "invalid tenant ID"
)

// Handler handles HTTP requests for tenant configuration.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new tenants handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) tenantID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidTenantID, nil)
		return uuid.Nil, false
	}
	return id, true
}

// Create provisions a tenant.
// POST /api/v1/tenants
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.CreateTenant(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// List lists all tenants.
// GET /api/v1/tenants
func (h *Handler) List(c *gin.Context) {
	result, err := h.svc.ListTenants(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get retrieves one tenant.
// GET /api/v1/tenants/:tenantId
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetTenant(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetPricing retrieves the pricing configuration.
// GET /api/v1/tenants/:tenantId/pricing
func (h *Handler) GetPricing(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetPricing(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PutPricing replaces the pricing configuration.
// PUT /api/v1/tenants/:tenantId/pricing
func (h *Handler) PutPricing(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req transport.PricingConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.PutPricing(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListFees lists the configured fees.
// GET /api/v1/tenants/:tenantId/fees
func (h *Handler) ListFees(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.ListFees(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PutFees replaces the fee list.
// PUT /api/v1/tenants/:tenantId/fees
func (h *Handler) PutFees(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req transport.PutFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.PutFees(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListPostProcessing lists the finishing options.
// GET /api/v1/tenants/:tenantId/post-processing
func (h *Handler) ListPostProcessing(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.ListPostProcessing(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PutPostProcessing replaces the finishing option list.
// PUT /api/v1/tenants/:tenantId/post-processing
func (h *Handler) PutPostProcessing(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req transport.PutPostProcessingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.PutPostProcessing(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetPrintParameters retrieves the print parameter settings.
// GET /api/v1/tenants/:tenantId/print-parameters
func (h *Handler) GetPrintParameters(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetPrintParameters(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PutPrintParameters replaces the print parameter settings.
// PUT /api/v1/tenants/:tenantId/print-parameters
func (h *Handler) PutPrintParameters(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req transport.PrintParametersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.PutPrintParameters(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetPresets retrieves the quality presets.
// GET /api/v1/tenants/:tenantId/presets
func (h *Handler) GetPresets(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetPresets(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PutPresets replaces the quality presets.
// PUT /api/v1/tenants/:tenantId/presets
func (h *Handler) PutPresets(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req transport.PutPresetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.PutPresets(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetBranding retrieves the branding with defaults applied.
// GET /api/v1/tenants/:tenantId/branding
func (h *Handler) GetBranding(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.GetBranding(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PutBranding replaces the branding.
// PUT /api/v1/tenants/:tenantId/branding
func (h *Handler) PutBranding(c *gin.Context) {
	id, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req transport.BrandingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.PutBranding(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

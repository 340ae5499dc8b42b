// Package tenants provides the tenant configuration bounded context.
package tenants

import (
	apphttp "printcalc_backend/internal/http"
	"printcalc_backend/internal/tenants/handler"
	"printcalc_backend/internal/tenants/repository"
	"printcalc_backend/internal/tenants/service"
	"printcalc_backend/platform/events"
	"printcalc_backend/platform/logger"
	"printcalc_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the tenants bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the tenants module.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "tenants"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts tenant routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/tenants", m.handler.Create)
	ctx.V1.GET("/tenants", m.handler.List)

	tenant := ctx.V1.Group("/tenants/:tenantId")
	tenant.GET("", m.handler.Get)
	tenant.GET("/pricing", m.handler.GetPricing)
	tenant.PUT("/pricing", m.handler.PutPricing)
	tenant.GET("/fees", m.handler.ListFees)
	tenant.PUT("/fees", m.handler.PutFees)
	tenant.GET("/post-processing", m.handler.ListPostProcessing)
	tenant.PUT("/post-processing", m.handler.PutPostProcessing)
	tenant.GET("/print-parameters", m.handler.GetPrintParameters)
	tenant.PUT("/print-parameters", m.handler.PutPrintParameters)
	tenant.GET("/presets", m.handler.GetPresets)
	tenant.PUT("/presets", m.handler.PutPresets)
	tenant.GET("/branding", m.handler.GetBranding)
	tenant.PUT("/branding", m.handler.PutBranding)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)

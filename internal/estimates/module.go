// Package estimates provides the estimate bounded context: the HTTP
// surface over the slicing and pricing pipeline.
package estimates

import (
	"printcalc_backend/internal/estimates/handler"
	"printcalc_backend/internal/estimates/repository"
	"printcalc_backend/internal/estimates/service"
	apphttp "printcalc_backend/internal/http"
	"printcalc_backend/internal/storage"
	"printcalc_backend/platform/events"
	"printcalc_backend/platform/logger"
	"printcalc_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the estimates bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the estimates module. queue may be
// nil when Redis is not configured.
func NewModule(pool *pgxpool.Pool, slicer service.Slicer, tenants service.ConfigSource,
	store storage.ObjectStore, queue service.Enqueuer, bus events.Bus,
	val *validator.Validator, log *logger.Logger) *Module {

	repo := repository.New(pool)
	svc := service.New(repo, slicer, tenants, store, queue, bus, log)

	var maxModelLen int64
	if store != nil {
		maxModelLen = store.MaxFileSize()
	}
	h := handler.New(svc, val, maxModelLen)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "estimates"
}

// Service returns the service layer for external use (the worker).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts estimate routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/estimates", m.handler.Create)
	ctx.V1.GET("/estimates", m.handler.List)
	ctx.V1.POST("/estimates/jobs", m.handler.CreateJob)
	ctx.V1.GET("/estimates/jobs/:id", m.handler.GetJob)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)

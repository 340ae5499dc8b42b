package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apphttp "printcalc_backend/internal/http"
	"printcalc_backend/platform/logger"
)

type testHTTPConfig struct {
	origins []string
}

func (c testHTTPConfig) GetHTTPAddr() string      { return ":0" }
func (c testHTTPConfig) GetCORSAllowAll() bool    { return false }
func (c testHTTPConfig) GetCORSOrigins() []string { return c.origins }
func (c testHTTPConfig) GetCORSAllowCreds() bool  { return false }

type okHealth struct{}

func (okHealth) Ping(context.Context) error { return nil }

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config: testHTTPConfig{origins: []string{"https://storefront.example"}},
		Logger: logger.New("test"),
		Health: okHealth{},
	})
}

func TestPreflightAllowsTenantHeader(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/estimates", nil)
	req.Header.Set("Origin", "https://storefront.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-Tenant-ID, Content-Type")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	allowed := rec.Header().Get("Access-Control-Allow-Headers")
	if !strings.Contains(strings.ToLower(allowed), "x-tenant-id") {
		t.Fatalf("Access-Control-Allow-Headers = %q, must include X-Tenant-ID", allowed)
	}
}

func TestHealthEndpoint(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
}

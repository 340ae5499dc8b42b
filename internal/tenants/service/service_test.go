package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	domainevents "printcalc_backend/internal/events"
	"printcalc_backend/internal/tenants/repository"
	"printcalc_backend/internal/tenants/transport"
	"printcalc_backend/platform/apperr"
	"printcalc_backend/platform/events"
	"printcalc_backend/platform/logger"
)

// fakeRepo implements only the methods the test under exercise calls;
// everything else panics through the embedded nil interface.
type fakeRepo struct {
	repository.Repository

	tenant         repository.Tenant
	tenantErr      error
	pricing        repository.PricingConfig
	pricingErr     error
	fees           []repository.Fee
	postProcessing []repository.PostProcessingOption
	branding       repository.Branding
	brandingErr    error
	created        *repository.CreateTenantParams
}

func (f *fakeRepo) CreateTenant(_ context.Context, params repository.CreateTenantParams) (repository.Tenant, error) {
	f.created = &params
	return repository.Tenant{ID: uuid.New(), Slug: params.Slug, Name: params.Name}, nil
}

func (f *fakeRepo) GetTenantByID(context.Context, uuid.UUID) (repository.Tenant, error) {
	return f.tenant, f.tenantErr
}

func (f *fakeRepo) GetPricing(context.Context, uuid.UUID) (repository.PricingConfig, error) {
	return f.pricing, f.pricingErr
}

func (f *fakeRepo) ListFees(context.Context, uuid.UUID) ([]repository.Fee, error) {
	return f.fees, nil
}

func (f *fakeRepo) ListPostProcessing(context.Context, uuid.UUID) ([]repository.PostProcessingOption, error) {
	return f.postProcessing, nil
}

func (f *fakeRepo) GetBranding(context.Context, uuid.UUID) (repository.Branding, error) {
	return f.branding, f.brandingErr
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu        sync.Mutex
	events    []events.Event
	syncSends int
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	b.syncSends++
	b.mu.Unlock()
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newTestService(repo *fakeRepo) (*Service, *recordingBus) {
	bus := &recordingBus{}
	return New(repo, bus, logger.New("test")), bus
}

func TestCreateTenantPublishesEvent(t *testing.T) {
	repo := &fakeRepo{}
	svc, bus := newTestService(repo)

	resp, err := svc.CreateTenant(context.Background(), transport.CreateTenantRequest{Slug: "acme", Name: "Acme Prints"})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	if resp.Slug != "acme" {
		t.Fatalf("slug = %q, want acme", resp.Slug)
	}
	if repo.created == nil || repo.created.Name != "Acme Prints" {
		t.Fatalf("repository not called with request params: %+v", repo.created)
	}

	if len(bus.events) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.events))
	}
	created, ok := bus.events[0].(domainevents.TenantCreated)
	if !ok {
		t.Fatalf("event type = %T, want TenantCreated", bus.events[0])
	}
	if created.Slug != "acme" {
		t.Fatalf("event slug = %q, want acme", created.Slug)
	}
	if bus.syncSends != 1 {
		t.Fatalf("provisioning event must be delivered synchronously, sync sends = %d", bus.syncSends)
	}
}

func TestSnapshotKeepsOnlyEnabledOptions(t *testing.T) {
	repo := &fakeRepo{
		pricing: repository.PricingConfig{
			MaterialPricePerGram: map[string]float64{"pla": 0.5},
			TimeRatePerHour:      150,
		},
		fees: []repository.Fee{
			{Name: "Setup", CalculationType: "fixed", Amount: 10, ApplicationType: "once_per_order", Enabled: true},
			{Name: "Old", CalculationType: "fixed", Amount: 99, ApplicationType: "once_per_order", Enabled: false},
		},
		postProcessing: []repository.PostProcessingOption{
			{ID: uuid.New(), Name: "Sanding", Price: 5, Enabled: true},
			{ID: uuid.New(), Name: "Painting", Price: 25, Enabled: false},
		},
	}
	svc, _ := newTestService(repo)

	snap, err := svc.Snapshot(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if snap.Config.TimeRatePerHour != 150 {
		t.Fatalf("time rate = %v, want 150", snap.Config.TimeRatePerHour)
	}
	// Disabled fees stay in the snapshot; the calculator skips them, and
	// the breakdown should reflect configuration as stored.
	if len(snap.Fees) != 2 {
		t.Fatalf("fees = %d, want 2", len(snap.Fees))
	}
	if len(snap.PostProcessing) != 1 {
		t.Fatalf("post-processing options = %d, want 1", len(snap.PostProcessing))
	}
	if snap.PostProcessing[0].Name != "Sanding" {
		t.Fatalf("kept option = %q, want Sanding", snap.PostProcessing[0].Name)
	}
}

func TestSnapshotMissingPricingIsNotFound(t *testing.T) {
	repo := &fakeRepo{pricingErr: apperr.NotFound("pricing configuration not found")}
	svc, _ := newTestService(repo)

	_, err := svc.Snapshot(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestBrandingDefaultsToTenantName(t *testing.T) {
	repo := &fakeRepo{
		tenant:      repository.Tenant{ID: uuid.New(), Name: "Acme Prints"},
		brandingErr: apperr.NotFound("branding not found"),
	}
	svc, _ := newTestService(repo)

	b, err := svc.GetBranding(context.Background(), repo.tenant.ID)
	if err != nil {
		t.Fatalf("GetBranding: %v", err)
	}
	if b.CompanyName != "Acme Prints" {
		t.Fatalf("company name = %q, want tenant name", b.CompanyName)
	}
	if b.PrimaryColor != defaultPrimaryColor || b.AccentColor != defaultAccentColor {
		t.Fatalf("colors = %q/%q, want defaults", b.PrimaryColor, b.AccentColor)
	}
}

func TestBrandingFallbackNameWhenTenantUnnamed(t *testing.T) {
	repo := &fakeRepo{
		tenant:      repository.Tenant{ID: uuid.New()},
		brandingErr: apperr.NotFound("branding not found"),
	}
	svc, _ := newTestService(repo)

	b, err := svc.GetBranding(context.Background(), repo.tenant.ID)
	if err != nil {
		t.Fatalf("GetBranding: %v", err)
	}
	if b.CompanyName != defaultCompanyName {
		t.Fatalf("company name = %q, want %q", b.CompanyName, defaultCompanyName)
	}
}

func TestBrandingReturnsStoredValues(t *testing.T) {
	repo := &fakeRepo{
		tenant: repository.Tenant{ID: uuid.New(), Name: "Acme Prints"},
		branding: repository.Branding{
			CompanyName:  "Custom Name",
			LogoURL:      "https://cdn.example/logo.png",
			PrimaryColor: "#112233",
			AccentColor:  "#445566",
		},
	}
	svc, _ := newTestService(repo)

	b, err := svc.GetBranding(context.Background(), repo.tenant.ID)
	if err != nil {
		t.Fatalf("GetBranding: %v", err)
	}
	if b.CompanyName != "Custom Name" || b.PrimaryColor != "#112233" {
		t.Fatalf("branding = %+v, want stored values", b)
	}
}

func TestGetBrandingUnknownTenant(t *testing.T) {
	repo := &fakeRepo{tenantErr: apperr.NotFound("tenant not found")}
	svc, _ := newTestService(repo)

	_, err := svc.GetBranding(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not-found", err)
	}
}

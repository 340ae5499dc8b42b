package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"printcalc_backend/internal/estimates/repository"
	"printcalc_backend/internal/pricing"
	"printcalc_backend/internal/slicing"
	"printcalc_backend/internal/storage"
)

func TestSelectOptionsFiltersByID(t *testing.T) {
	available := []pricing.PostProcessingOption{
		{ID: "a", Name: "Sanding", Price: 5},
		{ID: "b", Name: "Painting", Price: 25},
		{ID: "c", Name: "Vapor smoothing", Price: 15},
	}

	selected := selectOptions(available, []string{"c", "a"})
	if len(selected) != 2 {
		t.Fatalf("selected %d options, want 2", len(selected))
	}
	// Order follows the configured list, not the request.
	if selected[0].ID != "a" || selected[1].ID != "c" {
		t.Fatalf("selected = %v, want [a c]", selected)
	}
}

func TestSelectOptionsEmptyRequest(t *testing.T) {
	available := []pricing.PostProcessingOption{{ID: "a", Name: "Sanding", Price: 5}}
	if got := selectOptions(available, nil); got != nil {
		t.Fatalf("selectOptions(nil ids) = %v, want nil", got)
	}
}

func TestSelectOptionsUnknownIDsIgnored(t *testing.T) {
	available := []pricing.PostProcessingOption{{ID: "a", Name: "Sanding", Price: 5}}
	if got := selectOptions(available, []string{"nope"}); len(got) != 0 {
		t.Fatalf("selectOptions(unknown id) = %v, want empty", got)
	}
}

func TestRetryableKind(t *testing.T) {
	cases := []struct {
		kind string
		want bool
	}{
		{slicing.FailureStaging.String(), true},
		{slicing.FailureEngine.String(), true},
		{slicing.FailureTimeout.String(), true},
		{slicing.FailureExtraction.String(), true},
		{slicing.FailureInvalidRequest.String(), false},
		{slicing.FailureConfiguration.String(), false},
		{"", false},
	}
	for _, tc := range cases {
		if got := retryableKind(tc.kind); got != tc.want {
			t.Errorf("retryableKind(%q) = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestJobResponseForFailedRun(t *testing.T) {
	svc := &Service{}
	row := repository.Estimate{
		ID:             uuid.New(),
		Status:         repository.StatusFailed,
		FailureKind:    slicing.FailureTimeout.String(),
		FailureMessage: "engine step timed out",
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	resp, err := svc.toJobResponse(context.Background(), row)
	if err != nil {
		t.Fatalf("toJobResponse: %v", err)
	}
	if resp.Status != repository.StatusFailed {
		t.Fatalf("status = %q", resp.Status)
	}
	if resp.Error != "engine step timed out" {
		t.Fatalf("error = %q", resp.Error)
	}
	if !resp.Retryable {
		t.Fatal("timeout failures should be marked retryable")
	}
	if resp.Result != nil {
		t.Fatal("failed job must not carry a result")
	}
}

func TestJobResponseForQueuedRun(t *testing.T) {
	svc := &Service{}
	row := repository.Estimate{
		ID:        uuid.New(),
		Status:    repository.StatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	resp, err := svc.toJobResponse(context.Background(), row)
	if err != nil {
		t.Fatalf("toJobResponse: %v", err)
	}
	if resp.Result != nil || resp.Error != "" {
		t.Fatalf("queued job carries result or error: %+v", resp)
	}
}

func TestJobResponseForCompletedRun(t *testing.T) {
	priced := pricing.Result{Total: 42.5}
	pricingJSON, err := json.Marshal(priced)
	if err != nil {
		t.Fatalf("marshal pricing: %v", err)
	}

	svc := &Service{}
	row := repository.Estimate{
		ID:            uuid.New(),
		Status:        repository.StatusCompleted,
		Backend:       "kiri_cli",
		Estimated:     false,
		TimeSeconds:   5025,
		MaterialGrams: 3.72,
		LayerCount:    180,
		PricingJSON:   pricingJSON,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	resp, err := svc.toJobResponse(context.Background(), row)
	if err != nil {
		t.Fatalf("toJobResponse: %v", err)
	}
	if resp.Result == nil {
		t.Fatal("completed job must carry a result")
	}
	if !resp.Result.Success || !resp.Result.Measured {
		t.Fatalf("result flags = %+v", resp.Result)
	}
	if resp.Result.Stats.TimeSeconds != 5025 || resp.Result.Stats.Layers != 180 {
		t.Fatalf("stats = %+v", resp.Result.Stats)
	}
	if resp.Result.Pricing.Total != 42.5 {
		t.Fatalf("pricing total = %v, want 42.5", resp.Result.Pricing.Total)
	}
	if resp.Result.DisplayTotal != 43 {
		t.Fatalf("display total = %d, want 43", resp.Result.DisplayTotal)
	}
}

// fakeStore serves presigned URLs; everything else panics through the
// embedded nil interface.
type fakeStore struct {
	storage.ObjectStore
}

func (fakeStore) ModelDownloadURL(_ context.Context, fileKey string) (*storage.PresignedURL, error) {
	return &storage.PresignedURL{URL: "https://store.example/" + fileKey, FileKey: fileKey}, nil
}

func TestJobResponseModelURLOnlyWhileStaged(t *testing.T) {
	svc := &Service{store: fakeStore{}}

	queued := repository.Estimate{
		ID:        uuid.New(),
		Status:    repository.StatusQueued,
		ModelKey:  "tenant/part_abc.stl",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	resp, err := svc.toJobResponse(context.Background(), queued)
	if err != nil {
		t.Fatalf("toJobResponse: %v", err)
	}
	if resp.ModelURL != "https://store.example/tenant/part_abc.stl" {
		t.Fatalf("model url = %q", resp.ModelURL)
	}

	// After completion the staged model is deleted; no dead link.
	completed := queued
	completed.Status = repository.StatusCompleted
	resp, err = svc.toJobResponse(context.Background(), completed)
	if err != nil {
		t.Fatalf("toJobResponse: %v", err)
	}
	if resp.ModelURL != "" {
		t.Fatalf("completed job must not carry a model url, got %q", resp.ModelURL)
	}
}

func TestEstimateResponseMarksHeuristicAsEstimated(t *testing.T) {
	svc := &Service{}
	row := repository.Estimate{
		ID:        uuid.New(),
		Status:    repository.StatusCompleted,
		Backend:   "heuristic",
		Estimated: true,
	}

	resp, err := svc.toEstimateResponse(context.Background(), row)
	if err != nil {
		t.Fatalf("toEstimateResponse: %v", err)
	}
	if resp.Measured {
		t.Fatal("heuristic results must not be reported as measured")
	}
}

func TestEstimateResponseRejectsCorruptPricing(t *testing.T) {
	svc := &Service{}
	row := repository.Estimate{
		ID:          uuid.New(),
		Status:      repository.StatusCompleted,
		PricingJSON: []byte("{not json"),
	}

	if _, err := svc.toEstimateResponse(context.Background(), row); err == nil {
		t.Fatal("expected error for corrupt pricing payload")
	}
}

package slicing

import (
	"context"
	"errors"
	"testing"

	"printcalc_backend/platform/logger"
)

// stubAdapter is a scriptable backend for fallback-chain tests.
type stubAdapter struct {
	kind     BackendKind
	stageErr error
	runErr   error
	output   RawOutput

	staged    bool
	tornDown  bool
	runCalled bool
}

func (s *stubAdapter) Kind() BackendKind { return s.kind }

func (s *stubAdapter) Stage(ctx context.Context, req SliceRequest) (*StagedModel, error) {
	if s.stageErr != nil {
		return nil, s.stageErr
	}
	s.staged = true
	return &StagedModel{}, nil
}

func (s *stubAdapter) Run(ctx context.Context, staged *StagedModel, params EngineParameters) (RawOutput, error) {
	s.runCalled = true
	if s.runErr != nil {
		return RawOutput{}, s.runErr
	}
	return s.output, nil
}

func (s *stubAdapter) Teardown(staged *StagedModel) { s.tornDown = true }

func goodOutput() RawOutput {
	gcode := ";LAYER:0\n; filament used [g] = 5.00\n; estimated printing time = 0h 30m 0s\n"
	return RawOutput{GCode: []byte(gcode)}
}

func validStubRequest() SliceRequest {
	return SliceRequest{
		Model:    []byte("solid cube"),
		Filename: "cube.stl",
		Quality:  QualityStandard,
		Material: MaterialPLA,
		Quantity: 1,
	}
}

func TestOrchestrator_FirstBackendSucceeds(t *testing.T) {
	primary := &stubAdapter{kind: BackendPrusaCLI, output: goodOutput()}
	secondary := &stubAdapter{kind: BackendKiriCLI}
	orch := NewOrchestrator(logger.New("test"), primary, secondary)

	result, err := orch.Slice(context.Background(), validStubRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Backend != BackendPrusaCLI {
		t.Fatalf("expected prusa_cli backend, got %v", result.Backend)
	}
	if result.Stats.MaterialGrams != 5 || result.Stats.TimeSeconds != 1800 {
		t.Fatalf("unexpected stats: %+v", result.Stats)
	}
	if result.Estimated {
		t.Fatal("measured stats must not be flagged estimated")
	}
	if secondary.runCalled {
		t.Fatal("fallback backend must not run when primary succeeds")
	}
	if !primary.tornDown {
		t.Fatal("teardown must run after success")
	}
}

func TestOrchestrator_FallsBackOnEngineFailure(t *testing.T) {
	primary := &stubAdapter{kind: BackendPrusaCLI, runErr: engineFailure(BackendPrusaCLI, "run", "exit 1", nil)}
	secondary := &stubAdapter{kind: BackendKiriCLI, output: goodOutput()}
	orch := NewOrchestrator(logger.New("test"), primary, secondary)

	result, err := orch.Slice(context.Background(), validStubRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Backend != BackendKiriCLI {
		t.Fatalf("expected fallback to kiri_cli, got %v", result.Backend)
	}
	if !primary.tornDown {
		t.Fatal("failed backend must still be torn down")
	}
}

func TestOrchestrator_InvalidRequestStopsFallback(t *testing.T) {
	primary := &stubAdapter{kind: BackendPrusaCLI, stageErr: invalidRequest("model too large")}
	secondary := &stubAdapter{kind: BackendKiriCLI, output: goodOutput()}
	orch := NewOrchestrator(logger.New("test"), primary, secondary)

	_, err := orch.Slice(context.Background(), validStubRequest())
	if FailureKindOf(err) != FailureInvalidRequest {
		t.Fatalf("expected invalid request failure, got %v", err)
	}
	if secondary.staged || secondary.runCalled {
		t.Fatal("invalid request must not fall through to another backend")
	}
}

func TestOrchestrator_ReturnsLastErrorWhenAllFail(t *testing.T) {
	first := &stubAdapter{kind: BackendPrusaCLI, runErr: engineFailure(BackendPrusaCLI, "run", "exit 1", nil)}
	second := &stubAdapter{kind: BackendKiriCLI, runErr: timeoutFailure(BackendKiriCLI, "run", "killed after 5m")}
	orch := NewOrchestrator(logger.New("test"), first, second)

	_, err := orch.Slice(context.Background(), validStubRequest())
	if err == nil {
		t.Fatal("expected error when every backend fails")
	}
	if FailureKindOf(err) != FailureTimeout {
		t.Fatalf("expected the last backend's error, got %v", err)
	}
	var se *SliceError
	if !errors.As(err, &se) || se.Backend != BackendKiriCLI {
		t.Fatalf("expected error attributed to kiri_cli, got %v", err)
	}
}

func TestOrchestrator_ValidationRejects(t *testing.T) {
	adapter := &stubAdapter{kind: BackendPrusaCLI, output: goodOutput()}
	orch := NewOrchestrator(logger.New("test"), adapter)

	cases := []struct {
		name string
		req  SliceRequest
	}{
		{"empty model", SliceRequest{Filename: "a.stl", Quantity: 1}},
		{"bad extension", SliceRequest{Model: []byte("x"), Filename: "a.step", Quantity: 1}},
		{"infill over 100", SliceRequest{Model: []byte("x"), Filename: "a.stl", InfillPercent: 140, Quantity: 1}},
		{"zero quantity", SliceRequest{Model: []byte("x"), Filename: "a.stl", Quantity: 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := orch.Slice(context.Background(), tc.req)
			if FailureKindOf(err) != FailureInvalidRequest {
				t.Fatalf("expected invalid request failure, got %v", err)
			}
			if adapter.staged {
				t.Fatal("no engine may be touched for an invalid request")
			}
		})
	}
}

func TestOrchestrator_ExtractionFailureFallsThrough(t *testing.T) {
	primary := &stubAdapter{kind: BackendPrusaCLI, output: RawOutput{GCode: []byte{}}}
	secondary := &stubAdapter{kind: BackendHeuristic, output: goodOutput()}
	orch := NewOrchestrator(logger.New("test"), primary, secondary)

	result, err := orch.Slice(context.Background(), validStubRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Backend != BackendHeuristic {
		t.Fatalf("expected heuristic fallback, got %v", result.Backend)
	}
	if !result.Estimated {
		t.Fatal("heuristic results must be flagged estimated")
	}
}

func TestOrchestrator_HeuristicEndToEnd(t *testing.T) {
	// 84-byte header plus 200 triangles of 50 bytes each.
	model := make([]byte, 84+200*50)
	req := SliceRequest{
		Model:         model,
		Filename:      "bracket.stl",
		Quality:       QualityStandard,
		Material:      MaterialPLA,
		InfillPercent: 20,
		Quantity:      1,
	}

	orch := NewOrchestrator(logger.New("test"), NewHeuristicAdapter(logger.New("test")))

	result, err := orch.Slice(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Backend != BackendHeuristic || !result.Estimated {
		t.Fatalf("expected estimated heuristic result, got %+v", result)
	}
	if result.Stats.MaterialGrams <= 0 || result.Stats.TimeSeconds <= 0 {
		t.Fatalf("expected positive stats, got %+v", result.Stats)
	}
}

func TestOrchestrator_NoBackendsConfigured(t *testing.T) {
	orch := NewOrchestrator(logger.New("test"))

	_, err := orch.Slice(context.Background(), validStubRequest())
	if FailureKindOf(err) != FailureEngine {
		t.Fatalf("expected engine failure, got %v", err)
	}
}

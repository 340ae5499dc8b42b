package slicing

import "context"

// StagedModel is a handle to a model staged into a backend's working area.
// Whatever Stage acquires, Teardown releases, on every exit path.
type StagedModel struct {
	// Dir is the per-invocation temp directory for CLI backends.
	Dir string
	// ModelPath is the staged model file for CLI backends.
	ModelPath string
	// OutputPath is where the CLI backend writes its G-code.
	OutputPath string
	// RemoteLoaded marks a model loaded into a remote engine instance.
	RemoteLoaded bool
	// ModelBytes is the staged model size, kept for backends that estimate
	// without reading the file back.
	ModelBytes int
}

// EngineAdapter drives one concrete slicing backend end-to-end.
//
// The contract is the same for all backends: Stage puts the model where the
// engine can see it, Run executes the slicing operation, and Teardown
// releases staged resources unconditionally. Run may be a blocking
// subprocess invocation or an asynchronous multi-step remote protocol; the
// caller only sees RawOutput or a classified *SliceError.
type EngineAdapter interface {
	Kind() BackendKind
	Stage(ctx context.Context, req SliceRequest) (*StagedModel, error)
	Run(ctx context.Context, staged *StagedModel, params EngineParameters) (RawOutput, error)
	Teardown(staged *StagedModel)
}

package slicing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"printcalc_backend/platform/logger"
)

// KiriCLIAdapter runs the kirimoto-slicer command line tool. Parameters are
// serialized as --flag=value arguments; the result is a G-code file read
// from the output path after the process exits. A non-zero exit or a
// missing output file is a hard failure with no retry.
type KiriCLIAdapter struct {
	slicerPath     string
	processTimeout time.Duration
	log            *logger.Logger
}

// NewKiriCLIAdapter creates the kirimoto-slicer backend.
func NewKiriCLIAdapter(slicerPath string, processTimeout time.Duration, log *logger.Logger) *KiriCLIAdapter {
	return &KiriCLIAdapter{
		slicerPath:     slicerPath,
		processTimeout: processTimeout,
		log:            log,
	}
}

func (a *KiriCLIAdapter) Kind() BackendKind { return BackendKiriCLI }

// Stage writes the model into a fresh per-invocation temp directory so
// concurrent slices never share file names.
func (a *KiriCLIAdapter) Stage(_ context.Context, req SliceRequest) (*StagedModel, error) {
	dir, err := os.MkdirTemp("", "kiri-")
	if err != nil {
		return nil, stagingFailure(BackendKiriCLI, "create temp dir", err)
	}

	modelPath := filepath.Join(dir, "model"+filepath.Ext(req.Filename))
	if err := os.WriteFile(modelPath, req.Model, 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, stagingFailure(BackendKiriCLI, "write model file", err)
	}

	return &StagedModel{
		Dir:        dir,
		ModelPath:  modelPath,
		OutputPath: filepath.Join(dir, "output.gcode"),
	}, nil
}

// Run invokes the slicer and reads the produced G-code.
func (a *KiriCLIAdapter) Run(ctx context.Context, staged *StagedModel, params EngineParameters) (RawOutput, error) {
	runCtx := ctx
	if a.processTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.processTimeout)
		defer cancel()
	}

	args := a.buildArgs(staged, params)
	cmd := exec.CommandContext(runCtx, a.slicerPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	a.log.SliceEvent(string(BackendKiriCLI), "run", "model", staged.ModelPath)

	if err := cmd.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return RawOutput{}, timeoutFailure(BackendKiriCLI, "run", "slicer process exceeded deadline")
		}
		return RawOutput{}, engineFailure(BackendKiriCLI, "run", "slicer process failed",
			fmt.Errorf("%w: %s", err, stderr.String()))
	}

	gcode, err := os.ReadFile(staged.OutputPath)
	if err != nil {
		return RawOutput{}, engineFailure(BackendKiriCLI, "run", "slicer produced no output file", err)
	}

	return RawOutput{GCode: gcode}, nil
}

// Teardown removes the invocation's temp directory. Safe on any exit path.
func (a *KiriCLIAdapter) Teardown(staged *StagedModel) {
	if staged == nil || staged.Dir == "" {
		return
	}
	if err := os.RemoveAll(staged.Dir); err != nil {
		a.log.Warn("kiri temp cleanup failed", "dir", staged.Dir, "error", err.Error())
	}
}

func (a *KiriCLIAdapter) buildArgs(staged *StagedModel, p EngineParameters) []string {
	feedrate := p.SpeedMmS
	if feedrate <= 0 {
		feedrate = 50
	}

	args := []string{
		"-o", staged.OutputPath,
		fmt.Sprintf("--sliceHeight=%g", p.LayerHeightMm),
		fmt.Sprintf("--sliceFillSparse=%g", float64(p.InfillPercent)/100),
		"--sliceFillType=gyroid",
		fmt.Sprintf("--sliceShells=%d", p.WallCount),
		"--sliceTopLayers=3",
		"--sliceBottomLayers=3",
		fmt.Sprintf("--sliceSupportEnable=%t", p.Supports),
		"--sliceSupportDensity=0.25",
		fmt.Sprintf("--outputTemp=%d", p.NozzleTempC),
		fmt.Sprintf("--outputBedTemp=%d", p.BedTempC),
		fmt.Sprintf("--outputFeedrate=%g", feedrate),
		fmt.Sprintf("--outputSeekrate=%g", feedrate*2),
		fmt.Sprintf("--extruders.0.extNozzle=%g", p.NozzleDiameterMm),
		fmt.Sprintf("--extruders.0.extFilament=%g", p.FilamentDiameterMm),
		"--bedWidth=256",
		"--bedDepth=256",
		"--maxHeight=256",
	}
	if p.Brim {
		args = append(args, "--firstLayerBrim=5")
	}
	if p.Raft {
		args = append(args, "--firstLayerRaft=true")
	}

	return append(args, staged.ModelPath)
}

// Compile-time check that KiriCLIAdapter implements EngineAdapter.
var _ EngineAdapter = (*KiriCLIAdapter)(nil)

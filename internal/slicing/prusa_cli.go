package slicing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"printcalc_backend/platform/logger"
)

const (
	// Brim and raft are boolean-gated fixed values, not pass-throughs.
	prusaBrimWidthMm = 5
	prusaRaftLayers  = 3
)

// PrusaCLIAdapter runs PrusaSlicer headless under a virtual display.
// Parameters are layered as -s key=value overrides on top of a base
// profile loaded with --load.
type PrusaCLIAdapter struct {
	command        []string
	profilePath    string
	processTimeout time.Duration
	log            *logger.Logger
}

// NewPrusaCLIAdapter creates the PrusaSlicer backend. The command is the
// full invocation prefix, e.g. "xvfb-run -a flatpak run com.prusa3d.PrusaSlicer".
func NewPrusaCLIAdapter(command, profilePath string, processTimeout time.Duration, log *logger.Logger) *PrusaCLIAdapter {
	return &PrusaCLIAdapter{
		command:        strings.Fields(command),
		profilePath:    profilePath,
		processTimeout: processTimeout,
		log:            log,
	}
}

func (a *PrusaCLIAdapter) Kind() BackendKind { return BackendPrusaCLI }

// Stage writes the model into a fresh per-invocation temp directory.
func (a *PrusaCLIAdapter) Stage(_ context.Context, req SliceRequest) (*StagedModel, error) {
	dir, err := os.MkdirTemp("", "prusa-")
	if err != nil {
		return nil, stagingFailure(BackendPrusaCLI, "create temp dir", err)
	}

	modelPath := filepath.Join(dir, "model"+filepath.Ext(req.Filename))
	if err := os.WriteFile(modelPath, req.Model, 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, stagingFailure(BackendPrusaCLI, "write model file", err)
	}

	return &StagedModel{
		Dir:        dir,
		ModelPath:  modelPath,
		OutputPath: filepath.Join(dir, "output.gcode"),
	}, nil
}

// Run invokes PrusaSlicer and reads the produced G-code. The process exit
// is the only synchronization point; there is no partial-result streaming.
func (a *PrusaCLIAdapter) Run(ctx context.Context, staged *StagedModel, params EngineParameters) (RawOutput, error) {
	if len(a.command) == 0 {
		return RawOutput{}, engineFailure(BackendPrusaCLI, "run", "slicer command not configured", nil)
	}

	runCtx := ctx
	if a.processTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.processTimeout)
		defer cancel()
	}

	args := append(append([]string{}, a.command[1:]...), a.buildArgs(staged, params)...)
	cmd := exec.CommandContext(runCtx, a.command[0], args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	a.log.SliceEvent(string(BackendPrusaCLI), "run", "model", staged.ModelPath)

	if err := cmd.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return RawOutput{}, timeoutFailure(BackendPrusaCLI, "run", "slicer process exceeded deadline")
		}
		return RawOutput{}, engineFailure(BackendPrusaCLI, "run", "slicer process failed",
			fmt.Errorf("%w: %s", err, stderr.String()))
	}

	gcode, err := os.ReadFile(staged.OutputPath)
	if err != nil {
		return RawOutput{}, engineFailure(BackendPrusaCLI, "run", "slicer produced no output file", err)
	}

	return RawOutput{GCode: gcode}, nil
}

// Teardown removes the invocation's temp directory. Safe on any exit path.
func (a *PrusaCLIAdapter) Teardown(staged *StagedModel) {
	if staged == nil || staged.Dir == "" {
		return
	}
	if err := os.RemoveAll(staged.Dir); err != nil {
		a.log.Warn("prusa temp cleanup failed", "dir", staged.Dir, "error", err.Error())
	}
}

func (a *PrusaCLIAdapter) buildArgs(staged *StagedModel, p EngineParameters) []string {
	args := []string{"--export-gcode"}
	if a.profilePath != "" {
		args = append(args, "--load", a.profilePath)
	}

	args = append(args,
		"-s", fmt.Sprintf("layer_height=%g", p.LayerHeightMm),
		"-s", fmt.Sprintf("fill_density=%d%%", p.InfillPercent),
		"-s", fmt.Sprintf("perimeters=%d", p.WallCount),
		"-s", fmt.Sprintf("nozzle_diameter=%g", p.NozzleDiameterMm),
		"-s", fmt.Sprintf("temperature=%d", p.NozzleTempC),
		"-s", fmt.Sprintf("bed_temperature=%d", p.BedTempC),
	)

	if p.Supports {
		args = append(args, "-s", "support_material=1")
	} else {
		args = append(args, "-s", "support_material=0")
	}

	// A single supplied speed also fixes travel speed at twice print speed.
	if p.SpeedMmS > 0 {
		args = append(args,
			"-s", fmt.Sprintf("speed_print=%g", p.SpeedMmS),
			"-s", fmt.Sprintf("speed_travel=%g", p.SpeedMmS*2),
		)
	}

	if p.Brim {
		args = append(args, "-s", fmt.Sprintf("brim_width=%d", prusaBrimWidthMm))
	}
	if p.Raft {
		args = append(args, "-s", fmt.Sprintf("raft_layers=%d", prusaRaftLayers))
	}

	return append(args, staged.ModelPath, "-o", staged.OutputPath)
}

// Compile-time check that PrusaCLIAdapter implements EngineAdapter.
var _ EngineAdapter = (*PrusaCLIAdapter)(nil)

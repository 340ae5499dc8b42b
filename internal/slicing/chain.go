package slicing

import (
	"context"

	"printcalc_backend/platform/config"
	"printcalc_backend/platform/logger"
)

// BuildChain constructs the adapter fallback chain from configuration.
// Backends whose prerequisites are not configured are skipped with a log
// line rather than failing startup. The returned cleanup closes the
// remote engine channel when one was dialed.
func BuildChain(ctx context.Context, cfg config.SlicerConfig, log *logger.Logger) ([]EngineAdapter, func()) {
	var (
		adapters []EngineAdapter
		cleanup  = func() {}
	)

	for _, name := range cfg.GetEngineFallbackOrder() {
		switch BackendKind(name) {
		case BackendKiriCLI:
			if cfg.GetKiriSlicerPath() == "" {
				log.Warn("kiri backend skipped, KIRI_SLICER_PATH not configured")
				continue
			}
			adapters = append(adapters, NewKiriCLIAdapter(cfg.GetKiriSlicerPath(), cfg.GetSliceProcessTimeout(), log))

		case BackendPrusaCLI:
			if cfg.GetPrusaSlicerCommand() == "" {
				log.Warn("prusa backend skipped, PRUSA_SLICER_CMD not configured")
				continue
			}
			adapters = append(adapters, NewPrusaCLIAdapter(
				cfg.GetPrusaSlicerCommand(), cfg.GetPrusaProfilePath(), cfg.GetSliceProcessTimeout(), log))

		case BackendRemote:
			if cfg.GetRemoteEngineURL() == "" {
				log.Warn("remote backend skipped, REMOTE_ENGINE_URL not configured")
				continue
			}
			engine, err := DialRemoteEngine(ctx, cfg.GetRemoteEngineURL(), cfg.GetSliceStepTimeout(), log)
			if err != nil {
				log.EngineError(string(BackendRemote), "dial", err)
				continue
			}
			adapters = append(adapters, NewRemoteEngineAdapter(engine, log))
			prev := cleanup
			cleanup = func() {
				prev()
				_ = engine.Close()
			}

		case BackendHeuristic:
			adapters = append(adapters, NewHeuristicAdapter(log))

		default:
			log.Warn("unknown slicing backend in fallback order", "backend", name)
		}
	}

	return adapters, cleanup
}

package app

import (
	"errors"

	"github.com/tabiguide-next/internal/config"
	"github.com/tabiguide-next/internal/logger"
	"github.com/tabiguide-next/internal/provider"
	"github.com/tabiguide-next/internal/router"
	"github.com/tabiguide-next/internal/worker"
)

// BuildRunner opens the ledger container and builds the services of mode.
// The runner owns the container and closes it after shutdown.
func BuildRunner(cfg *config.Config, mode Mode) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ModeAll
	}

	container, err := provider.NewContainer(cfg)
	if err != nil {
		return nil, err
	}

	var services []Service
	if mode.servesAPI() {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(listenAddr(cfg), engine))
	}
	if mode.runsWorker() {
		workerService, err := worker.NewService(cfg, worker.NewConsumer(container))
		switch {
		case err == nil:
			services = append(services, workerService)
		case errors.Is(err, worker.ErrWorkerDisabled) && mode == ModeAll:
			logger.Infow("app_worker_skipped", "reason", err.Error())
		default:
			_ = container.Close()
			return nil, err
		}
	}
	if len(services) == 0 {
		_ = container.Close()
		return nil, errors.New("no services initialized (check mode and config)")
	}

	runner := NewRunner(services...)
	runner.OnClose(container.Close)
	return runner, nil
}

// Run application entry
func Run(opts Options) error {
	if opts.Config == nil {
		return errors.New("config is nil")
	}
	mode, err := ParseMode(opts.Mode)
	if err != nil {
		return err
	}
	opts = normalizeOptions(opts)

	runner, err := BuildRunner(opts.Config, mode)
	if err != nil {
		return err
	}
	opts.Logger.Infow("app_start",
		"addr", listenAddr(opts.Config),
		"mode", string(mode),
		"ledger_driver", opts.Config.Ledger.Driver,
		"shutdown_timeout", opts.ShutdownTimeout.String(),
	)
	return RunWithSignals(runner, opts)
}

func listenAddr(cfg *config.Config) string {
	return cfg.Server.Host + ":" + cfg.Server.Port
}

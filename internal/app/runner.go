package app

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Service a long-running part of the process
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner runs the ledger services and releases what they share once all of them are down.
// Closers run only after every Start has returned or the stop budget is spent, so the
// ledger store is never closed under an in-flight request.
type Runner struct {
	services []Service
	closers  []func() error
	log      *zap.SugaredLogger
}

// NewRunner creates a runner
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// OnClose registers fn to run after shutdown; closers run in reverse registration order
func (r *Runner) OnClose(fn func() error) {
	if fn != nil {
		r.closers = append(r.closers, fn)
	}
}

// Run starts every service and stops all of them once ctx ends or any service exits
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type exit struct {
		name string
		err  error
	}
	exits := make(chan exit, len(r.services))
	var running sync.WaitGroup
	for _, svc := range r.services {
		if svc == nil {
			exits <- exit{name: "unknown", err: errors.New("service is nil")}
			continue
		}
		running.Add(1)
		go func() {
			defer running.Done()
			r.infow("service_start", "service", svc.Name())
			exits <- exit{name: svc.Name(), err: svc.Start(ctx)}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case first := <-exits:
		runErr = first.err
		r.infow("service_exit", "service", first.name, "error", first.err)
	}
	cancel()

	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	r.stopAll(stopCtx)

	drained := make(chan struct{})
	go func() {
		running.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-stopCtx.Done():
		r.warnw("service_drain_timeout", "timeout", stopTimeout.String())
	}
	r.closeAll()

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// stopAll stops services in reverse start order
func (r *Runner) stopAll(ctx context.Context) {
	for i := len(r.services) - 1; i >= 0; i-- {
		svc := r.services[i]
		if svc == nil {
			continue
		}
		if err := svc.Stop(ctx); err != nil {
			r.warnw("service_stop_failed", "service", svc.Name(), "error", err)
		}
	}
}

func (r *Runner) closeAll() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			r.warnw("runner_close_failed", "error", err)
		}
	}
	r.closers = nil
}

func (r *Runner) infow(msg string, kv ...interface{}) {
	if r.log != nil {
		r.log.Infow(msg, kv...)
	}
}

func (r *Runner) warnw(msg string, kv ...interface{}) {
	if r.log != nil {
		r.log.Warnw(msg, kv...)
	}
}

// RunWithSignals runs r until one of opts.Signals arrives or a service exits
func RunWithSignals(r *Runner, opts Options) error {
	if r == nil {
		return errors.New("runner is nil")
	}
	opts = normalizeOptions(opts)
	r.log = opts.Logger
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, opts.Signals...)
		defer cancel()
	}
	return r.Run(ctx, opts.ShutdownTimeout)
}

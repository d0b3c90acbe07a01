package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tabiguide-next/internal/config"
	"github.com/tabiguide-next/internal/provider"
	"github.com/tabiguide-next/internal/repository"
)

func snapshotOnlyConfig(t *testing.T, schedule string) (*config.Config, *Consumer) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Ledger = config.LedgerConfig{Driver: "json", Path: filepath.Join(dir, "ledger.json")}
	cfg.Snapshot = config.SnapshotConfig{Enabled: true, Schedule: schedule, Dir: filepath.Join(dir, "snapshots"), Keep: 2}
	container := provider.NewContainerWithStore(cfg, repository.NewJSONReferralStore(cfg.Ledger.Path))
	return cfg, NewConsumer(container)
}

func TestNewServiceDisabled(t *testing.T) {
	_, err := NewService(&config.Config{}, NewConsumer(nil))
	if !errors.Is(err, ErrWorkerDisabled) {
		t.Fatalf("expected ErrWorkerDisabled, got %v", err)
	}
}

func TestNewServiceRejectsBadSchedule(t *testing.T) {
	cfg, consumer := snapshotOnlyConfig(t, "every now and then")
	if _, err := NewService(cfg, consumer); err == nil {
		t.Fatalf("expected invalid schedule to fail")
	}
}

func TestSnapshotOnlyServiceStartStop(t *testing.T) {
	cfg, consumer := snapshotOnlyConfig(t, "@every 1h")
	svc, err := NewService(cfg, consumer)
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	if svc.server != nil {
		t.Fatalf("queue is disabled, no asynq server expected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("start did not return after cancel")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := svc.Stop(stopCtx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestServiceName(t *testing.T) {
	var svc *Service
	if svc.Name() != "worker" {
		t.Fatalf("nil service should still be named")
	}
}

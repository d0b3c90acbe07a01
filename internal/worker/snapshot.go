package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/tabiguide-next/internal/config"
	"github.com/tabiguide-next/internal/constants"
	"github.com/tabiguide-next/internal/logger"
	"github.com/tabiguide-next/internal/models"
	"github.com/tabiguide-next/internal/repository"
)

// SnapshotSource returns the whole ledger, failing on unreadable storage
type SnapshotSource interface {
	Snapshot(ctx context.Context) ([]models.Referral, error)
}

// SnapshotJob copies the ledger into timestamped files and keeps the newest few
type SnapshotJob struct {
	source SnapshotSource
	dir    string
	keep   int
	now    func() time.Time
}

// NewSnapshotJob creates the job from config, filling defaults
func NewSnapshotJob(source SnapshotSource, cfg config.SnapshotConfig) *SnapshotJob {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		dir = constants.SnapshotDirDefault
	}
	keep := cfg.Keep
	if keep <= 0 {
		keep = constants.SnapshotKeepDefault
	}
	return &SnapshotJob{
		source: source,
		dir:    dir,
		keep:   keep,
		now:    time.Now,
	}
}

// Run writes one snapshot and prunes older ones. It returns the snapshot path.
func (j *SnapshotJob) Run(ctx context.Context) (string, error) {
	if j == nil || j.source == nil {
		return "", errors.New("snapshot job not initialized")
	}
	referrals, err := j.source.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("read ledger: %w", err)
	}

	name := constants.SnapshotFilePrefix + j.now().UTC().Format(constants.SnapshotTimestampLayout) + constants.SnapshotFileSuffix
	path := filepath.Join(j.dir, name)
	if err := repository.NewJSONReferralStore(path).Save(ctx, referrals); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	removed, err := j.prune()
	if err != nil {
		// the snapshot itself is in place
		logger.Warnw("worker_snapshot_prune_failed", "dir", j.dir, "error", err)
	}
	logger.Infow("worker_snapshot_written",
		"path", path,
		"referrals", len(referrals),
		"pruned", removed,
	)
	return path, nil
}

// prune removes the oldest snapshot files beyond keep
func (j *SnapshotJob) prune() (int, error) {
	names, err := listSnapshots(j.dir)
	if err != nil {
		return 0, err
	}
	if len(names) <= j.keep {
		return 0, nil
	}
	removed := 0
	var errs []error
	for _, name := range names[:len(names)-j.keep] {
		if err := os.Remove(filepath.Join(j.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// listSnapshots returns snapshot file names, oldest first
func listSnapshots(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, constants.SnapshotFilePrefix) || !strings.HasSuffix(name, constants.SnapshotFileSuffix) {
			continue
		}
		names = append(names, name)
	}
	// the UTC timestamp layout sorts lexically in time order
	slices.Sort(names)
	return names, nil
}

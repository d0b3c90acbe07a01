package worker

import (
	"context"
	"fmt"

	"github.com/tabiguide-next/internal/constants"
	"github.com/tabiguide-next/internal/logger"
	"github.com/tabiguide-next/internal/provider"
	"github.com/tabiguide-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer asynq task consumer
type Consumer struct {
	*provider.Container
}

// NewConsumer creates the consumer
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register binds task handlers to mux
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCommissionStatusChanged, c.handleCommissionStatusChanged)
}

// handleCommissionStatusChanged writes the audit entry of a commission status change.
// A malformed payload is never retried.
func (c *Consumer) handleCommissionStatusChanged(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_commission_status_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseCommissionStatusChangedPayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_commission_status_invalid_payload", "error", err)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	logger.SW("audit", "commission").Infow("commission_status_changed",
		"referral_id", payload.ReferralID,
		"guide_id", payload.GuideID,
		"sponsor_store_id", payload.SponsorStoreID,
		"from", payload.From,
		"to", payload.To,
		"changed_at", payload.ChangedAt,
		"payout", payload.To == constants.CommissionStatusPaid,
	)
	return nil
}

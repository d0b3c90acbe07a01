package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tabiguide-next/internal/config"
	"github.com/tabiguide-next/internal/constants"

	"github.com/hibiken/asynq"
)

// Publisher enqueues ledger events. A Publisher built from a disabled config drops them.
type Publisher struct {
	client   *asynq.Client
	queue    string
	maxRetry int
}

// NewPublisher connects to the queue redis when cfg enables it
func NewPublisher(cfg *config.QueueConfig) *Publisher {
	if cfg == nil || !cfg.Enabled {
		return &Publisher{}
	}
	return &Publisher{
		client:   asynq.NewClient(redisOpt(cfg)),
		queue:    queueName(cfg),
		maxRetry: maxRetry(cfg),
	}
}

// Enabled reports whether events actually reach redis
func (p *Publisher) Enabled() bool {
	return p != nil && p.client != nil
}

// Close closes the asynq client
func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.client.Close()
}

// EnqueueCommissionStatusChanged publishes one status transition. The task id is derived from
// the transition, so a retried publish of the same change is accepted once.
func (p *Publisher) EnqueueCommissionStatusChanged(payload CommissionStatusChangedPayload, opts ...asynq.Option) error {
	if !p.Enabled() {
		return nil
	}
	task, err := NewCommissionStatusChangedTask(payload)
	if err != nil {
		return err
	}
	options := append([]asynq.Option{
		asynq.Queue(p.queue),
		asynq.MaxRetry(p.maxRetry),
		asynq.TaskID(transitionTaskID(payload)),
	}, opts...)
	if _, err := p.client.Enqueue(task, options...); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}
	return nil
}

func transitionTaskID(payload CommissionStatusChangedPayload) string {
	return fmt.Sprintf("%s:%s>%s:%d", payload.ReferralID, payload.From, payload.To, payload.ChangedAt.UnixMilli())
}

func queueName(cfg *config.QueueConfig) string {
	if cfg != nil {
		if name := strings.TrimSpace(cfg.Queue); name != "" {
			return name
		}
	}
	return constants.QueueLedgerEvents
}

func maxRetry(cfg *config.QueueConfig) int {
	if cfg != nil && cfg.MaxRetry > 0 {
		return cfg.MaxRetry
	}
	return constants.TaskMaxRetry
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379", DialTimeout: 5 * time.Second}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = fmt.Sprintf("%s:%d", host, port)
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}

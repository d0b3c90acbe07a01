package queue

import (
	"context"

	"github.com/tabiguide-next/internal/config"
	"github.com/tabiguide-next/internal/logger"

	"github.com/hibiken/asynq"
)

// ServerOptions builds the asynq server that consumes the ledger event queue
func ServerOptions(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := 5
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	return redisOpt(cfg), asynq.Config{
		Concurrency:  concurrency,
		Queues:       map[string]int{queueName(cfg): 1},
		ErrorHandler: asynq.ErrorHandlerFunc(logTaskFailure),
	}
}

func logTaskFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	limit, _ := asynq.GetMaxRetry(ctx)
	logger.Warnw("queue_task_failed",
		"task_type", task.Type(),
		"retried", retried,
		"max_retry", limit,
		"error", err,
	)
}

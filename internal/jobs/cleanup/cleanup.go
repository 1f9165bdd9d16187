package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultInterval  = time.Hour
	defaultBatchSize = 500
)

// MessagePurger physically removes messages both parties deleted.
type MessagePurger interface {
	PurgeFullyDeleted(ctx context.Context, limit int) (int64, error)
}

// Job sweeps rows left behind when a request-time removal did not happen.
type Job struct {
	messages  MessagePurger
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

func New(messages MessagePurger, interval time.Duration, batchSize int, logger *zap.Logger) *Job {
	if interval <= 0 {
		interval = defaultInterval
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		messages:  messages,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run purges in batches until a batch comes back short.
func (j *Job) Run(ctx context.Context) error {
	if j.messages == nil {
		return nil
	}

	var total int64
	for {
		removed, err := j.messages.PurgeFullyDeleted(ctx, j.batchSize)
		if err != nil {
			return fmt.Errorf("purge fully deleted messages: %w", err)
		}
		total += removed
		if removed < int64(j.batchSize) {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if total > 0 {
		j.logger.Info("cleanup deleted messages completed", zap.Int64("removed", total))
	}
	return nil
}

// Loop runs the job immediately and then every interval until ctx is done.
func (j *Job) Loop(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		if err := j.Run(ctx); err != nil && ctx.Err() == nil {
			j.logger.Warn("cleanup run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

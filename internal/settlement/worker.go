package settlement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vaultbank/backend/internal/logger"
)

// Worker drains the settlement queue and emits pacs.008 messages for each
// queued deferred transfer.
type Worker struct {
	queue    *Queue
	interval time.Duration
}

func NewWorker(queue *Queue, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Worker{queue: queue, interval: interval}
}

// Run polls until ctx is cancelled. Failures on one message never block
// the rest of the queue.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("settlement worker stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		txn, err := w.queue.Dequeue(ctx)
		if err != nil {
			logger.Log.Warn("settlement dequeue failed", zap.Error(err))
			return
		}
		if txn == nil {
			return
		}

		doc, err := BuildPacs008(txn)
		if err != nil {
			logger.Log.Error("failed to build pacs.008",
				zap.String("txnId", txn.ID), zap.Error(err))
			continue
		}
		if err := SendToSettlement(doc); err != nil {
			logger.Log.Error("failed to send to settlement",
				zap.String("txnId", txn.ID), zap.Error(err))
			continue
		}
		logger.Log.Info("transfer dispatched for settlement", zap.String("txnId", txn.ID))
	}
}

package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vexeradubbing/applybot/internal/model"
)

// ProcessFunc handles one dequeued application.
type ProcessFunc func(ctx context.Context, app model.Application)

// IntakeQueue decouples intake requests from admin notification
// delivery: submissions land in a bounded buffer and a single worker
// drains it, so a slow chat transport never blocks the intake
// request/response cycle.
type IntakeQueue struct {
	ch           chan model.Application
	process      ProcessFunc
	drainTimeout time.Duration
	logger       *slog.Logger
}

func New(size int, process ProcessFunc, logger *slog.Logger) *IntakeQueue {
	if size <= 0 {
		size = 64
	}
	return &IntakeQueue{
		ch:           make(chan model.Application, size),
		process:      process,
		drainTimeout: 10 * time.Second,
		logger:       logger.With("layer", "queue"),
	}
}

// Enqueue adds an application for review processing. It never blocks;
// a full queue is an error the caller logs and carries on from, since
// the record itself is already persisted.
func (q *IntakeQueue) Enqueue(app model.Application) error {
	select {
	case q.ch <- app:
		return nil
	default:
		return fmt.Errorf("intake queue full, dropping review dispatch for %s", app.ID)
	}
}

// Start runs the worker until ctx is done, then drains whatever is
// already buffered before returning.
func (q *IntakeQueue) Start(ctx context.Context) {
	q.logger.Info("intake worker started", slog.Int("capacity", cap(q.ch)))
	for {
		select {
		case app := <-q.ch:
			q.process(ctx, app)
		case <-ctx.Done():
			q.drain()
			q.logger.Info("intake worker stopped")
			return
		}
	}
}

// drain processes the remaining buffered applications with a fresh
// bounded context, since the run context is already cancelled.
func (q *IntakeQueue) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), q.drainTimeout)
	defer cancel()

	for {
		select {
		case app := <-q.ch:
			q.process(ctx, app)
		default:
			return
		}
	}
}

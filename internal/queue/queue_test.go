package queue

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexeradubbing/applybot/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *recorder) process(ctx context.Context, app model.Application) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, app.ID)
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func TestQueue_ProcessesInOrder(t *testing.T) {
	rec := &recorder{}
	q := New(8, rec.process, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Start(ctx)
		close(done)
	}()

	for _, id := range []string{"APP-0001", "APP-0002", "APP-0003"} {
		require.NoError(t, q.Enqueue(model.Application{ID: id}))
	}

	require.Eventually(t, func() bool {
		return len(rec.seen()) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"APP-0001", "APP-0002", "APP-0003"}, rec.seen())

	cancel()
	<-done
}

func TestQueue_FullReturnsError(t *testing.T) {
	// No worker running, so the buffer fills up.
	q := New(2, func(ctx context.Context, app model.Application) {}, discardLogger())

	require.NoError(t, q.Enqueue(model.Application{ID: "APP-0001"}))
	require.NoError(t, q.Enqueue(model.Application{ID: "APP-0002"}))

	err := q.Enqueue(model.Application{ID: "APP-0003"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP-0003")
}

func TestQueue_DrainsOnShutdown(t *testing.T) {
	rec := &recorder{}
	q := New(8, rec.process, discardLogger())

	// Buffer items before the worker ever runs, then start it with an
	// already-cancelled context: everything buffered must still land.
	for _, id := range []string{"APP-0001", "APP-0002"} {
		require.NoError(t, q.Enqueue(model.Application{ID: id}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q.Start(ctx)

	assert.ElementsMatch(t, []string{"APP-0001", "APP-0002"}, rec.seen())
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexeradubbing/applybot/internal/model"
	"github.com/vexeradubbing/applybot/internal/notifier"
	"github.com/vexeradubbing/applybot/internal/queue"
	"github.com/vexeradubbing/applybot/internal/service"
	"github.com/vexeradubbing/applybot/internal/storage"
)

func newTestHandler(t *testing.T) (*ApplicationHandler, *storage.MemoryStorage, *queue.IntakeQueue) {
	t.Helper()
	store := storage.NewMemoryStorage()
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	fanout := notifier.New(notifier.NewFakeTransport(), store, 4, l)
	svc := service.NewApplicationService(store, fanout, nil, []int64{100}, l)
	intake := queue.New(8, svc.ProcessIntake, l)
	return NewApplicationHandler(svc, intake, l), store, intake
}

func TestSubmit(t *testing.T) {
	h, store, intake := newTestHandler(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		intake.Start(ctx)
		close(done)
	}()
	defer func() { cancel(); <-done }()

	body := `{"name":"Ann","contact":"@ann","role":"voice","motivation":"love it"}`
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Submit(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp submitResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "application received", resp.Message)
	assert.Equal(t, "APP-0001", resp.ApplicationID)

	// The queue worker promotes the record to pending.
	require.Eventually(t, func() bool {
		app, err := store.FindByID(context.Background(), "APP-0001")
		return err == nil && app.Status == model.StatusPending
	}, time.Second, 5*time.Millisecond)
}

func TestSubmit_BadRequests(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
	}{
		{"invalid json", "{not json", "invalid request body"},
		{"missing motivation", `{"name":"Ann","contact":"@ann","role":"voice"}`, "field motivation is required"},
		{"empty object", `{}`, "field name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store, _ := newTestHandler(t)

			req := httptest.NewRequest(http.MethodPost, "/submit", bytes.NewReader([]byte(tt.body)))
			rec := httptest.NewRecorder()

			h.Submit(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp submitResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "error", resp.Status)
			assert.Contains(t, resp.Message, tt.wantMessage)
			assert.Empty(t, resp.ApplicationID)

			counts, err := store.Counts(context.Background())
			require.NoError(t, err)
			assert.Empty(t, counts, "nothing may be stored for a rejected request")
		})
	}
}

func TestSubmit_FullQueueStillSucceeds(t *testing.T) {
	h, store, intake := newTestHandler(t)

	// Fill the buffer; no worker is draining it.
	for i := 0; i < 8; i++ {
		require.NoError(t, intake.Enqueue(model.Application{ID: model.FormatID(int64(100 + i))}))
	}

	body := `{"name":"Ann","contact":"@ann","role":"voice","motivation":"love it"}`
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Submit(rec, req)

	// The record is accepted and persisted even when review dispatch
	// cannot be queued.
	require.Equal(t, http.StatusOK, rec.Code)
	app, err := store.FindByID(context.Background(), "APP-0001")
	require.NoError(t, err)
	assert.Equal(t, model.StatusReceived, app.Status)
}

func TestStatus(t *testing.T) {
	h, store, _ := newTestHandler(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &model.Application{ID: "APP-0001", Status: model.StatusPending, CreatedAt: time.Now()}))
	require.NoError(t, store.Create(ctx, &model.Application{ID: "APP-0002", Status: model.StatusApproved, CreatedAt: time.Now()}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h.Status(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "running", resp["status"])
	assert.Equal(t, "VexeraDubbing Application Bot", resp["service"])
	assert.EqualValues(t, 1, resp["pending_applications"])
	assert.EqualValues(t, 1, resp["approved_applications"])
	assert.EqualValues(t, 0, resp["rejected_applications"])
}

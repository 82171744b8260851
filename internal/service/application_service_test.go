package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "github.com/vexeradubbing/applybot/internal/errors"
	"github.com/vexeradubbing/applybot/internal/model"
	"github.com/vexeradubbing/applybot/internal/notifier"
	"github.com/vexeradubbing/applybot/internal/storage"
)

var testAdmins = []int64{100, 200, 300}

func newTestService(t *testing.T) (ApplicationService, *storage.MemoryStorage, *notifier.FakeTransport) {
	t.Helper()
	store := storage.NewMemoryStorage()
	transport := notifier.NewFakeTransport()
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	fanout := notifier.New(transport, store, 4, l)
	svc := NewApplicationService(store, fanout, nil, testAdmins, l)
	return svc, store, transport
}

func validSubmission() Submission {
	return Submission{
		Name:       "Ann",
		Contact:    "@ann",
		Role:       "voice",
		Motivation: "love it",
	}
}

func TestSubmitAndIntake(t *testing.T) {
	svc, store, transport := newTestService(t)
	ctx := context.Background()

	app, err := svc.Submit(ctx, validSubmission(), "http")
	require.NoError(t, err)
	assert.Equal(t, "APP-0001", app.ID)
	assert.Equal(t, model.StatusReceived, app.Status)
	assert.Equal(t, model.ContactUnknown, app.ContactHandle)

	svc.ProcessIntake(ctx, *app)

	got, err := store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)

	// One copy per admin, with the action keyboard attached.
	sent := transport.Sent()
	require.Len(t, sent, len(testAdmins))
	for _, msg := range sent {
		assert.Equal(t, "APP-0001", msg.Content.AppID)
		assert.True(t, msg.Content.WithActions)
	}

	refs, err := store.RefsByApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, refs, len(testAdmins))
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Submission)
	}{
		{"missing name", func(s *Submission) { s.Name = "" }},
		{"missing contact", func(s *Submission) { s.Contact = "" }},
		{"missing role", func(s *Submission) { s.Role = "  " }},
		{"missing motivation", func(s *Submission) { s.Motivation = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t)
			ctx := context.Background()

			sub := validSubmission()
			tt.mutate(&sub)

			_, err := svc.Submit(ctx, sub, "http")
			require.Error(t, err)
			assert.True(t, appErr.IsValidation(err))

			// A rejected submission must not burn a counter value.
			id, err := store.NextID(ctx)
			require.NoError(t, err)
			assert.Equal(t, "APP-0001", id)
		})
	}
}

func TestSubmit_RawTextSkipsFieldValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	app, err := svc.Submit(context.Background(), Submission{
		RawText:       "NEW DUBBING TEAM APPLICATION\nName: Ann\nTelegram: @ann",
		ContactHandle: "@ann",
	}, "chat")
	require.NoError(t, err)
	assert.Equal(t, "@ann", app.ContactHandle)
	assert.NotEmpty(t, app.RawText)
}

func TestApprove(t *testing.T) {
	svc, store, transport := newTestService(t)
	ctx := context.Background()
	admin := model.Actor{ID: 100, Name: "Boris"}

	app, err := svc.Submit(ctx, validSubmission(), "http")
	require.NoError(t, err)
	svc.ProcessIntake(ctx, *app)

	decided, err := svc.Approve(ctx, app.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, decided.Status)
	assert.Equal(t, "Boris", decided.ProcessedBy)
	require.NotNil(t, decided.ProcessedAt)

	got, err := store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)

	// Every admin's copy is edited in place; the keyboard comes off.
	edits := transport.Edits()
	require.Len(t, edits, len(testAdmins))
	for _, edit := range edits {
		assert.Contains(t, edit.Content.Text, "APPROVED APP-0001")
		assert.False(t, edit.Content.WithActions)
	}
}

func TestApprove_NonAdmin(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	app, err := svc.Submit(ctx, validSubmission(), "http")
	require.NoError(t, err)
	svc.ProcessIntake(ctx, *app)

	_, err = svc.Approve(ctx, app.ID, model.Actor{ID: 999, Name: "Mallory"})
	require.Error(t, err)
	assert.True(t, appErr.IsPermissionDenied(err))

	got, err := store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestApprove_Unknown(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Approve(context.Background(), "APP-9999", model.Actor{ID: 100, Name: "Boris"})
	assert.True(t, appErr.IsNotFound(err))
}

func TestReDecision(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	admin := model.Actor{ID: 100, Name: "Boris"}
	other := model.Actor{ID: 200, Name: "Vera"}

	app, err := svc.Submit(ctx, validSubmission(), "http")
	require.NoError(t, err)
	svc.ProcessIntake(ctx, *app)

	_, err = svc.Approve(ctx, app.ID, admin)
	require.NoError(t, err)

	// A second admin may overturn the decision.
	decided, err := svc.Reject(ctx, app.ID, other)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, decided.Status)
	assert.Equal(t, "Vera", decided.ProcessedBy)

	// Repeating the same decision is a conflict, not a no-op.
	_, err = svc.Reject(ctx, app.ID, admin)
	require.Error(t, err)
	assert.True(t, appErr.IsConflict(err))

	got, err := store.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vera", got.ProcessedBy)
}

func TestDecisionNotifiesApplicant(t *testing.T) {
	svc, _, transport := newTestService(t)
	ctx := context.Background()
	admin := model.Actor{ID: 100, Name: "Boris"}
	const applicantChat = int64(555)

	app, err := svc.Submit(ctx, Submission{
		RawText:         "NEW DUBBING TEAM APPLICATION\nTelegram: @ann",
		ContactHandle:   "@ann",
		ApplicantChatID: applicantChat,
	}, "chat")
	require.NoError(t, err)
	assert.Equal(t, applicantChat, app.ApplicantChatID)
	svc.ProcessIntake(ctx, *app)

	_, err = svc.Approve(ctx, app.ID, admin)
	require.NoError(t, err)

	sent := transport.SentTo(applicantChat)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Content.Text, "approved")
	assert.Contains(t, sent[0].Content.Text, app.ID)
}

func TestDecisionUnreachableApplicantFallsBackToBroadcast(t *testing.T) {
	svc, _, transport := newTestService(t)
	ctx := context.Background()
	admin := model.Actor{ID: 100, Name: "Boris"}
	const applicantChat = int64(555)

	app, err := svc.Submit(ctx, Submission{
		RawText:         "NEW DUBBING TEAM APPLICATION\nTelegram: @ann",
		ContactHandle:   "@ann",
		ApplicantChatID: applicantChat,
	}, "chat")
	require.NoError(t, err)
	svc.ProcessIntake(ctx, *app)
	transport.FailSend[applicantChat] = true

	decided, err := svc.Reject(ctx, app.ID, admin)
	require.NoError(t, err, "an unreachable applicant must not fail the decision")
	assert.Equal(t, model.StatusRejected, decided.Status)

	assert.Empty(t, transport.SentTo(applicantChat))
	var fallbacks int
	for _, msg := range transport.SentTo(admin.ID) {
		if strings.Contains(msg.Content.Text, "Could not reach the applicant") {
			fallbacks++
		}
	}
	assert.Equal(t, 1, fallbacks)
}

func TestHTTPSubmissionSkipsApplicantNotice(t *testing.T) {
	svc, _, transport := newTestService(t)
	ctx := context.Background()
	admin := model.Actor{ID: 100, Name: "Boris"}

	app, err := svc.Submit(ctx, validSubmission(), "http")
	require.NoError(t, err)
	assert.Zero(t, app.ApplicantChatID)
	svc.ProcessIntake(ctx, *app)

	before := len(transport.Sent())
	_, err = svc.Approve(ctx, app.ID, admin)
	require.NoError(t, err)

	// Only the admin announcement goes out; there is no applicant chat.
	assert.Len(t, transport.Sent(), before+len(testAdmins))
}

func TestDelete(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	admin := model.Actor{ID: 100, Name: "Boris"}

	app, err := svc.Submit(ctx, validSubmission(), "http")
	require.NoError(t, err)
	svc.ProcessIntake(ctx, *app)

	require.NoError(t, svc.Delete(ctx, app.ID, admin))

	_, err = store.FindByID(ctx, app.ID)
	assert.True(t, appErr.IsNotFound(err))

	refs, err := store.RefsByApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Empty(t, refs, "message refs go with the record")

	err = svc.Delete(ctx, app.ID, model.Actor{ID: 999})
	assert.True(t, appErr.IsPermissionDenied(err))
}

func TestList(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	admin := model.Actor{ID: 100, Name: "Boris"}

	for i := 0; i < 2; i++ {
		app, err := svc.Submit(ctx, validSubmission(), "http")
		require.NoError(t, err)
		svc.ProcessIntake(ctx, *app)
	}

	apps, err := svc.List(ctx, model.StatusPending, admin)
	require.NoError(t, err)
	assert.Len(t, apps, 2)

	_, err = svc.List(ctx, model.StatusPending, model.Actor{ID: 999})
	assert.True(t, appErr.IsPermissionDenied(err))

	_, err = svc.List(ctx, model.Status("bogus"), admin)
	assert.True(t, appErr.IsValidation(err))
}

func TestIsAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	assert.True(t, svc.IsAdmin(model.Actor{ID: 100}))
	assert.False(t, svc.IsAdmin(model.Actor{ID: 101}))
}

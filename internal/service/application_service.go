package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appErr "github.com/vexeradubbing/applybot/internal/errors"
	"github.com/vexeradubbing/applybot/internal/kafka"
	"github.com/vexeradubbing/applybot/internal/metrics"
	"github.com/vexeradubbing/applybot/internal/model"
	"github.com/vexeradubbing/applybot/internal/notifier"
	"github.com/vexeradubbing/applybot/internal/storage"
)

// Submission is a raw intake payload before validation.
type Submission struct {
	Name       string `json:"name"`
	Contact    string `json:"contact"`
	Role       string `json:"role"`
	Experience string `json:"experience"`
	Samples    string `json:"samples"`
	Motivation string `json:"motivation"`

	// RawText is set for chat intake, where the payload is free text.
	RawText         string `json:"-"`
	ContactHandle   string `json:"-"`
	ApplicantChatID int64  `json:"-"`
}

// ApplicationService is the lifecycle controller: it owns status
// transitions, admin permission checks, and the notification side
// effects of each transition.
type ApplicationService interface {
	Submit(ctx context.Context, sub Submission, channel string) (*model.Application, error)
	// ProcessIntake promotes a received application to pending and fans
	// the notification out to all admins. Runs on the intake queue worker.
	ProcessIntake(ctx context.Context, app model.Application)
	Approve(ctx context.Context, id string, actor model.Actor) (*model.Application, error)
	Reject(ctx context.Context, id string, actor model.Actor) (*model.Application, error)
	Delete(ctx context.Context, id string, actor model.Actor) error
	Get(ctx context.Context, id string, actor model.Actor) (*model.Application, error)
	List(ctx context.Context, status model.Status, actor model.Actor) ([]model.Application, error)
	Counts(ctx context.Context) (map[model.Status]int, error)
	IsAdmin(actor model.Actor) bool
}

type applicationService struct {
	store    storage.Storage
	notifier *notifier.Notifier
	events   kafka.EventProducer
	admins   map[int64]struct{}
	adminIDs []int64
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewApplicationService(
	store storage.Storage,
	fanout *notifier.Notifier,
	events kafka.EventProducer,
	adminIDs []int64,
	logger *slog.Logger,
) ApplicationService {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	l := logger.With("layer", "service", "component", "applicationService")
	return &applicationService{
		store:    store,
		notifier: fanout,
		events:   events,
		admins:   admins,
		adminIDs: adminIDs,
		logger:   l,
		tracer:   otel.Tracer("application-service"),
		now:      time.Now,
	}
}

func (s *applicationService) IsAdmin(actor model.Actor) bool {
	_, ok := s.admins[actor.ID]
	return ok
}

func (s *applicationService) Submit(ctx context.Context, sub Submission, channel string) (*model.Application, error) {
	ctx, span := s.tracer.Start(ctx, "Submit")
	defer span.End()
	span.SetAttributes(attribute.String("intake.channel", channel))

	if err := validateSubmission(sub); err != nil {
		s.logger.Warn("submission rejected", slog.String("channel", channel), slog.Any("error", err))
		return nil, err
	}

	id, err := s.store.NextID(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, appErr.NewInternal("failed to allocate application id: %v", err)
	}

	handle := strings.TrimSpace(sub.ContactHandle)
	if handle == "" {
		handle = model.ContactUnknown
	}

	app := &model.Application{
		ID:              id,
		Status:          model.StatusReceived,
		Name:            sub.Name,
		Contact:         sub.Contact,
		Role:            sub.Role,
		Experience:      sub.Experience,
		Samples:         sub.Samples,
		Motivation:      sub.Motivation,
		RawText:         sub.RawText,
		ContactHandle:   handle,
		ApplicantChatID: sub.ApplicantChatID,
		CreatedAt:       s.now(),
	}

	if err := s.store.Create(ctx, app); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, appErr.NewInternal("failed to save application: %v", err)
	}

	span.SetAttributes(attribute.String("application.id", app.ID))
	metrics.ApplicationsSubmitted.WithLabelValues(channel).Inc()
	s.logger.Info("application received",
		slog.String("id", app.ID),
		slog.String("channel", channel))
	return app, nil
}

func (s *applicationService) ProcessIntake(ctx context.Context, app model.Application) {
	ctx, span := s.tracer.Start(ctx, "ProcessIntake")
	defer span.End()
	span.SetAttributes(attribute.String("application.id", app.ID))

	if err := s.store.UpdateStatus(ctx, app.ID, model.StatusPending, "", s.now()); err != nil {
		// Record may have been deleted while queued.
		s.logger.Error("failed to promote application to pending",
			slog.String("id", app.ID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	current, err := s.store.FindByID(ctx, app.ID)
	if err != nil {
		s.logger.Error("failed to reload application after promotion",
			slog.String("id", app.ID), slog.Any("error", err))
		return
	}

	s.notifier.SendToAll(ctx, current, s.adminIDs, notifier.RenderApplication)
	s.publishEvent(ctx, current.ID, model.StatusReceived, model.StatusPending, "")
	s.logger.Info("application pending review", slog.String("id", current.ID))
}

func (s *applicationService) Approve(ctx context.Context, id string, actor model.Actor) (*model.Application, error) {
	return s.decide(ctx, id, actor, model.StatusApproved)
}

func (s *applicationService) Reject(ctx context.Context, id string, actor model.Actor) (*model.Application, error) {
	return s.decide(ctx, id, actor, model.StatusRejected)
}

func (s *applicationService) decide(ctx context.Context, id string, actor model.Actor, outcome model.Status) (*model.Application, error) {
	ctx, span := s.tracer.Start(ctx, "Decide")
	defer span.End()
	span.SetAttributes(
		attribute.String("application.id", id),
		attribute.String("application.outcome", string(outcome)),
	)

	if !s.IsAdmin(actor) {
		s.logger.Warn("decision denied",
			slog.String("id", id), slog.Int64("actor", actor.ID))
		return nil, appErr.NewPermissionDenied("actor %d may not decide applications", actor.ID)
	}

	before, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateStatus(ctx, id, outcome, actor.Name, s.now()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	app, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, appErr.NewInternal("failed to reload application %s: %v", id, err)
	}

	// Every admin's copy of the notification reflects the decision.
	if err := s.notifier.UpdateAll(ctx, app, notifier.RenderApplication); err != nil {
		s.logger.Error("failed to refresh notification copies",
			slog.String("id", id), slog.Any("error", err))
	}

	verb := "approved"
	if outcome == model.StatusRejected {
		verb = "rejected"
	}
	s.notifier.Announce(ctx, s.adminIDs, fmt.Sprintf("%s %s application %s", actor.Name, verb, id))
	s.notifyApplicant(ctx, app, verb)

	s.publishEvent(ctx, id, before.Status, outcome, actor.Name)
	metrics.Decisions.WithLabelValues(string(outcome)).Inc()
	s.logger.Info("application decided",
		slog.String("id", id),
		slog.String("outcome", string(outcome)),
		slog.String("actor", actor.Name))
	return &app, nil
}

// notifyApplicant delivers the decision back to the submitter when
// their chat is known (chat intake only). Best effort: an unreachable
// applicant degrades to an admin broadcast, never a failed decision.
func (s *applicationService) notifyApplicant(ctx context.Context, app model.Application, verb string) {
	if app.ApplicantChatID == 0 {
		return
	}
	text := fmt.Sprintf("Your application %s has been %s.", app.ID, verb)
	if err := s.notifier.Direct(ctx, app.ApplicantChatID, text); err != nil {
		s.logger.Warn("failed to notify applicant",
			slog.String("id", app.ID),
			slog.Int64("applicant", app.ApplicantChatID),
			slog.Any("error", err))
		s.notifier.Announce(ctx, s.adminIDs,
			fmt.Sprintf("Could not reach the applicant for %s (%s).", app.ID, app.ContactHandle))
	}
}

func (s *applicationService) Delete(ctx context.Context, id string, actor model.Actor) error {
	ctx, span := s.tracer.Start(ctx, "Delete")
	defer span.End()
	span.SetAttributes(attribute.String("application.id", id))

	if !s.IsAdmin(actor) {
		return appErr.NewPermissionDenied("actor %d may not delete applications", actor.ID)
	}

	before, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	// Message refs cascade with the record.
	if err := s.store.Delete(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.notifier.Announce(ctx, s.adminIDs, fmt.Sprintf("%s deleted application %s", actor.Name, id))
	s.publishEvent(ctx, id, before.Status, "deleted", actor.Name)
	s.logger.Info("application deleted", slog.String("id", id), slog.String("actor", actor.Name))
	return nil
}

func (s *applicationService) Get(ctx context.Context, id string, actor model.Actor) (*model.Application, error) {
	ctx, span := s.tracer.Start(ctx, "Get")
	defer span.End()

	if !s.IsAdmin(actor) {
		return nil, appErr.NewPermissionDenied("actor %d may not view applications", actor.ID)
	}

	app, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *applicationService) List(ctx context.Context, status model.Status, actor model.Actor) ([]model.Application, error) {
	ctx, span := s.tracer.Start(ctx, "List")
	defer span.End()
	span.SetAttributes(attribute.String("application.status", string(status)))

	if !s.IsAdmin(actor) {
		return nil, appErr.NewPermissionDenied("actor %d may not list applications", actor.ID)
	}
	if !model.ValidStatus(status) {
		return nil, appErr.NewValidation("unknown status %q", status)
	}

	apps, err := s.store.FindByStatus(ctx, status)
	if err != nil {
		return nil, appErr.NewInternal("failed to list applications: %v", err)
	}
	return apps, nil
}

func (s *applicationService) Counts(ctx context.Context) (map[model.Status]int, error) {
	return s.store.Counts(ctx)
}

func (s *applicationService) publishEvent(ctx context.Context, id string, from, to model.Status, actor string) {
	if s.events == nil {
		return
	}
	event := model.LifecycleEvent{
		ApplicationID: id,
		OldStatus:     from,
		NewStatus:     to,
		Actor:         actor,
		Timestamp:     s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish lifecycle event",
			slog.String("id", id), slog.Any("error", err))
	}
}

func validateSubmission(sub Submission) error {
	// Chat intake arrives as free text; the marker check already
	// happened at the boundary.
	if strings.TrimSpace(sub.RawText) != "" {
		return nil
	}

	required := []struct {
		field string
		value string
	}{
		{"name", sub.Name},
		{"contact", sub.Contact},
		{"role", sub.Role},
		{"motivation", sub.Motivation},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return appErr.NewValidation("field %s is required", r.field)
		}
	}
	return nil
}

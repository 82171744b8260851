package notifier

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/vexeradubbing/applybot/internal/metrics"
	"github.com/vexeradubbing/applybot/internal/model"
	"github.com/vexeradubbing/applybot/internal/storage"
)

// Content is one rendered notification message.
type Content struct {
	Text string
	// AppID plus WithActions attach the approve/reject/details/delete
	// keyboard to the delivered message.
	AppID       string
	WithActions bool
}

// RenderFunc produces the message content for an application.
type RenderFunc func(app model.Application) Content

// Transport delivers and edits messages on the chat platform.
type Transport interface {
	Send(ctx context.Context, recipient int64, content Content) (model.MessageRef, error)
	Edit(ctx context.Context, ref model.MessageRef, content Content) error
}

// Notifier fans a notification out to every admin and remembers where
// each copy landed, so a later status change can be edited into every
// admin's view in place. Per-recipient failures are logged and
// contained; partial delivery is acceptable and never rolled back.
type Notifier struct {
	transport   Transport
	refs        storage.RefStorage
	workerLimit int
	logger      *slog.Logger
}

func New(transport Transport, refs storage.RefStorage, workerLimit int, logger *slog.Logger) *Notifier {
	if workerLimit <= 0 {
		workerLimit = 4
	}
	l := logger.With("layer", "notifier")
	return &Notifier{
		transport:   transport,
		refs:        refs,
		workerLimit: workerLimit,
		logger:      l,
	}
}

// SendToAll delivers the rendered application to every recipient and
// records a message ref per successful delivery. A repeat send to the
// same recipient replaces the previously recorded ref.
func (n *Notifier) SendToAll(ctx context.Context, app model.Application, recipients []int64, render RenderFunc) {
	content := render(app)

	eg, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, n.workerLimit)

	for _, recipient := range recipients {
		recipient := recipient
		sem <- struct{}{}
		eg.Go(func() error {
			defer func() { <-sem }()

			ref, err := n.transport.Send(ctx, recipient, content)
			if err != nil {
				// Contained: one unreachable admin must not block the rest.
				n.logger.Error("notification send failed",
					slog.String("application_id", app.ID),
					slog.Int64("recipient", recipient),
					slog.Any("error", err))
				metrics.NotificationDeliveries.WithLabelValues("send", "error").Inc()
				return nil
			}

			ref.ApplicationID = app.ID
			if err := n.refs.SaveRef(ctx, ref); err != nil {
				n.logger.Error("failed to record message ref",
					slog.String("application_id", app.ID),
					slog.Int64("recipient", recipient),
					slog.Any("error", err))
			}
			metrics.NotificationDeliveries.WithLabelValues("send", "ok").Inc()
			return nil
		})
	}
	eg.Wait()
}

// UpdateAll edits every recorded copy of the application's notification
// to the newly rendered content. No retry; failures are independent.
func (n *Notifier) UpdateAll(ctx context.Context, app model.Application, render RenderFunc) error {
	refs, err := n.refs.RefsByApplication(ctx, app.ID)
	if err != nil {
		return err
	}
	content := render(app)

	eg, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, n.workerLimit)

	for _, ref := range refs {
		ref := ref
		sem <- struct{}{}
		eg.Go(func() error {
			defer func() { <-sem }()

			if err := n.transport.Edit(ctx, ref, content); err != nil {
				n.logger.Error("notification edit failed",
					slog.String("application_id", ref.ApplicationID),
					slog.Int64("recipient", ref.RecipientID),
					slog.Any("error", err))
				metrics.NotificationDeliveries.WithLabelValues("edit", "error").Inc()
				return nil
			}
			metrics.NotificationDeliveries.WithLabelValues("edit", "ok").Inc()
			return nil
		})
	}
	return eg.Wait()
}

// Direct sends a one-off message to a single recipient without
// recording a ref. Used for applicant-facing decision notices.
func (n *Notifier) Direct(ctx context.Context, recipient int64, text string) error {
	_, err := n.transport.Send(ctx, recipient, Content{Text: text})
	return err
}

// Announce sends a plain broadcast to the recipients without recording
// refs. Best effort.
func (n *Notifier) Announce(ctx context.Context, recipients []int64, text string) {
	content := Content{Text: text}
	for _, recipient := range recipients {
		if _, err := n.transport.Send(ctx, recipient, content); err != nil {
			n.logger.Error("broadcast failed",
				slog.Int64("recipient", recipient),
				slog.Any("error", err))
		}
	}
}

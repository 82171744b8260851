package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	appErr "github.com/vexeradubbing/applybot/internal/errors"
	"github.com/vexeradubbing/applybot/internal/model"
	"github.com/vexeradubbing/applybot/internal/notifier"
	"github.com/vexeradubbing/applybot/internal/queue"
	"github.com/vexeradubbing/applybot/internal/service"
)

const helpText = `Admin command reference:

/apps - show pending applications
/approved - show approved applications
/rejected - show rejected applications
/review <id> - show one application
/approve <id> - approve an application
/reject <id> - reject an application

Application management buttons:
✅ Approve - accept the applicant into the team
❌ Reject - turn the application down
📝 Details - show the full application
🗑 Delete - remove the application from the system`

// Config holds the handler-side bot settings.
type Config struct {
	// Marker is the substring that turns a free-text message into an
	// application submission.
	Marker string
}

// Bot is the admin command and action surface on Telegram.
type Bot struct {
	api    *tele.Bot
	svc    service.ApplicationService
	fanout *notifier.Notifier
	intake *queue.IntakeQueue
	cfg    Config
	logger *slog.Logger
}

// NewAPI creates the underlying telebot instance. It is separate from
// New so the notifier transport can be wired onto the same instance
// before the handlers are attached.
func NewAPI(token string, pollPeriod time.Duration) (*tele.Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: pollPeriod},
	}

	api, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return api, nil
}

func New(
	api *tele.Bot,
	cfg Config,
	svc service.ApplicationService,
	fanout *notifier.Notifier,
	intake *queue.IntakeQueue,
	logger *slog.Logger,
) *Bot {
	b := &Bot{
		api:    api,
		svc:    svc,
		fanout: fanout,
		intake: intake,
		cfg:    cfg,
		logger: logger.With("layer", "bot"),
	}
	b.register()
	return b
}

// Start runs the long poller until Stop is called.
func (b *Bot) Start() {
	b.logger.Info("bot started", slog.String("username", b.api.Me.Username))
	b.api.Start()
}

func (b *Bot) Stop() {
	b.api.Stop()
}

func (b *Bot) register() {
	b.api.Handle("/start", b.handleStart)
	b.api.Handle("/help", b.handleHelp)
	b.api.Handle("/apps", b.listByStatus(model.StatusPending))
	b.api.Handle("/approved", b.listByStatus(model.StatusApproved))
	b.api.Handle("/rejected", b.listByStatus(model.StatusRejected))
	b.api.Handle("/review", b.handleReview)
	b.api.Handle("/approve", b.decideCommand(model.StatusApproved))
	b.api.Handle("/reject", b.decideCommand(model.StatusRejected))
	b.api.Handle(tele.OnText, b.handleText)
	b.api.Handle(tele.OnCallback, b.handleCallback)
}

func (b *Bot) actor(c tele.Context) model.Actor {
	sender := c.Sender()
	if sender == nil {
		return model.Actor{}
	}
	return model.Actor{ID: sender.ID, Name: sender.FirstName}
}

func (b *Bot) handleStart(c tele.Context) error {
	actor := b.actor(c)
	if !b.svc.IsAdmin(actor) {
		return c.Send("This bot is for dubbing team administrators only.")
	}
	return c.Send(fmt.Sprintf(
		"Hello, %s!\n\nAvailable commands:\n/apps - pending applications\n/approved - approved applications\n/rejected - rejected applications\n/help - command reference\n\nUse the buttons under each application to process it.",
		actor.Name))
}

func (b *Bot) handleHelp(c tele.Context) error {
	return c.Send(helpText)
}

// listByStatus sends the requester a fresh copy of every application in
// the bucket. Each send replaces the requester's recorded ref, so later
// decisions update the newest copy.
func (b *Bot) listByStatus(status model.Status) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := context.Background()
		actor := b.actor(c)

		apps, err := b.svc.List(ctx, status, actor)
		if err != nil {
			return c.Send(userMessage(err))
		}
		if len(apps) == 0 {
			return c.Send(fmt.Sprintf("No %s applications right now.", status))
		}

		for _, app := range apps {
			b.fanout.SendToAll(ctx, app, []int64{actor.ID}, notifier.RenderApplication)
		}
		return nil
	}
}

func (b *Bot) handleReview(c tele.Context) error {
	ctx := context.Background()
	actor := b.actor(c)

	id := strings.TrimSpace(c.Message().Payload)
	if id == "" {
		return c.Send("Usage: /review <id>")
	}

	app, err := b.svc.Get(ctx, id, actor)
	if err != nil {
		return c.Send(userMessage(err))
	}

	b.fanout.SendToAll(ctx, *app, []int64{actor.ID}, notifier.RenderApplication)
	return nil
}

func (b *Bot) decideCommand(outcome model.Status) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := context.Background()
		actor := b.actor(c)

		id := strings.TrimSpace(c.Message().Payload)
		if id == "" {
			return c.Send(fmt.Sprintf("Usage: /%s <id>", decisionVerb(outcome)))
		}

		var err error
		if outcome == model.StatusApproved {
			_, err = b.svc.Approve(ctx, id, actor)
		} else {
			_, err = b.svc.Reject(ctx, id, actor)
		}
		if err != nil {
			return c.Send(userMessage(err))
		}
		return c.Send(fmt.Sprintf("Application %s %s.", id, decisionVerb(outcome)+"d"))
	}
}

// handleText watches the stream for messages carrying the application
// marker and feeds them into the intake pipeline.
func (b *Bot) handleText(c tele.Context) error {
	msg := c.Message()
	if msg == nil {
		return nil
	}

	sub, ok := ParseIntake(msg.Text, b.cfg.Marker)
	if !ok {
		return nil
	}
	if msg.Sender != nil {
		sub.ApplicantChatID = msg.Sender.ID
	}

	ctx := context.Background()
	app, err := b.svc.Submit(ctx, sub, "chat")
	if err != nil {
		b.logger.Error("chat intake failed", slog.Any("error", err))
		return nil
	}

	if err := b.intake.Enqueue(*app); err != nil {
		b.logger.Error("failed to queue application for review",
			slog.String("id", app.ID), slog.Any("error", err))
	}
	return nil
}

// handleCallback answers every button press exactly once: errors as a
// callback alert, success as a plain ack after the pressed message is
// refreshed.
func (b *Bot) handleCallback(c tele.Context) error {
	ctx := context.Background()
	actor := b.actor(c)

	action, err := ParseAction(c.Callback().Data)
	if err != nil {
		b.logger.Warn("bad callback token",
			slog.String("data", c.Callback().Data), slog.Any("error", err))
		return c.Respond(&tele.CallbackResponse{Text: userMessage(err)})
	}

	switch action.Kind {
	case ActionApprove, ActionReject:
		var app *model.Application
		if action.Kind == ActionApprove {
			app, err = b.svc.Approve(ctx, action.AppID, actor)
		} else {
			app, err = b.svc.Reject(ctx, action.AppID, actor)
		}
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: userMessage(err)})
		}
		// The pressed copy may be older than the recorded ref; refresh
		// it directly so the presser always sees the outcome.
		b.editPressed(c, *app)
		return c.Respond()

	case ActionView:
		app, err := b.svc.Get(ctx, action.AppID, actor)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: userMessage(err)})
		}
		b.editPressed(c, *app)
		return c.Respond()

	case ActionDelete:
		if err := b.svc.Delete(ctx, action.AppID, actor); err != nil {
			return c.Respond(&tele.CallbackResponse{Text: userMessage(err)})
		}
		if err := c.Edit(fmt.Sprintf("Application %s deleted.", action.AppID)); err != nil {
			b.logger.Warn("failed to edit pressed message", slog.Any("error", err))
		}
		return c.Respond()
	}
	return c.Respond()
}

// editPressed re-renders the message the button lives under. The fan-out
// may have already edited it to the same content, which Telegram reports
// as an error; that case is fine and swallowed.
func (b *Bot) editPressed(c tele.Context, app model.Application) {
	content := notifier.RenderApplication(app)
	var err error
	if content.WithActions {
		err = c.Edit(content.Text, actionKeyboard(content.AppID))
	} else {
		err = c.Edit(content.Text)
	}
	if err != nil && !strings.Contains(err.Error(), "message is not modified") {
		b.logger.Warn("failed to edit pressed message",
			slog.String("id", app.ID), slog.Any("error", err))
	}
}

func decisionVerb(outcome model.Status) string {
	if outcome == model.StatusRejected {
		return "reject"
	}
	return "approve"
}

// userMessage maps service errors to replies shown in chat.
func userMessage(err error) string {
	switch {
	case appErr.IsPermissionDenied(err):
		return "You are not allowed to manage applications."
	case appErr.IsNotFound(err):
		return "Application not found."
	case appErr.IsConflict(err):
		return "The application is already in that state."
	case appErr.IsUnknownAction(err):
		return "Unknown action."
	case appErr.IsValidation(err):
		return "The request is malformed."
	default:
		return "Something went wrong, try again later."
	}
}

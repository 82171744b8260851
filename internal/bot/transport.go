package bot

import (
	"context"
	"strconv"

	tele "gopkg.in/telebot.v3"

	"github.com/vexeradubbing/applybot/internal/model"
	"github.com/vexeradubbing/applybot/internal/notifier"
)

// telegramTransport adapts the telebot API to the notifier's Transport
// interface. Message refs are (chat, message) pairs telebot can edit
// in place later.
type telegramTransport struct {
	api *tele.Bot
}

func NewTransport(api *tele.Bot) notifier.Transport {
	return &telegramTransport{api: api}
}

func (t *telegramTransport) Send(ctx context.Context, recipient int64, content notifier.Content) (model.MessageRef, error) {
	var opts []interface{}
	if content.WithActions {
		opts = append(opts, actionKeyboard(content.AppID))
	}

	msg, err := t.api.Send(tele.ChatID(recipient), content.Text, opts...)
	if err != nil {
		return model.MessageRef{}, err
	}
	return model.MessageRef{
		RecipientID: recipient,
		MessageID:   msg.ID,
	}, nil
}

func (t *telegramTransport) Edit(ctx context.Context, ref model.MessageRef, content notifier.Content) error {
	stored := tele.StoredMessage{
		MessageID: strconv.Itoa(ref.MessageID),
		ChatID:    ref.RecipientID,
	}

	var opts []interface{}
	if content.WithActions {
		opts = append(opts, actionKeyboard(content.AppID))
	}

	_, err := t.api.Edit(stored, content.Text, opts...)
	return err
}

// actionKeyboard builds the inline approve/reject/view/delete keyboard
// for a pending application.
func actionKeyboard(appID string) *tele.ReplyMarkup {
	return &tele.ReplyMarkup{
		InlineKeyboard: [][]tele.InlineButton{
			{
				{Text: "✅ Approve", Data: token(ActionApprove, appID)},
				{Text: "❌ Reject", Data: token(ActionReject, appID)},
			},
			{
				{Text: "📝 Details", Data: token(ActionView, appID)},
				{Text: "🗑 Delete", Data: token(ActionDelete, appID)},
			},
		},
	}
}

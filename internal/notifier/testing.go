package notifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/vexeradubbing/applybot/internal/model"
)

// FakeTransport is an in-memory Transport for tests. Sends and edits
// are recorded; individual recipients can be made to fail.
type FakeTransport struct {
	mu       sync.Mutex
	FailSend map[int64]bool
	FailEdit map[int64]bool

	sent   []SentMessage
	edits  []EditedMessage
	nextID int
}

type SentMessage struct {
	Recipient int64
	MessageID int
	Content   Content
}

type EditedMessage struct {
	Ref     model.MessageRef
	Content Content
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		FailSend: make(map[int64]bool),
		FailEdit: make(map[int64]bool),
	}
}

func (t *FakeTransport) Send(ctx context.Context, recipient int64, content Content) (model.MessageRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailSend[recipient] {
		return model.MessageRef{}, fmt.Errorf("send to %d failed", recipient)
	}
	t.nextID++
	t.sent = append(t.sent, SentMessage{
		Recipient: recipient,
		MessageID: t.nextID,
		Content:   content,
	})
	return model.MessageRef{RecipientID: recipient, MessageID: t.nextID}, nil
}

func (t *FakeTransport) Edit(ctx context.Context, ref model.MessageRef, content Content) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailEdit[ref.RecipientID] {
		return fmt.Errorf("edit for %d failed", ref.RecipientID)
	}
	t.edits = append(t.edits, EditedMessage{Ref: ref, Content: content})
	return nil
}

func (t *FakeTransport) Sent() []SentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SentMessage(nil), t.sent...)
}

func (t *FakeTransport) Edits() []EditedMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]EditedMessage(nil), t.edits...)
}

func (t *FakeTransport) SentTo(recipient int64) []SentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []SentMessage
	for _, msg := range t.sent {
		if msg.Recipient == recipient {
			out = append(out, msg)
		}
	}
	return out
}

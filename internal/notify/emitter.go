package notify

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	KindQuizAvailable = "quiz_available"
	KindQuizGraded    = "quiz_graded"
)

// Message is the (recipient, message, metadata) tuple handed to delivery.
type Message struct {
	ID          string            `json:"id"`
	RecipientID string            `json:"recipient_id"`
	Kind        string            `json:"kind"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	IsRead      bool              `json:"is_read"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Emitter enqueues one message for delivery.
type Emitter interface {
	Emit(ctx context.Context, m Message) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, m Message) error

func (f EmitterFunc) Emit(ctx context.Context, m Message) error { return f(ctx, m) }

// Multi emits to every emitter and joins their errors.
type Multi []Emitter

func (mu Multi) Emit(ctx context.Context, m Message) error {
	var errs []error
	for _, e := range mu {
		if err := e.Emit(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every message.
type Nop struct{}

func (Nop) Emit(context.Context, Message) error { return nil }

// FanOut emits one copy of build(recipient) per recipient. Failures are
// logged and dropped; it returns how many messages were accepted.
func FanOut(ctx context.Context, log logrus.FieldLogger, e Emitter, recipients []string, build func(recipient string) Message) int {
	sent := 0
	for _, r := range recipients {
		m := build(r)
		m.RecipientID = r
		if err := e.Emit(ctx, m); err != nil {
			log.WithFields(logrus.Fields{
				"recipient": r,
				"kind":      m.Kind,
			}).WithError(err).Warn("notification dropped")
			continue
		}
		sent++
	}
	return sent
}

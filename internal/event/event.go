// Package event carries study-activity notifications out of the request
// path. Events fan out to two sinks: an AMQP exchange for other services and
// an in-process hub that streams them to connected websocket clients.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published by the service.
const (
	TypeAnswerSubmitted  = "quiz.answer.submitted"
	TypeSessionCompleted = "quiz.session.completed"
	TypeSessionReset     = "quiz.session.reset"
	TypeQuestionSaved    = "question.saved"
	TypeQuestionUnsaved  = "question.unsaved"
)

// Event is a single activity notification. Payload carries type-specific
// fields and must be JSON-serializable.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	UserID    string         `json:"userId,omitempty"`
	ChapterID string         `json:"chapterId,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	At        time.Time      `json:"at"`
}

// New builds an event with a fresh id and the current time.
func New(eventType, userID, chapterID string, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		ChapterID: chapterID,
		Payload:   payload,
		At:        time.Now().UTC(),
	}
}

// Publisher delivers events to a sink. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// MultiPublisher fans an event out to several sinks, returning the first
// error after attempting all of them.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, e Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

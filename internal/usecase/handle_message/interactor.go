// Package handle_message passes every incoming chat message to the bus and the
// activity tracker before routing it as a command.
package handle_message

import (
	"context"
	"log/slog"

	"chatgate/internal/domain"
	"chatgate/internal/infrastructure/logging"
)

// Publisher receives every chat message before it is routed.
type Publisher interface {
	PublishMessage(msg domain.Message)
}

// Observer records chatter activity.
type Observer interface {
	Observe(ctx context.Context, msg domain.Message) error
}

type MessageRouter interface {
	Handle(ctx context.Context, msg domain.Message) error
}

type Interactor struct {
	router    MessageRouter
	observer  Observer
	publisher Publisher
	log       *slog.Logger
}

// NewInteractor wires the message pipeline; observer and publisher are optional.
func NewInteractor(router MessageRouter, observer Observer, publisher Publisher, log *slog.Logger) *Interactor {
	return &Interactor{
		router:    router,
		observer:  observer,
		publisher: publisher,
		log:       logging.Component(log, "handle_message"),
	}
}

// Handle publishes msg, records the sender and routes it. A failed activity
// update is logged and never stops the command.
func (uc *Interactor) Handle(ctx context.Context, msg domain.Message) error {
	if uc.publisher != nil {
		uc.publisher.PublishMessage(msg)
	}

	if uc.observer != nil {
		if err := uc.observer.Observe(ctx, msg); err != nil {
			uc.log.Warn("user activity not recorded",
				slog.String("user", msg.Username),
				slog.Any("error", err),
			)
		}
	}

	return uc.router.Handle(ctx, msg)
}

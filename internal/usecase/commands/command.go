package commands

import (
	"context"

	"chatgate/internal/domain"
)

// Handler runs a registered (non-custom) command once every gate passed.
type Handler interface {
	Handle(ctx context.Context, c *Context) error
}

type HandlerFunc func(ctx context.Context, c *Context) error

func (f HandlerFunc) Handle(ctx context.Context, c *Context) error {
	return f(ctx, c)
}

// Replier is the chat-send capability handed to handlers.
type Replier interface {
	Reply(ctx context.Context, msg domain.Message, text string) error
	Broadcast(ctx context.Context, msg domain.Message, text string) error
}

type Context struct {
	Event   *domain.CommandEvent
	Message domain.Message
	Out     Replier

	// Raw is the message without the prefix. Args are the subcommand
	// arguments when a subcommand is bound, the command arguments otherwise.
	Raw  string
	Args []string
}

func (c *Context) Reply(ctx context.Context, text string) error {
	return c.Out.Reply(ctx, c.Message, text)
}

func (c *Context) Broadcast(ctx context.Context, text string) error {
	return c.Out.Broadcast(ctx, c.Message, text)
}

package commands

import (
	"context"
)

func NewPingHandler() Handler {
	return HandlerFunc(func(ctx context.Context, c *Context) error {
		return c.Reply(ctx, "pong from "+string(c.Message.Platform))
	})
}

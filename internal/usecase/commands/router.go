package commands

import (
	"context"
	"strings"

	"chatgate/internal/domain"
)

// CommandDispatcher is what the router hands parsed events to.
type CommandDispatcher interface {
	Dispatch(ctx context.Context, ev *domain.CommandEvent) (Outcome, error)
}

// SenderLeveler resolves the permission level of a chatter.
type SenderLeveler interface {
	Level(ctx context.Context, msg domain.Message) int
}

// PrefixSource supplies the command prefix for each message.
type PrefixSource interface {
	Prefix(ctx context.Context) string
}

type Router struct {
	prefix     string
	prefixes   PrefixSource
	groups     SenderLeveler
	dispatcher CommandDispatcher
}

func NewRouter(prefix string, groups SenderLeveler, dispatcher CommandDispatcher) *Router {
	if prefix == "" {
		prefix = "!"
	}
	return &Router{
		prefix:     prefix,
		groups:     groups,
		dispatcher: dispatcher,
	}
}

// UsePrefixSource makes Handle look the prefix up per message, falling back
// to the fixed prefix when src returns an empty one.
func (r *Router) UsePrefixSource(src PrefixSource) {
	r.prefixes = src
}

// Parse builds the command event for msg with the fixed prefix; ok is false
// when msg is not a command invocation.
func (r *Router) Parse(msg domain.Message) (*domain.CommandEvent, bool) {
	return parse(msg, r.prefix)
}

func (r *Router) currentPrefix(ctx context.Context) string {
	if r.prefixes == nil {
		return r.prefix
	}
	if prefix := r.prefixes.Prefix(ctx); prefix != "" {
		return prefix
	}
	return r.prefix
}

func parse(msg domain.Message, prefix string) (*domain.CommandEvent, bool) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil, false
	}

	if !strings.HasPrefix(text, prefix) {
		return nil, false
	}

	withoutPrefix := strings.TrimPrefix(text, prefix)
	parts := strings.Fields(withoutPrefix)
	if len(parts) == 0 {
		return nil, false
	}

	return &domain.CommandEvent{
		Command: strings.ToLower(parts[0]),
		Args:    parts[1:],
		Sender:  msg.Username,
		Prefix:  prefix,
		Message: msg,
	}, true
}

func (r *Router) Handle(ctx context.Context, msg domain.Message) error {
	ev, ok := parse(msg, r.currentPrefix(ctx))
	if !ok {
		return nil
	}

	ev.SenderLevel = domain.LevelUser
	if r.groups != nil {
		ev.SenderLevel = r.groups.Level(ctx, msg)
	}

	_, err := r.dispatcher.Dispatch(ctx, ev)
	return err
}

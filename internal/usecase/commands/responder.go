package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"chatgate/internal/domain"
	"chatgate/internal/infrastructure/logging"
)

// ReplyModes is consulted on every reply.
type ReplyModes interface {
	ResponseMention(ctx context.Context) bool
	WhisperMode(ctx context.Context) bool
}

// ResponderConfig is a fixed ReplyModes.
type ResponderConfig struct {
	// Mention drops the "user: " prefix from replies.
	Mention bool
	// Whisper sends replies privately when the sender supports it.
	Whisper bool
}

func (c ResponderConfig) ResponseMention(context.Context) bool { return c.Mention }
func (c ResponderConfig) WhisperMode(context.Context) bool { return c.Whisper }

// Responder implements Replier on top of an outgoing message port.
type Responder struct {
	out   domain.OutgoingMessagePort
	modes ReplyModes
	log   *slog.Logger
}

func NewResponder(out domain.OutgoingMessagePort, modes ReplyModes, log *slog.Logger) *Responder {
	if modes == nil {
		modes = ResponderConfig{}
	}
	return &Responder{
		out:   out,
		modes: modes,
		log:   logging.Component(log, "responder"),
	}
}

func (r *Responder) Reply(ctx context.Context, msg domain.Message, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if r.modes.WhisperMode(ctx) {
		sent, err := r.whisper(ctx, msg, text)
		if sent || err != nil {
			return err
		}
	}

	if !r.modes.ResponseMention(ctx) && msg.Username != "" {
		text = msg.Username + ": " + text
	}
	return r.out.SendMessage(ctx, msg.Platform, msg.ChannelID, text)
}

func (r *Responder) Broadcast(ctx context.Context, msg domain.Message, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return r.out.SendMessage(ctx, msg.Platform, msg.ChannelID, text)
}

// whisper reports sent=false when the reply should go to the channel instead.
func (r *Responder) whisper(ctx context.Context, msg domain.Message, text string) (bool, error) {
	whisperer, ok := r.out.(domain.WhisperPort)
	if !ok || msg.UserID == "" {
		r.log.Debug("cannot whisper, replying in channel", "platform", msg.Platform, "user", msg.Username)
		return false, nil
	}

	err := whisperer.Whisper(ctx, msg.Platform, msg.UserID, text)
	if errors.Is(err, domain.ErrWhisperUnavailable) {
		r.log.Debug("whispers unavailable, replying in channel", "platform", msg.Platform)
		return false, nil
	}
	return err == nil, err
}

var (
	_ Replier    = (*Responder)(nil)
	_ ReplyModes = ResponderConfig{}
)

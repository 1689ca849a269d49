package outs

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"chatgate/internal/domain"
)

// RateLimitedSender keeps outgoing traffic under the platform message limit.
type RateLimitedSender struct {
	next    Sender
	limiter *rate.Limiter
}

func NewRateLimitedSender(next Sender, perSecond float64, burst int) *RateLimitedSender {
	return &RateLimitedSender{
		next:    next,
		limiter: newLimiter(perSecond, burst),
	}
}

func (s *RateLimitedSender) SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("outs: rate limit: %w", err)
	}
	return s.next.SendMessage(ctx, platform, channelID, text)
}

// RateLimitedWhisperer applies its own budget to whispers, which platforms
// limit separately from chat messages.
type RateLimitedWhisperer struct {
	next    domain.WhisperPort
	limiter *rate.Limiter
}

func NewRateLimitedWhisperer(next domain.WhisperPort, perSecond float64, burst int) *RateLimitedWhisperer {
	return &RateLimitedWhisperer{
		next:    next,
		limiter: newLimiter(perSecond, burst),
	}
}

func (w *RateLimitedWhisperer) Whisper(ctx context.Context, platform domain.Platform, toUserID, text string) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("outs: whisper rate limit: %w", err)
	}
	return w.next.Whisper(ctx, platform, toUserID, text)
}

// newLimiter treats a non-positive rate as unlimited.
func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return rate.NewLimiter(limit, burst)
}

var (
	_ domain.OutgoingMessagePort = (*RateLimitedSender)(nil)
	_ domain.WhisperPort         = (*RateLimitedWhisperer)(nil)
)

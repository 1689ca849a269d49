// Package outs routes outgoing chat messages to the platform senders.
package outs

import (
	"context"
	"fmt"
	"sync"

	"chatgate/internal/domain"
)

// Sender is implemented by the output adapters.
type Sender interface {
	SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error
}

// MultiSender routes messages to the sender registered for their platform.
// Whispers go through a separate per-platform whisperer since chat
// connections cannot deliver them.
type MultiSender struct {
	mu         sync.RWMutex
	senders    map[domain.Platform]Sender
	whisperers map[domain.Platform]domain.WhisperPort
}

func NewMultiSender() *MultiSender {
	return &MultiSender{
		senders:    make(map[domain.Platform]Sender),
		whisperers: make(map[domain.Platform]domain.WhisperPort),
	}
}

func (m *MultiSender) Register(platform domain.Platform, sender Sender) {
	if m == nil || sender == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.senders[platform] = sender
}

func (m *MultiSender) RegisterWhisperer(platform domain.Platform, whisperer domain.WhisperPort) {
	if m == nil || whisperer == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.whisperers[platform] = whisperer
}

// Unregister removes both the sender and the whisperer of platform.
func (m *MultiSender) Unregister(platform domain.Platform) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.senders, platform)
	delete(m.whisperers, platform)
}

func (m *MultiSender) SendMessage(ctx context.Context, platform domain.Platform, channelID, text string) error {
	sender, err := m.lookup(platform)
	if err != nil {
		return err
	}
	return sender.SendMessage(ctx, platform, channelID, text)
}

// Whisper delegates to the platform whisperer. Without one the error wraps
// domain.ErrWhisperUnavailable.
func (m *MultiSender) Whisper(ctx context.Context, platform domain.Platform, toUserID, text string) error {
	if m == nil {
		return fmt.Errorf("outs: no multi sender configured")
	}
	m.mu.RLock()
	whisperer, ok := m.whisperers[platform]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("outs: platform %s: %w", platform, domain.ErrWhisperUnavailable)
	}
	return whisperer.Whisper(ctx, platform, toUserID, text)
}

func (m *MultiSender) lookup(platform domain.Platform) (Sender, error) {
	if m == nil {
		return nil, fmt.Errorf("outs: no multi sender configured")
	}
	m.mu.RLock()
	sender, ok := m.senders[platform]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("outs: no sender registered for platform %s", platform)
	}
	return sender, nil
}

var (
	_ domain.OutgoingMessagePort = (*MultiSender)(nil)
	_ domain.WhisperPort         = (*MultiSender)(nil)
)

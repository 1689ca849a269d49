package commands

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"chatgate/internal/domain"
)

// globalCaller keys cooldown records shared by every chatter.
const globalCaller = ""

type cooldownKey struct {
	command string
	sub     string
	caller  string
}

type cooldownRecord struct {
	firedAt  time.Time
	duration time.Duration
}

// CooldownTracker keeps the last-fired time per (command, subcommand, scope).
// Concurrent starts for one key are last write wins.
type CooldownTracker struct {
	settings *Settings
	global   bool
	now      func() time.Time

	mu      sync.Mutex
	records map[cooldownKey]cooldownRecord
}

// NewCooldownTracker builds a tracker; global is the bot-wide scope used by
// commands whose cooldown_scope is empty. A nil now uses time.Now.
func NewCooldownTracker(settings *Settings, global bool, now func() time.Time) *CooldownTracker {
	if now == nil {
		now = time.Now
	}
	return &CooldownTracker{
		settings: settings,
		global:   global,
		now:      now,
		records:  make(map[cooldownKey]cooldownRecord),
	}
}

// IsOnCooldown returns the remaining whole seconds, rounded up, or 0 when the
// (sub)command is ready for caller.
func (t *CooldownTracker) IsOnCooldown(ctx context.Context, cmd, caller, sub string) (int, error) {
	row, err := t.settings.Get(ctx, cmd, sub)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	rec, ok := t.records[t.key(row, cmd, caller, sub)]
	t.mu.Unlock()
	if !ok {
		return 0, nil
	}

	remaining := time.Duration(row.Cooldown)*time.Second - t.now().Sub(rec.firedAt)
	if remaining <= 0 {
		return 0, nil
	}
	return int((remaining + time.Second - 1) / time.Second), nil
}

// Start records now as the last-fired time for the caller's scope.
func (t *CooldownTracker) Start(ctx context.Context, cmd, caller, sub string) error {
	row, err := t.settings.Get(ctx, cmd, sub)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[t.key(row, cmd, caller, sub)] = cooldownRecord{
		firedAt:  t.now(),
		duration: time.Duration(row.Cooldown) * time.Second,
	}
	return nil
}

// LastFired reports when the scope key of caller was last started.
func (t *CooldownTracker) LastFired(ctx context.Context, cmd, caller, sub string) (time.Time, bool, error) {
	row, err := t.settings.Get(ctx, cmd, sub)
	if err != nil {
		return time.Time{}, false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[t.key(row, cmd, caller, sub)]
	return rec.firedAt, ok, nil
}

// Sweep drops records whose cooldown has elapsed by now and returns how many
// were removed. The cooldown is read again from settings, so a record started
// before the cooldown was raised lives until the raised cooldown has passed.
func (t *CooldownTracker) Sweep(ctx context.Context, now time.Time) int {
	t.mu.Lock()
	candidates := make(map[cooldownKey]cooldownRecord)
	for key, rec := range t.records {
		if now.Sub(rec.firedAt) >= rec.duration {
			candidates[key] = rec
		}
	}
	t.mu.Unlock()

	removed := 0
	for key, rec := range candidates {
		var current time.Duration
		row, err := t.settings.Get(ctx, key.command, key.sub)
		switch {
		case errors.Is(err, domain.ErrUnknownCommand), errors.Is(err, domain.ErrUnknownSubcommand):
			// unloaded, nothing left to guard
		case err != nil:
			continue
		default:
			current = time.Duration(row.Cooldown) * time.Second
		}

		t.mu.Lock()
		stored, ok := t.records[key]
		switch {
		case !ok || !stored.firedAt.Equal(rec.firedAt):
			// restarted since the scan
		case now.Sub(rec.firedAt) < current:
			stored.duration = current
			t.records[key] = stored
		default:
			delete(t.records, key)
			removed++
		}
		t.mu.Unlock()
	}
	return removed
}

func (t *CooldownTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

func (t *CooldownTracker) key(row domain.CommandSettings, cmd, caller, sub string) cooldownKey {
	key := cooldownKey{
		command: normalizeCommandName(cmd),
		sub:     normalizeCommandName(sub),
		caller:  strings.ToLower(strings.TrimSpace(caller)),
	}
	if t.isGlobal(row.CooldownScope) {
		key.caller = globalCaller
	}
	return key
}

func (t *CooldownTracker) isGlobal(scope domain.CooldownScope) bool {
	switch scope {
	case domain.CooldownScopeGlobal:
		return true
	case domain.CooldownScopeUser:
		return false
	default:
		return t.global
	}
}

// Package users records chatter activity.
package users

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"chatgate/internal/domain"
	"chatgate/internal/infrastructure/logging"
)

const DefaultFollowRecheck = 30 * time.Minute

type Store interface {
	TouchUser(ctx context.Context, name string, mod bool, seen time.Time) error
	SetFollowing(ctx context.Context, name string, following bool) error
}

// Tracker stamps every chatter as seen and refreshes their follow status at
// most once per recheck interval.
type Tracker struct {
	store     Store
	followers domain.FollowerChecker
	recheck   time.Duration
	now       func() time.Time
	log       *slog.Logger

	mu      sync.Mutex
	checked map[string]time.Time
	pending sync.WaitGroup
}

// NewTracker builds a tracker; followers may be nil when no Helix credentials
// are configured.
func NewTracker(store Store, followers domain.FollowerChecker, recheck time.Duration, log *slog.Logger) *Tracker {
	if recheck <= 0 {
		recheck = DefaultFollowRecheck
	}
	return &Tracker{
		store:     store,
		followers: followers,
		recheck:   recheck,
		now:       time.Now,
		log:       logging.Component(log, "users"),
		checked:   make(map[string]time.Time),
	}
}

func (t *Tracker) Observe(ctx context.Context, msg domain.Message) error {
	name := strings.ToLower(strings.TrimSpace(msg.Username))
	if name == "" {
		return nil
	}

	mod := msg.IsPlatformMod || msg.IsPlatformOwner || msg.IsPlatformAdmin
	if err := t.store.TouchUser(ctx, name, mod, t.now()); err != nil {
		return err
	}

	if t.followers != nil && msg.UserID != "" && t.due(name) {
		t.pending.Add(1)
		go func() {
			defer t.pending.Done()
			t.refreshFollow(context.WithoutCancel(ctx), name, msg.UserID)
		}()
	}
	return nil
}

// Wait blocks until background follow refreshes finish.
func (t *Tracker) Wait() {
	t.pending.Wait()
}

func (t *Tracker) due(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.checked[name]; ok && now.Sub(last) < t.recheck {
		return false
	}
	t.checked[name] = now
	return true
}

func (t *Tracker) refreshFollow(ctx context.Context, name, userID string) {
	following, err := t.followers.IsFollower(ctx, userID)
	if err != nil {
		t.log.Warn("follower check failed", "user", name, "error", err)
		t.mu.Lock()
		delete(t.checked, name)
		t.mu.Unlock()
		return
	}
	if err := t.store.SetFollowing(ctx, name, following); err != nil {
		t.log.Warn("store follow status failed", "user", name, "error", err)
	}
}

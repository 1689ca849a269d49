// Package points keeps per-user point balances.
package points

import (
	"context"
	"fmt"
	"strings"

	"chatgate/internal/domain"
	"chatgate/internal/keylock"
)

// Store is the persistence the ledger needs.
type Store interface {
	Points(ctx context.Context, name string) (int64, error)
	DebitPoints(ctx context.Context, name string, amount int64) (bool, error)
	CreditPoints(ctx context.Context, name string, amount int64) error
}

// Ledger serializes operations per user; different users never contend.
type Ledger struct {
	store Store
	locks *keylock.Map
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, locks: keylock.New()}
}

// Get returns 0 for unknown users without creating them.
func (l *Ledger) Get(ctx context.Context, user string) (int64, error) {
	user = normalizeUser(user)
	if user == "" {
		return 0, nil
	}

	unlock := l.locks.Lock(user)
	defer unlock()

	points, err := l.store.Points(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("points: get %s: %w", user, err)
	}
	return points, nil
}

// Sub removes amount when the balance covers it. It returns false and leaves
// the balance alone otherwise.
func (l *Ledger) Sub(ctx context.Context, user string, amount int64) (bool, error) {
	if amount < 0 {
		return false, domain.ErrNegativeAmount
	}
	user = normalizeUser(user)
	if user == "" {
		return false, fmt.Errorf("points: empty user")
	}

	unlock := l.locks.Lock(user)
	defer unlock()

	balance, err := l.store.Points(ctx, user)
	if err != nil {
		return false, fmt.Errorf("points: sub %s: %w", user, err)
	}
	if amount > balance {
		return false, nil
	}
	if amount == 0 {
		return true, nil
	}

	ok, err := l.store.DebitPoints(ctx, user, amount)
	if err != nil {
		return false, fmt.Errorf("points: sub %s: %w", user, err)
	}
	return ok, nil
}

// Add credits amount, creating the user when needed.
func (l *Ledger) Add(ctx context.Context, user string, amount int64) (bool, error) {
	if amount < 0 {
		return false, domain.ErrNegativeAmount
	}
	user = normalizeUser(user)
	if user == "" {
		return false, fmt.Errorf("points: empty user")
	}

	unlock := l.locks.Lock(user)
	defer unlock()

	if err := l.store.CreditPoints(ctx, user, amount); err != nil {
		return false, fmt.Errorf("points: add %s: %w", user, err)
	}
	return true, nil
}

func normalizeUser(user string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(user)), "@")
}

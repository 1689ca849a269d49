package domain

import (
	"context"
	"time"
)

type User struct {
	Name       string
	Permission *int
	Mod        bool
	Following  bool
	Seen       time.Time
	Points     int64
	Time       int64
	Rank       int
}

type UserRepository interface {
	// Points returns 0 for unknown users and never creates a row.
	Points(ctx context.Context, name string) (int64, error)
	// DebitPoints subtracts amount only when the balance covers it.
	DebitPoints(ctx context.Context, name string, amount int64) (bool, error)
	CreditPoints(ctx context.Context, name string, amount int64) error

	// UserPermission returns nil when the user has no explicit group override.
	UserPermission(ctx context.Context, name string) (*int, error)
	TouchUser(ctx context.Context, name string, mod bool, seen time.Time) error
	SetFollowing(ctx context.Context, name string, following bool) error
	ActiveSince(ctx context.Context, since time.Time) ([]string, error)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chatgate/internal/domain"
)

func (s *Store) Points(ctx context.Context, name string) (int64, error) {
	const query = `SELECT points FROM users WHERE name = ? LIMIT 1;`

	var points int64
	if err := s.db.GetContext(ctx, &points, query, normalizeName(name)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("sqlite: get points: %w", err)
	}
	return points, nil
}

func (s *Store) DebitPoints(ctx context.Context, name string, amount int64) (bool, error) {
	if amount < 0 {
		return false, domain.ErrNegativeAmount
	}

	const stmt = `UPDATE users SET points = points - ? WHERE name = ? AND points >= ?;`
	res, err := s.db.ExecContext(ctx, stmt, amount, normalizeName(name), amount)
	if err != nil {
		return false, fmt.Errorf("sqlite: debit points: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: debit points rows: %w", err)
	}
	return n == 1, nil
}

func (s *Store) CreditPoints(ctx context.Context, name string, amount int64) error {
	if amount < 0 {
		return domain.ErrNegativeAmount
	}

	const stmt = `
INSERT INTO users (name, points)
VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET
	points = points + excluded.points;
`
	if _, err := s.db.ExecContext(ctx, stmt, normalizeName(name), amount); err != nil {
		return fmt.Errorf("sqlite: credit points: %w", err)
	}
	return nil
}

func (s *Store) UserPermission(ctx context.Context, name string) (*int, error) {
	const query = `SELECT permission FROM users WHERE name = ? LIMIT 1;`

	var level sql.NullInt64
	if err := s.db.GetContext(ctx, &level, query, normalizeName(name)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: get user permission: %w", err)
	}
	if !level.Valid {
		return nil, nil
	}
	v := int(level.Int64)
	return &v, nil
}

// SetUserPermission stores an explicit group level for the user; nil clears it.
func (s *Store) SetUserPermission(ctx context.Context, name string, level *int) error {
	const stmt = `
INSERT INTO users (name, permission)
VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET
	permission = excluded.permission;
`
	var value any
	if level != nil {
		value = *level
	}
	if _, err := s.db.ExecContext(ctx, stmt, normalizeName(name), value); err != nil {
		return fmt.Errorf("sqlite: set user permission: %w", err)
	}
	return nil
}

func (s *Store) TouchUser(ctx context.Context, name string, mod bool, seen time.Time) error {
	const stmt = `
INSERT INTO users (name, mod, seen)
VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	mod = excluded.mod,
	seen = excluded.seen;
`
	if _, err := s.db.ExecContext(ctx, stmt, normalizeName(name), mod, seen.Unix()); err != nil {
		return fmt.Errorf("sqlite: touch user: %w", err)
	}
	return nil
}

func (s *Store) SetFollowing(ctx context.Context, name string, following bool) error {
	const stmt = `UPDATE users SET following = ? WHERE name = ?;`
	if _, err := s.db.ExecContext(ctx, stmt, following, normalizeName(name)); err != nil {
		return fmt.Errorf("sqlite: set following: %w", err)
	}
	return nil
}

func (s *Store) ActiveSince(ctx context.Context, since time.Time) ([]string, error) {
	const query = `SELECT name FROM users WHERE seen >= ? ORDER BY name;`

	var names []string
	if err := s.db.SelectContext(ctx, &names, query, since.Unix()); err != nil {
		return nil, fmt.Errorf("sqlite: active users: %w", err)
	}
	return names, nil
}

func (s *Store) GetUser(ctx context.Context, name string) (*domain.User, error) {
	const query = `
SELECT name, permission, mod, following, seen, points, time, rank
FROM users
WHERE name = ?
LIMIT 1;
`
	var row struct {
		Name       string        `db:"name"`
		Permission sql.NullInt64 `db:"permission"`
		Mod        bool          `db:"mod"`
		Following  bool          `db:"following"`
		Seen       int64         `db:"seen"`
		Points     int64         `db:"points"`
		Time       int64         `db:"time"`
		Rank       int           `db:"rank"`
	}
	if err := s.db.GetContext(ctx, &row, query, normalizeName(name)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: get user: %w", err)
	}

	user := &domain.User{
		Name:      row.Name,
		Mod:       row.Mod,
		Following: row.Following,
		Points:    row.Points,
		Time:      row.Time,
		Rank:      row.Rank,
	}
	if row.Seen > 0 {
		user.Seen = time.Unix(row.Seen, 0)
	}
	if row.Permission.Valid {
		v := int(row.Permission.Int64)
		user.Permission = &v
	}
	return user, nil
}

var _ domain.UserRepository = (*Store)(nil)

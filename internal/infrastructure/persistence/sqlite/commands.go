package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"chatgate/internal/domain"
)

type commandRow struct {
	Name          string         `db:"name"`
	Parent        string         `db:"parent"`
	Module        sql.NullString `db:"module"`
	Enabled       bool           `db:"status"`
	Permission    int            `db:"permission"`
	Cooldown      int            `db:"cooldown"`
	CooldownScope string         `db:"cooldown_scope"`
	Price         int64          `db:"price"`
	Response      sql.NullString `db:"response"`
}

func (r commandRow) toDomain() domain.CommandSettings {
	return domain.CommandSettings{
		Name:          r.Name,
		Parent:        r.Parent,
		Module:        r.Module.String,
		Enabled:       r.Enabled,
		Permission:    r.Permission,
		Cooldown:      r.Cooldown,
		CooldownScope: domain.ParseCooldownScope(r.CooldownScope),
		Price:         r.Price,
		Response:      r.Response.String,
	}
}

func (s *Store) EnsureCommand(ctx context.Context, cmd domain.CommandSettings) error {
	name := normalizeName(cmd.Name)
	if name == "" {
		return fmt.Errorf("sqlite: empty command name")
	}

	if cmd.Parent == "" {
		const stmt = `
INSERT INTO commands (name, cooldown, permission, status, price, module, response, cooldown_scope)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO NOTHING;
`
		_, err := s.db.ExecContext(ctx, stmt,
			name, cmd.Cooldown, cmd.Permission, cmd.Enabled, cmd.Price,
			cmd.Module, nullString(cmd.Response), string(cmd.CooldownScope))
		if err != nil {
			return fmt.Errorf("sqlite: ensure command: %w", err)
		}
		return nil
	}

	const stmt = `
INSERT INTO subcommands (name, cooldown, permission, status, price, module, parent, cooldown_scope)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name, module) DO NOTHING;
`
	_, err := s.db.ExecContext(ctx, stmt,
		name, cmd.Cooldown, cmd.Permission, cmd.Enabled, cmd.Price,
		cmd.Module, normalizeName(cmd.Parent), string(cmd.CooldownScope))
	if err != nil {
		return fmt.Errorf("sqlite: ensure subcommand: %w", err)
	}
	return nil
}

func (s *Store) GetCommand(ctx context.Context, name, sub string) (*domain.CommandSettings, error) {
	var (
		row commandRow
		err error
	)

	if sub == "" {
		const query = `
SELECT name, '' AS parent, module, status, permission, cooldown, cooldown_scope, price, response
FROM commands
WHERE name = ?
LIMIT 1;
`
		err = s.db.GetContext(ctx, &row, query, normalizeName(name))
	} else {
		const query = `
SELECT name, parent, module, status, permission, cooldown, cooldown_scope, price, NULL AS response
FROM subcommands
WHERE name = ? AND parent = ?
LIMIT 1;
`
		err = s.db.GetContext(ctx, &row, query, normalizeName(sub), normalizeName(name))
	}

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: get command: %w", err)
	}

	out := row.toDomain()
	return &out, nil
}

func (s *Store) UpdateCommand(ctx context.Context, name, sub string, patch domain.CommandPatch) error {
	var (
		sets []string
		args []any
	)
	if patch.Enabled != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Enabled)
	}
	if patch.Permission != nil {
		sets = append(sets, "permission = ?")
		args = append(args, *patch.Permission)
	}
	if patch.Cooldown != nil {
		sets = append(sets, "cooldown = ?")
		args = append(args, *patch.Cooldown)
	}
	if patch.CooldownScope != nil {
		sets = append(sets, "cooldown_scope = ?")
		args = append(args, string(*patch.CooldownScope))
	}
	if patch.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *patch.Price)
	}
	if len(sets) == 0 {
		return nil
	}

	var stmt string
	if sub == "" {
		stmt = "UPDATE commands SET " + strings.Join(sets, ", ") + " WHERE name = ?;"
		args = append(args, normalizeName(name))
	} else {
		stmt = "UPDATE subcommands SET " + strings.Join(sets, ", ") + " WHERE name = ? AND parent = ?;"
		args = append(args, normalizeName(sub), normalizeName(name))
	}

	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("sqlite: update command: %w", err)
	}
	return nil
}

// Custom command storage

func (s *Store) SaveCustomCommand(ctx context.Context, name, response string) error {
	name = normalizeName(name)
	if name == "" {
		return fmt.Errorf("sqlite: empty command name")
	}

	const stmt = `
INSERT INTO commands (name, module, response, status)
VALUES (?, ?, ?, 1)
ON CONFLICT(name) DO UPDATE SET
	response=excluded.response
WHERE commands.module = excluded.module;
`
	res, err := s.db.ExecContext(ctx, stmt, name, domain.CustomModule, response)
	if err != nil {
		return fmt.Errorf("sqlite: save custom command: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: save custom command: %w", err)
	}
	// the row belongs to a module command
	if n == 0 {
		return fmt.Errorf("sqlite: save custom command %q: %w", name, domain.ErrReservedName)
	}
	return nil
}

func (s *Store) ListCustomCommands(ctx context.Context) ([]domain.CommandSettings, error) {
	const query = `
SELECT name, '' AS parent, module, status, permission, cooldown, cooldown_scope, price, response
FROM commands
WHERE module = ?
ORDER BY name;
`
	var rows []commandRow
	if err := s.db.SelectContext(ctx, &rows, query, domain.CustomModule); err != nil {
		return nil, fmt.Errorf("sqlite: list custom commands: %w", err)
	}

	out := make([]domain.CommandSettings, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) DeleteCustomCommand(ctx context.Context, name string) error {
	const stmt = `DELETE FROM commands WHERE name = ? AND module = ?;`
	if _, err := s.db.ExecContext(ctx, stmt, normalizeName(name), domain.CustomModule); err != nil {
		return fmt.Errorf("sqlite: delete custom command: %w", err)
	}
	return nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func nullString(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

var _ domain.CommandRepository = (*Store)(nil)

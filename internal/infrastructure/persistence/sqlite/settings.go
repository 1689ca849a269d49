package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"chatgate/internal/domain"
)

func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM settings WHERE key = ? LIMIT 1;`

	var value string
	if err := s.db.GetContext(ctx, &value, query, strings.TrimSpace(key)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("sqlite: get setting: %w", err)
	}
	return value, true, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("sqlite: empty setting key")
	}

	const stmt = `
INSERT INTO settings (key, value)
VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET
	value = excluded.value;
`
	if _, err := s.db.ExecContext(ctx, stmt, key, value); err != nil {
		return fmt.Errorf("sqlite: set setting: %w", err)
	}
	return nil
}

func (s *Store) GetExtensionSetting(ctx context.Context, kind domain.ExtensionKind, extension, key string) (string, bool, error) {
	const query = `
SELECT value
FROM extension_settings
WHERE key = ? AND extension = ? AND type = ?
LIMIT 1;
`
	var value string
	err := s.db.GetContext(ctx, &value, query, strings.TrimSpace(key), normalizeName(extension), string(kind))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("sqlite: get extension setting: %w", err)
	}
	return value, true, nil
}

func (s *Store) SetExtensionSetting(ctx context.Context, kind domain.ExtensionKind, extension, key, value string) error {
	key = strings.TrimSpace(key)
	extension = normalizeName(extension)
	if key == "" || extension == "" {
		return fmt.Errorf("sqlite: extension setting needs an extension and a key")
	}

	const stmt = `
INSERT INTO extension_settings (key, value, extension, type)
VALUES (?, ?, ?, ?)
ON CONFLICT(key, extension, type) DO UPDATE SET
	value = excluded.value;
`
	if _, err := s.db.ExecContext(ctx, stmt, key, value, extension, string(kind)); err != nil {
		return fmt.Errorf("sqlite: set extension setting: %w", err)
	}
	return nil
}

var _ domain.SettingsRepository = (*Store)(nil)

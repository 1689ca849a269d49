package commands

import (
	"context"

	"chatgate/internal/domain"
)

// Authorized reports whether a sender at senderLevel may run something that
// requires required. Lower levels are more privileged and equal levels pass.
func Authorized(senderLevel, required int) bool {
	return senderLevel <= required
}

// RequiredLevel reads the permission level of sub, or of cmd when sub is empty.
func (s *Settings) RequiredLevel(ctx context.Context, cmd, sub string) (int, error) {
	row, err := s.Get(ctx, cmd, sub)
	if err != nil {
		return domain.DefaultPermissionLevel, err
	}
	return row.Permission, nil
}

// SetRequiredLevel persists level and returns false when the (sub)command is
// not registered.
func (s *Settings) SetRequiredLevel(ctx context.Context, cmd string, level int, sub string) (bool, error) {
	return s.update(ctx, cmd, sub, domain.CommandPatch{Permission: &level})
}

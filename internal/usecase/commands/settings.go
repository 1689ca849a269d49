package commands

import (
	"context"
	"fmt"

	"chatgate/internal/domain"
)

// Settings reads and writes the persisted knobs of registered commands:
// enabled flag, permission level, cooldown and price.
type Settings struct {
	registry *Registry
	repo     domain.CommandRepository
}

func NewSettings(registry *Registry, repo domain.CommandRepository) *Settings {
	return &Settings{registry: registry, repo: repo}
}

// Get returns the stored row of cmd (or of its subcommand sub). A registered
// command without a row yet reports the defaults.
func (s *Settings) Get(ctx context.Context, cmd, sub string) (domain.CommandSettings, error) {
	cmd = normalizeCommandName(cmd)
	sub = normalizeCommandName(sub)

	if err := s.ensureExists(cmd, sub); err != nil {
		return domain.CommandSettings{}, err
	}

	row, err := s.repo.GetCommand(ctx, cmd, sub)
	if err != nil {
		return domain.CommandSettings{}, fmt.Errorf("settings: get %s: %w", label(cmd, sub), err)
	}
	if row != nil {
		return *row, nil
	}

	module := domain.CustomModule
	if !s.registry.IsCustom(cmd) {
		if module, err = s.registry.Module(cmd); err != nil {
			return domain.CommandSettings{}, err
		}
	}
	if sub == "" {
		return domain.DefaultCommandSettings(cmd, "", module), nil
	}
	return domain.DefaultCommandSettings(sub, cmd, module), nil
}

func (s *Settings) IsEnabled(ctx context.Context, cmd, sub string) (bool, error) {
	row, err := s.Get(ctx, cmd, sub)
	if err != nil {
		return false, err
	}
	return row.Enabled, nil
}

func (s *Settings) Price(ctx context.Context, cmd, sub string) (int64, error) {
	row, err := s.Get(ctx, cmd, sub)
	if err != nil {
		return 0, err
	}
	return row.Price, nil
}

// Enable and Disable return false when the (sub)command is not registered.
func (s *Settings) Enable(ctx context.Context, cmd, sub string) (bool, error) {
	enabled := true
	return s.update(ctx, cmd, sub, domain.CommandPatch{Enabled: &enabled})
}

func (s *Settings) Disable(ctx context.Context, cmd, sub string) (bool, error) {
	enabled := false
	return s.update(ctx, cmd, sub, domain.CommandPatch{Enabled: &enabled})
}

func (s *Settings) SetCooldown(ctx context.Context, cmd string, seconds int, sub string) (bool, error) {
	if seconds < 0 {
		return false, fmt.Errorf("settings: cooldown %d: %w", seconds, domain.ErrNegativeAmount)
	}
	return s.update(ctx, cmd, sub, domain.CommandPatch{Cooldown: &seconds})
}

func (s *Settings) SetCooldownScope(ctx context.Context, cmd string, scope domain.CooldownScope, sub string) (bool, error) {
	return s.update(ctx, cmd, sub, domain.CommandPatch{CooldownScope: &scope})
}

func (s *Settings) SetPrice(ctx context.Context, cmd string, price int64, sub string) (bool, error) {
	if price < 0 {
		return false, fmt.Errorf("settings: price %d: %w", price, domain.ErrNegativeAmount)
	}
	return s.update(ctx, cmd, sub, domain.CommandPatch{Price: &price})
}

func (s *Settings) update(ctx context.Context, cmd, sub string, patch domain.CommandPatch) (bool, error) {
	cmd = normalizeCommandName(cmd)
	sub = normalizeCommandName(sub)

	if !s.registry.Exists(cmd, sub) {
		return false, nil
	}

	// rows are created lazily for commands registered without a module load
	current, err := s.Get(ctx, cmd, sub)
	if err != nil {
		return false, err
	}
	if err := s.repo.EnsureCommand(ctx, current); err != nil {
		return false, fmt.Errorf("settings: ensure %s: %w", label(cmd, sub), err)
	}

	if err := s.repo.UpdateCommand(ctx, cmd, sub, patch); err != nil {
		return false, fmt.Errorf("settings: update %s: %w", label(cmd, sub), err)
	}
	return true, nil
}

func (s *Settings) ensureExists(cmd, sub string) error {
	if !s.registry.Exists(cmd, "") {
		return fmt.Errorf("settings: %q: %w", cmd, domain.ErrUnknownCommand)
	}
	if sub != "" && !s.registry.Exists(cmd, sub) {
		return fmt.Errorf("settings: %q: %w", label(cmd, sub), domain.ErrUnknownSubcommand)
	}
	return nil
}

func label(cmd, sub string) string {
	if sub == "" {
		return cmd
	}
	return cmd + " " + sub
}

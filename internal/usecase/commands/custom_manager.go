package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"chatgate/internal/domain"
	"chatgate/internal/infrastructure/logging"
)

var (
	ErrInvalidName     = errors.New("invalid command name")
	ErrEmptyResponse   = errors.New("command response is required")
	ErrCommandExists   = errors.New("command already exists")
	ErrCommandNotFound = errors.New("custom command not found")
)

// CustomCommandManager creates, edits and deletes custom commands in storage
// and keeps the registry in sync.
type CustomCommandManager struct {
	registry *Registry
	repo     domain.CommandRepository
	log      *slog.Logger

	mu sync.Mutex
}

func NewCustomCommandManager(registry *Registry, repo domain.CommandRepository, log *slog.Logger) *CustomCommandManager {
	return &CustomCommandManager{
		registry: registry,
		repo:     repo,
		log:      logging.Component(log, "custom_commands"),
	}
}

// LoadAll registers every stored custom command. Names already taken by a
// module command are skipped with a warning.
func (m *CustomCommandManager) LoadAll(ctx context.Context) (int, error) {
	list, err := m.repo.ListCustomCommands(ctx)
	if err != nil {
		return 0, fmt.Errorf("custom manager: list: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, cmd := range list {
		if err := m.registry.RegisterCustom(cmd.Name); err != nil {
			m.log.Warn("skipping custom command", "name", cmd.Name, "error", err)
			continue
		}
		loaded++
	}
	return loaded, nil
}

func (m *CustomCommandManager) List(ctx context.Context) ([]domain.CommandSettings, error) {
	return m.repo.ListCustomCommands(ctx)
}

// Add creates a new custom command. Existing names, custom or not, are refused.
func (m *CustomCommandManager) Add(ctx context.Context, name, response string) error {
	name, response, err := validateCustom(name, response)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.registry.Resolve(name); taken {
		if m.registry.IsCustom(name) {
			return fmt.Errorf("custom manager: %q: %w", name, ErrCommandExists)
		}
		return fmt.Errorf("custom manager: %q: %w", name, domain.ErrReservedName)
	}

	if err := m.repo.SaveCustomCommand(ctx, name, response); err != nil {
		return fmt.Errorf("custom manager: save: %w", err)
	}
	if err := m.registry.RegisterCustom(name); err != nil {
		return fmt.Errorf("custom manager: register: %w", err)
	}
	m.log.Info("custom command added", "name", name)
	return nil
}

// Edit replaces the response of an existing custom command.
func (m *CustomCommandManager) Edit(ctx context.Context, name, response string) error {
	name, response, err := validateCustom(name, response)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.registry.IsCustom(name) {
		return fmt.Errorf("custom manager: %q: %w", name, ErrCommandNotFound)
	}
	if err := m.repo.SaveCustomCommand(ctx, name, response); err != nil {
		return fmt.Errorf("custom manager: save: %w", err)
	}
	m.log.Info("custom command edited", "name", name)
	return nil
}

// Delete removes a custom command; false means there was nothing to delete.
func (m *CustomCommandManager) Delete(ctx context.Context, name string) (bool, error) {
	name = normalizeCommandName(name)
	if name == "" {
		return false, ErrInvalidName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.registry.IsCustom(name) {
		return false, nil
	}
	if err := m.repo.DeleteCustomCommand(ctx, name); err != nil {
		return false, fmt.Errorf("custom manager: delete: %w", err)
	}
	m.registry.Unregister(name)
	m.log.Info("custom command deleted", "name", name)
	return true, nil
}

func validateCustom(name, response string) (string, string, error) {
	name = strings.TrimPrefix(normalizeCommandName(name), "!")
	if name == "" || strings.ContainsAny(name, " \t") {
		return "", "", ErrInvalidName
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return "", "", ErrEmptyResponse
	}
	return name, response, nil
}

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"chatgate/internal/domain"
	"chatgate/internal/infrastructure/logging"
)

// Module is a named bundle of commands loaded and unloaded together.
type Module interface {
	Name() string
	Commands() []CommandSpec
}

// CommandSpec declares a command and the defaults persisted the first time
// its module is loaded. Later loads keep whatever is stored.
type CommandSpec struct {
	Name        string
	Aliases     []string
	Handler     Handler
	Enabled     bool
	Permission  int
	Cooldown    int
	Price       int64
	Subcommands []SubcommandSpec
}

type SubcommandSpec struct {
	Name string
	// Handler may be nil to let the parent handle the subcommand.
	Handler    Handler
	Enabled    bool
	Permission int
	Cooldown   int
	Price      int64
}

// NewCommandSpec returns an enabled command with the default permission and
// cooldown.
func NewCommandSpec(name string, h Handler) CommandSpec {
	return CommandSpec{
		Name:       name,
		Handler:    h,
		Enabled:    true,
		Permission: domain.DefaultPermissionLevel,
		Cooldown:   domain.DefaultCooldownSeconds,
	}
}

func NewSubcommandSpec(name string, h Handler) SubcommandSpec {
	return SubcommandSpec{
		Name:       name,
		Handler:    h,
		Enabled:    true,
		Permission: domain.DefaultPermissionLevel,
		Cooldown:   domain.DefaultCooldownSeconds,
	}
}

type ModuleLoader struct {
	registry *Registry
	repo     domain.CommandRepository
	log      *slog.Logger
}

func NewModuleLoader(registry *Registry, repo domain.CommandRepository, log *slog.Logger) *ModuleLoader {
	return &ModuleLoader{
		registry: registry,
		repo:     repo,
		log:      logging.Component(log, "modules"),
	}
}

// Load persists default rows for every command of m and registers them.
// Commands registered before a failure are rolled back.
func (l *ModuleLoader) Load(ctx context.Context, m Module) error {
	module := m.Name()
	if module == "" || module == domain.CustomModule {
		return fmt.Errorf("modules: invalid module name %q", module)
	}

	var loaded []string
	rollback := func() {
		for _, name := range loaded {
			l.registry.Unregister(name)
		}
	}

	for _, spec := range m.Commands() {
		if err := l.ensure(ctx, module, spec); err != nil {
			rollback()
			return err
		}

		subs := make(map[string]Handler, len(spec.Subcommands))
		for _, sub := range spec.Subcommands {
			subs[sub.Name] = sub.Handler
		}
		err := l.registry.Register(Definition{
			Name:        spec.Name,
			Module:      module,
			Handler:     spec.Handler,
			Aliases:     spec.Aliases,
			Subcommands: subs,
		})
		if err != nil {
			rollback()
			return fmt.Errorf("modules: load %s: %w", module, err)
		}
		loaded = append(loaded, normalizeCommandName(spec.Name))
	}

	l.log.Info("module loaded", "module", module, "commands", loaded)
	return nil
}

// Unload removes the commands of module from the registry. Stored settings
// are kept for the next load.
func (l *ModuleLoader) Unload(module string) []string {
	removed := l.registry.UnregisterModule(module)
	l.log.Info("module unloaded", "module", module, "commands", removed)
	return removed
}

func (l *ModuleLoader) ensure(ctx context.Context, module string, spec CommandSpec) error {
	name := normalizeCommandName(spec.Name)

	err := l.repo.EnsureCommand(ctx, domain.CommandSettings{
		Name:       name,
		Module:     module,
		Enabled:    spec.Enabled,
		Permission: spec.Permission,
		Cooldown:   spec.Cooldown,
		Price:      spec.Price,
	})
	if err != nil {
		return fmt.Errorf("modules: ensure %s: %w", name, err)
	}

	for _, sub := range spec.Subcommands {
		err := l.repo.EnsureCommand(ctx, domain.CommandSettings{
			Name:       normalizeCommandName(sub.Name),
			Parent:     name,
			Module:     module,
			Enabled:    sub.Enabled,
			Permission: sub.Permission,
			Cooldown:   sub.Cooldown,
			Price:      sub.Price,
		})
		if err != nil {
			return fmt.Errorf("modules: ensure %s %s: %w", name, sub.Name, err)
		}
	}
	return nil
}

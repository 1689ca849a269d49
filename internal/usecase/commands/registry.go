package commands

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"chatgate/internal/domain"
)

// Definition is the in-memory registry entry of a command.
type Definition struct {
	Name    string
	Module  string
	Handler Handler
	Custom  bool
	Aliases []string

	// Subcommands maps a child name to its handler. A nil handler means the
	// parent handler receives the event with Subcommand set.
	Subcommands map[string]Handler
}

// Registry holds every known command. Lookups take the read lock, module
// load/unload and custom create/delete take the write lock.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Definition
	aliases  map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Definition),
		aliases:  make(map[string]string),
	}
}

func (r *Registry) Register(def Definition) error {
	name := normalizeCommandName(def.Name)
	if name == "" {
		return fmt.Errorf("registry: empty command name")
	}
	if !def.Custom && def.Handler == nil {
		return fmt.Errorf("registry: command %q has no handler", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.takenLocked(name) {
		return fmt.Errorf("registry: %q: %w", name, domain.ErrReservedName)
	}

	aliases := make([]string, 0, len(def.Aliases))
	for _, alias := range def.Aliases {
		alias = normalizeCommandName(alias)
		if alias == "" || alias == name || slices.Contains(aliases, alias) {
			continue
		}
		if r.takenLocked(alias) {
			return fmt.Errorf("registry: alias %q: %w", alias, domain.ErrReservedName)
		}
		aliases = append(aliases, alias)
	}

	subs := make(map[string]Handler, len(def.Subcommands))
	for sub, h := range def.Subcommands {
		sub = normalizeCommandName(sub)
		if sub != "" {
			subs[sub] = h
		}
	}

	r.commands[name] = &Definition{
		Name:        name,
		Module:      def.Module,
		Handler:     def.Handler,
		Custom:      def.Custom,
		Aliases:     aliases,
		Subcommands: subs,
	}
	for _, alias := range aliases {
		r.aliases[alias] = name
	}
	return nil
}

// RegisterCustom adds a custom command backed by a stored response.
func (r *Registry) RegisterCustom(name string) error {
	return r.Register(Definition{Name: name, Module: domain.CustomModule, Custom: true})
}

func (r *Registry) Unregister(name string) bool {
	name = normalizeCommandName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(name)
}

// UnregisterModule drops every command owned by module and returns their names.
func (r *Registry) UnregisterModule(module string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for name, def := range r.commands {
		if def.Module == module {
			removed = append(removed, name)
		}
	}
	for _, name := range removed {
		r.removeLocked(name)
	}
	slices.Sort(removed)
	return removed
}

// Resolve maps a name or alias to the canonical command name.
func (r *Registry) Resolve(name string) (string, bool) {
	name = normalizeCommandName(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.commands[name]; ok {
		return name, true
	}
	if canonical, ok := r.aliases[name]; ok {
		return canonical, true
	}
	return "", false
}

// Exists reports whether cmd is registered and, when sub is not empty,
// whether sub is a known child of cmd.
func (r *Registry) Exists(cmd, sub string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.commands[normalizeCommandName(cmd)]
	if !ok {
		return false
	}
	if sub == "" {
		return true
	}
	_, ok = def.Subcommands[normalizeCommandName(sub)]
	return ok
}

func (r *Registry) IsCustom(cmd string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.commands[normalizeCommandName(cmd)]
	return ok && def.Custom
}

func (r *Registry) Module(cmd string) (string, error) {
	def, err := r.registered(cmd)
	if err != nil {
		return "", err
	}
	return def.Module, nil
}

func (r *Registry) Handler(cmd string) (Handler, error) {
	def, err := r.registered(cmd)
	if err != nil {
		return nil, err
	}
	return def.Handler, nil
}

// SubcommandHandler returns the handler bound to sub, falling back to the
// parent handler.
func (r *Registry) SubcommandHandler(cmd, sub string) (Handler, error) {
	def, err := r.registered(cmd)
	if err != nil {
		return nil, err
	}
	h, ok := def.Subcommands[normalizeCommandName(sub)]
	if !ok {
		return nil, fmt.Errorf("registry: %s %s: %w", def.Name, sub, domain.ErrUnknownSubcommand)
	}
	if h == nil {
		return def.Handler, nil
	}
	return h, nil
}

func (r *Registry) Subcommands(cmd string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.commands[normalizeCommandName(cmd)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(def.Subcommands))
	for sub := range def.Subcommands {
		out = append(out, sub)
	}
	slices.Sort(out)
	return out
}

// Names lists canonical command names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.commands))
	for name := range r.commands {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func (r *Registry) registered(cmd string) (*Definition, error) {
	name := normalizeCommandName(cmd)

	r.mu.RLock()
	def, ok := r.commands[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("registry: %q: %w", name, domain.ErrUnknownCommand)
	}
	if def.Custom {
		return nil, fmt.Errorf("registry: %q: %w", name, domain.ErrCustomCommand)
	}
	return def, nil
}

func (r *Registry) takenLocked(name string) bool {
	if _, ok := r.commands[name]; ok {
		return true
	}
	_, ok := r.aliases[name]
	return ok
}

func (r *Registry) removeLocked(name string) bool {
	def, ok := r.commands[name]
	if !ok {
		return false
	}
	for _, alias := range def.Aliases {
		delete(r.aliases, alias)
	}
	delete(r.commands, name)
	return true
}

func normalizeCommandName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chatgate/internal/domain"
)

// CoreModule provides !ping and the !command add|edit|remove management
// subcommands.
type CoreModule struct {
	manager *CustomCommandManager
}

func NewCoreModule(manager *CustomCommandManager) *CoreModule {
	return &CoreModule{manager: manager}
}

func (m *CoreModule) Name() string {
	return "core"
}

func (m *CoreModule) Commands() []CommandSpec {
	ping := NewCommandSpec("ping", NewPingHandler())
	ping.Cooldown = 5

	manage := NewCommandSpec("command", HandlerFunc(m.usage))
	manage.Permission = domain.LevelModerator
	manage.Cooldown = 0
	for _, sub := range []SubcommandSpec{
		NewSubcommandSpec("add", HandlerFunc(m.add)),
		NewSubcommandSpec("edit", HandlerFunc(m.edit)),
		NewSubcommandSpec("remove", HandlerFunc(m.remove)),
	} {
		sub.Permission = domain.LevelModerator
		sub.Cooldown = 0
		manage.Subcommands = append(manage.Subcommands, sub)
	}

	return []CommandSpec{ping, manage}
}

func (m *CoreModule) usage(ctx context.Context, c *Context) error {
	return c.Reply(ctx, "Usage: !command add|edit <name> <response> | !command remove <name>")
}

func (m *CoreModule) add(ctx context.Context, c *Context) error {
	name, response, ok := splitNameResponse(c.Args)
	if !ok {
		return c.Reply(ctx, "Usage: !command add <name> <response>")
	}

	err := m.manager.Add(ctx, name, response)
	switch {
	case errors.Is(err, ErrCommandExists):
		return c.Reply(ctx, fmt.Sprintf("!%s already exists, use !command edit.", name))
	case errors.Is(err, domain.ErrReservedName):
		return c.Reply(ctx, fmt.Sprintf("!%s is reserved by another command.", name))
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrEmptyResponse):
		return c.Reply(ctx, "Usage: !command add <name> <response>")
	case err != nil:
		return err
	}
	return c.Reply(ctx, fmt.Sprintf("Command !%s created.", normalizeCommandName(name)))
}

func (m *CoreModule) edit(ctx context.Context, c *Context) error {
	name, response, ok := splitNameResponse(c.Args)
	if !ok {
		return c.Reply(ctx, "Usage: !command edit <name> <response>")
	}

	err := m.manager.Edit(ctx, name, response)
	switch {
	case errors.Is(err, ErrCommandNotFound):
		return c.Reply(ctx, fmt.Sprintf("!%s is not a custom command.", name))
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrEmptyResponse):
		return c.Reply(ctx, "Usage: !command edit <name> <response>")
	case err != nil:
		return err
	}
	return c.Reply(ctx, fmt.Sprintf("Command !%s updated.", normalizeCommandName(name)))
}

func (m *CoreModule) remove(ctx context.Context, c *Context) error {
	if len(c.Args) == 0 {
		return c.Reply(ctx, "Usage: !command remove <name>")
	}
	name := strings.TrimPrefix(normalizeCommandName(c.Args[0]), "!")

	deleted, err := m.manager.Delete(ctx, name)
	if err != nil {
		return err
	}
	if !deleted {
		return c.Reply(ctx, fmt.Sprintf("!%s is not a custom command.", name))
	}
	return c.Reply(ctx, fmt.Sprintf("Command !%s removed.", name))
}

func splitNameResponse(args []string) (string, string, bool) {
	if len(args) < 2 {
		return "", "", false
	}
	name := strings.TrimPrefix(args[0], "!")
	return name, strings.Join(args[1:], " "), name != ""
}

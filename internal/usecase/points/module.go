package points

import (
	"context"
	"fmt"
	"strconv"

	"chatgate/internal/domain"
	"chatgate/internal/usecase/commands"
)

// ModuleConfig reads per-module settings stored from chat.
type ModuleConfig interface {
	ModuleConfig(ctx context.Context, module, key, def string) string
}

// Module provides !points, !points add <user> <n> and !points remove <user> <n>.
type Module struct {
	ledger *Ledger
	config ModuleConfig
}

func NewModule(ledger *Ledger) *Module {
	return &Module{ledger: ledger}
}

// UseConfig lets the "currency" module setting rename the points in replies.
func (m *Module) UseConfig(cfg ModuleConfig) {
	m.config = cfg
}

func (m *Module) currency(ctx context.Context) string {
	if m.config == nil {
		return "points"
	}
	return m.config.ModuleConfig(ctx, m.Name(), "currency", "points")
}

func (m *Module) Name() string {
	return "points"
}

func (m *Module) Commands() []commands.CommandSpec {
	balance := commands.NewCommandSpec("points", commands.HandlerFunc(m.balance))
	balance.Aliases = []string{"pts"}
	balance.Cooldown = 10

	add := commands.NewSubcommandSpec("add", commands.HandlerFunc(m.add))
	add.Permission = domain.LevelModerator
	add.Cooldown = 0

	remove := commands.NewSubcommandSpec("remove", commands.HandlerFunc(m.remove))
	remove.Permission = domain.LevelModerator
	remove.Cooldown = 0

	balance.Subcommands = []commands.SubcommandSpec{add, remove}
	return []commands.CommandSpec{balance}
}

func (m *Module) balance(ctx context.Context, c *commands.Context) error {
	self := normalizeUser(c.Event.Sender)
	user := self
	if len(c.Args) > 0 {
		user = normalizeUser(c.Args[0])
	}

	points, err := m.ledger.Get(ctx, user)
	if err != nil {
		return err
	}
	currency := m.currency(ctx)
	if user == self {
		return c.Reply(ctx, fmt.Sprintf("You have %d %s.", points, currency))
	}
	return c.Reply(ctx, fmt.Sprintf("%s has %d %s.", user, points, currency))
}

func (m *Module) add(ctx context.Context, c *commands.Context) error {
	user, amount, ok := parseTransfer(c.Args)
	if !ok {
		return c.Reply(ctx, "Usage: !points add <user> <amount>")
	}
	if _, err := m.ledger.Add(ctx, user, amount); err != nil {
		return err
	}
	return c.Reply(ctx, fmt.Sprintf("Gave %d %s to %s.", amount, m.currency(ctx), user))
}

func (m *Module) remove(ctx context.Context, c *commands.Context) error {
	user, amount, ok := parseTransfer(c.Args)
	if !ok {
		return c.Reply(ctx, "Usage: !points remove <user> <amount>")
	}
	removed, err := m.ledger.Sub(ctx, user, amount)
	if err != nil {
		return err
	}
	if !removed {
		return c.Reply(ctx, fmt.Sprintf("%s does not have %d %s.", user, amount, m.currency(ctx)))
	}
	return c.Reply(ctx, fmt.Sprintf("Took %d %s from %s.", amount, m.currency(ctx), user))
}

func parseTransfer(args []string) (string, int64, bool) {
	if len(args) < 2 {
		return "", 0, false
	}
	user := normalizeUser(args[0])
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if user == "" || err != nil || amount <= 0 {
		return "", 0, false
	}
	return user, amount, true
}

var _ commands.Module = (*Module)(nil)
var _ commands.Ledger = (*Ledger)(nil)

package preferences

import (
	"context"
	"fmt"
	"strings"

	"chatgate/internal/domain"
	"chatgate/internal/usecase/commands"
)

// Module provides !settings prefix <p>, !settings mention on|off and
// !settings whisper on|off for administrators.
type Module struct {
	svc *Service
}

func NewModule(svc *Service) *Module {
	return &Module{svc: svc}
}

func (m *Module) Name() string {
	return "settings"
}

func (m *Module) Commands() []commands.CommandSpec {
	root := commands.NewCommandSpec("settings", commands.HandlerFunc(m.show))
	root.Permission = domain.LevelAdministrator
	root.Cooldown = 0

	prefix := commands.NewSubcommandSpec("prefix", commands.HandlerFunc(m.prefix))
	mention := commands.NewSubcommandSpec("mention", commands.HandlerFunc(m.mention))
	whisper := commands.NewSubcommandSpec("whisper", commands.HandlerFunc(m.whisper))
	for _, sub := range []*commands.SubcommandSpec{&prefix, &mention, &whisper} {
		sub.Permission = domain.LevelAdministrator
		sub.Cooldown = 0
	}

	root.Subcommands = []commands.SubcommandSpec{prefix, mention, whisper}
	return []commands.CommandSpec{root}
}

func (m *Module) show(ctx context.Context, c *commands.Context) error {
	return c.Reply(ctx, fmt.Sprintf("prefix %s, mention %s, whisper %s",
		m.svc.Prefix(ctx), onOff(!m.svc.ResponseMention(ctx)), onOff(m.svc.WhisperMode(ctx))))
}

func (m *Module) prefix(ctx context.Context, c *commands.Context) error {
	if len(c.Args) != 1 {
		return c.Reply(ctx, "Usage: settings prefix <prefix>")
	}
	if err := m.svc.SetPrefix(ctx, c.Args[0]); err != nil {
		return c.Reply(ctx, "The prefix must be one word.")
	}
	return c.Reply(ctx, fmt.Sprintf("Prefix set to %s", c.Args[0]))
}

// mention on keeps the "user: " prefix on replies, which is the stored
// responseMention flag turned off.
func (m *Module) mention(ctx context.Context, c *commands.Context) error {
	on, ok := parseSwitch(c.Args)
	if !ok {
		return c.Reply(ctx, "Usage: settings mention on|off")
	}
	if err := m.svc.SetResponseMention(ctx, !on); err != nil {
		return err
	}
	return c.Reply(ctx, "Mentions turned "+onOff(on)+".")
}

func (m *Module) whisper(ctx context.Context, c *commands.Context) error {
	on, ok := parseSwitch(c.Args)
	if !ok {
		return c.Reply(ctx, "Usage: settings whisper on|off")
	}
	if err := m.svc.SetWhisperMode(ctx, on); err != nil {
		return err
	}
	return c.Reply(ctx, "Whisper replies turned "+onOff(on)+".")
}

func parseSwitch(args []string) (bool, bool) {
	if len(args) != 1 {
		return false, false
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "yes":
		return true, true
	case "off", "false", "no":
		return false, true
	default:
		return false, false
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

var _ commands.Module = (*Module)(nil)

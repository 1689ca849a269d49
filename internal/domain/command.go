package domain

import (
	"context"
	"strings"
)

const (
	DefaultPermissionLevel = 5
	DefaultCooldownSeconds = 30

	// CustomModule is the module name stored for user-defined commands.
	CustomModule = "custom"
)

// Permission levels: lower value means more privilege.
const (
	LevelAdministrator = 0
	LevelModerator     = 1
	LevelPremium       = 2
	LevelTrusted       = 3
	LevelRegular       = 4
	LevelUser          = 5
)

type CooldownScope string

const (
	// CooldownScopeDefault follows the bot-wide setting.
	CooldownScopeDefault CooldownScope = ""
	CooldownScopeUser    CooldownScope = "user"
	CooldownScopeGlobal  CooldownScope = "global"
)

func ParseCooldownScope(raw string) CooldownScope {
	switch CooldownScope(strings.ToLower(strings.TrimSpace(raw))) {
	case CooldownScopeUser:
		return CooldownScopeUser
	case CooldownScopeGlobal:
		return CooldownScopeGlobal
	default:
		return CooldownScopeDefault
	}
}

// CommandSettings is the persisted, mutable part of a command or subcommand.
// Parent is empty for top-level commands.
type CommandSettings struct {
	Name          string
	Parent        string
	Module        string
	Enabled       bool
	Permission    int
	Cooldown      int
	CooldownScope CooldownScope
	Price         int64
	Response      string
}

func DefaultCommandSettings(name, parent, module string) CommandSettings {
	return CommandSettings{
		Name:       name,
		Parent:     parent,
		Module:     module,
		Permission: DefaultPermissionLevel,
		Cooldown:   DefaultCooldownSeconds,
	}
}

// CommandEvent is built once per chat message that looks like a command and
// lives for a single dispatch.
type CommandEvent struct {
	Command     string
	Args        []string
	Sender      string
	SenderLevel int
	// Prefix is the command prefix the message was parsed with.
	Prefix      string

	Subcommand   string
	SubArgs      []string
	SubArgString string

	Message Message
}

// ArgString joins the raw arguments back together.
func (e *CommandEvent) ArgString() string {
	return strings.Join(e.Args, " ")
}

type CommandRepository interface {
	// EnsureCommand inserts the row with the given defaults when it does not exist yet.
	EnsureCommand(ctx context.Context, settings CommandSettings) error
	// GetCommand returns nil, nil when no row exists. sub may be empty.
	GetCommand(ctx context.Context, name, sub string) (*CommandSettings, error)
	UpdateCommand(ctx context.Context, name, sub string, patch CommandPatch) error

	SaveCustomCommand(ctx context.Context, name, response string) error
	ListCustomCommands(ctx context.Context) ([]CommandSettings, error)
	DeleteCustomCommand(ctx context.Context, name string) error
}

// CommandPatch lists the columns to change; nil fields are left untouched.
type CommandPatch struct {
	Enabled       *bool
	Permission    *int
	Cooldown      *int
	CooldownScope *CooldownScope
	Price         *int64
}

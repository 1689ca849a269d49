package commands

import (
	"context"
	"log/slog"
	"strings"

	"chatgate/internal/domain"
	"chatgate/internal/infrastructure/logging"
)

// PermissionLookup returns a stored per-user level override, nil when none.
type PermissionLookup interface {
	UserPermission(ctx context.Context, name string) (*int, error)
}

// GroupResolver maps a chatter to a permission level.
type GroupResolver struct {
	users   PermissionLookup
	botName string
	log     *slog.Logger
}

func NewGroupResolver(users PermissionLookup, botName string, log *slog.Logger) *GroupResolver {
	return &GroupResolver{
		users:   users,
		botName: strings.ToLower(strings.TrimSpace(botName)),
		log:     logging.Component(log, "groups"),
	}
}

// Level prefers the stored override and falls back to the platform badges.
// Lookup failures are logged and treated as "no override".
func (g *GroupResolver) Level(ctx context.Context, msg domain.Message) int {
	if g.users != nil && msg.Username != "" {
		level, err := g.users.UserPermission(ctx, msg.Username)
		switch {
		case err != nil:
			g.log.Warn("permission lookup failed", "user", msg.Username, "error", err)
		case level != nil:
			return *level
		}
	}
	return g.badgeLevel(msg)
}

func (g *GroupResolver) badgeLevel(msg domain.Message) int {
	user := strings.ToLower(msg.Username)
	channel := strings.TrimPrefix(strings.ToLower(msg.ChannelID), "#")

	switch {
	case msg.IsPlatformOwner, msg.IsPlatformAdmin:
		return domain.LevelAdministrator
	case user != "" && (user == channel || user == g.botName):
		return domain.LevelAdministrator
	case msg.IsPlatformMod:
		return domain.LevelModerator
	case msg.IsPlatformVip:
		return domain.LevelPremium
	case msg.IsSubscriber:
		return domain.LevelTrusted
	default:
		return domain.LevelUser
	}
}

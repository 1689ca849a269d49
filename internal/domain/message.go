package domain

type Platform string

const (
	PlatformTwitch Platform = "twitch"
)

type Message struct {
	Platform  Platform
	ChannelID string
	UserID    string
	Username  string
	Text      string
	IsPrivate bool

	// Flags filled in by the platform adapter
	IsPlatformOwner bool
	IsPlatformAdmin bool
	IsPlatformMod   bool
	IsPlatformVip   bool
	IsSubscriber    bool
}

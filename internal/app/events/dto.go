package events

import (
	"time"

	"chatgate/internal/domain"
)

// ChatMessageDTO is the serializable form of a chat message published on the bus.
type ChatMessageDTO struct {
	Platform        string `json:"platform"`
	ChannelID       string `json:"channel_id"`
	UserID          string `json:"user_id"`
	Username        string `json:"username"`
	Text            string `json:"text"`
	IsPrivate       bool   `json:"is_private"`
	IsPlatformOwner bool   `json:"is_platform_owner"`
	IsPlatformAdmin bool   `json:"is_platform_admin"`
	IsPlatformMod   bool   `json:"is_platform_mod"`
	IsPlatformVip   bool   `json:"is_platform_vip"`
	IsSubscriber    bool   `json:"is_subscriber"`
	Timestamp       string `json:"timestamp"`
}

func NewChatMessageDTO(msg domain.Message) ChatMessageDTO {
	return ChatMessageDTO{
		Platform:        string(msg.Platform),
		ChannelID:       msg.ChannelID,
		UserID:          msg.UserID,
		Username:        msg.Username,
		Text:            msg.Text,
		IsPrivate:       msg.IsPrivate,
		IsPlatformOwner: msg.IsPlatformOwner,
		IsPlatformAdmin: msg.IsPlatformAdmin,
		IsPlatformMod:   msg.IsPlatformMod,
		IsPlatformVip:   msg.IsPlatformVip,
		IsSubscriber:    msg.IsSubscriber,
		Timestamp:       time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// DispatchDTO reports how a single command dispatch ended.
type DispatchDTO struct {
	RequestID  string `json:"request_id"`
	Command    string `json:"command"`
	Subcommand string `json:"subcommand,omitempty"`
	Sender     string `json:"sender"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// ReadyDTO is published once the bot finished loading its modules.
type ReadyDTO struct {
	BotName   string   `json:"bot_name"`
	Commands  []string `json:"commands"`
	Timestamp string   `json:"timestamp"`
}

package domain

import "context"

type OutgoingMessagePort interface {
	SendMessage(ctx context.Context, platform Platform, channelID, text string) error
}

// WhisperPort is implemented by senders that can reach a user privately.
// toUserID is the platform user id of the recipient.
type WhisperPort interface {
	Whisper(ctx context.Context, platform Platform, toUserID, text string) error
}

// FollowerChecker answers whether a chatter follows the channel.
type FollowerChecker interface {
	IsFollower(ctx context.Context, userID string) (bool, error)
}

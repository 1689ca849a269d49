package twitchinfra

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nicklaw5/helix/v2"

	"chatgate/internal/domain"
)

type whisperClient interface {
	SendUserWhisper(params *helix.SendUserWhisperParams) (*helix.SendUserWhisperResponse, error)
	GetUsers(params *helix.UsersParams) (*helix.UsersResponse, error)
}

// HelixWhisperService sends whispers from the bot account. The token must
// belong to the bot and carry the user:manage:whispers scope.
type HelixWhisperService struct {
	client     whisperClient
	fromUserID string
}

// NewHelixWhisperService builds the sender. When botUserID is empty it is
// looked up from botLogin.
func NewHelixWhisperService(ctx context.Context, clientID, userAccessToken, botUserID, botLogin string) (*HelixWhisperService, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(userAccessToken) == "" {
		return nil, fmt.Errorf("helix: client id and access token are required")
	}

	client, err := helix.NewClient(&helix.Options{
		ClientID:        clientID,
		UserAccessToken: userAccessToken,
	})
	if err != nil {
		return nil, fmt.Errorf("helix: NewClient: %w", err)
	}
	return newWhisperService(ctx, client, botUserID, botLogin)
}

func newWhisperService(ctx context.Context, client whisperClient, botUserID, botLogin string) (*HelixWhisperService, error) {
	botUserID = strings.TrimSpace(botUserID)
	if botUserID == "" {
		id, err := resolveUserID(ctx, client, botLogin)
		if err != nil {
			return nil, err
		}
		botUserID = id
	}
	return &HelixWhisperService{client: client, fromUserID: botUserID}, nil
}

func (s *HelixWhisperService) Whisper(ctx context.Context, platform domain.Platform, toUserID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if platform != domain.PlatformTwitch {
		return fmt.Errorf("helix: platform %s: %w", platform, domain.ErrWhisperUnavailable)
	}
	toUserID = strings.TrimSpace(toUserID)
	if toUserID == "" {
		return fmt.Errorf("helix: whisper recipient id is required")
	}

	resp, err := s.client.SendUserWhisper(&helix.SendUserWhisperParams{
		FromUserID: s.fromUserID,
		ToUserID:   toUserID,
		Message:    text,
	})
	if err != nil {
		return fmt.Errorf("helix: SendUserWhisper: %w", err)
	}
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("helix: SendUserWhisper failed (%d: %s) %s",
			resp.StatusCode, resp.Error, resp.ErrorMessage)
	}
	return nil
}

func resolveUserID(ctx context.Context, client whisperClient, login string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	login = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(login)), "@")
	if login == "" {
		return "", fmt.Errorf("helix: bot login is required to resolve its user id")
	}

	resp, err := client.GetUsers(&helix.UsersParams{Logins: []string{login}})
	if err != nil {
		return "", fmt.Errorf("helix: GetUsers: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("helix: GetUsers failed (%d: %s) %s",
			resp.StatusCode, resp.Error, resp.ErrorMessage)
	}
	if len(resp.Data.Users) == 0 {
		return "", fmt.Errorf("helix: twitch user %s not found", login)
	}
	return resp.Data.Users[0].ID, nil
}

var (
	_ domain.WhisperPort = (*HelixWhisperService)(nil)
	_ whisperClient      = (*helix.Client)(nil)
)

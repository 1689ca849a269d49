package twitchinfra

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nicklaw5/helix/v2"

	"chatgate/internal/domain"
)

type followsClient interface {
	GetChannelFollows(params *helix.GetChannelFollowsParams) (*helix.GetChannelFollowersResponse, error)
}

// HelixFollowerService answers follower checks for one broadcaster. The token
// needs the moderator:read:followers scope.
type HelixFollowerService struct {
	client        followsClient
	broadcasterID string
}

func NewHelixFollowerService(clientID, userAccessToken, broadcasterID string) (*HelixFollowerService, error) {
	if strings.TrimSpace(broadcasterID) == "" {
		return nil, fmt.Errorf("helix: broadcaster id is required")
	}

	client, err := helix.NewClient(&helix.Options{
		ClientID:        clientID,
		UserAccessToken: userAccessToken,
	})
	if err != nil {
		return nil, fmt.Errorf("helix: NewClient: %w", err)
	}

	return &HelixFollowerService{
		client:        client,
		broadcasterID: broadcasterID,
	}, nil
}

func (s *HelixFollowerService) IsFollower(ctx context.Context, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, nil
	}
	if userID == s.broadcasterID {
		return true, nil
	}

	resp, err := s.client.GetChannelFollows(&helix.GetChannelFollowsParams{
		BroadcasterID: s.broadcasterID,
		UserID:        userID,
	})
	if err != nil {
		return false, fmt.Errorf("helix: GetChannelFollows: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("helix: GetChannelFollows failed (%d: %s) %s",
			resp.StatusCode, resp.Error, resp.ErrorMessage)
	}

	return resp.Data.Total > 0, nil
}

var (
	_ domain.FollowerChecker = (*HelixFollowerService)(nil)
	_ followsClient          = (*helix.Client)(nil)
)

// Package identity resolves links between Discord accounts and game accounts.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/PancyStudios/AppealBotGo/pkg/models"
)

// ErrNotLinked means the account has no counterpart on the other side
var ErrNotLinked = errors.New("identity: account not linked")

// Resolver looks up a PlayerIdentity in either direction
type Resolver interface {
	ByDiscordID(ctx context.Context, discordID string) (*models.PlayerIdentity, error)
	ByUserID(ctx context.Context, userID uuid.UUID) (*models.PlayerIdentity, error)
}

// fromLinkedAccount validates a transported link. A link without a game account is
// treated as not linked; a missing Discord id is kept empty.
func fromLinkedAccount(acc *models.LinkedAccount) (*models.PlayerIdentity, error) {
	if acc == nil || acc.UserID == "" {
		return nil, ErrNotLinked
	}
	userID, err := uuid.Parse(acc.UserID)
	if err != nil {
		return nil, fmt.Errorf("identity: invalid user id %q: %w", acc.UserID, err)
	}
	return &models.PlayerIdentity{UserID: userID, DiscordID: acc.DiscordID}, nil
}

package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/PancyStudios/AppealBotGo/pkg/models"
)

// LinkedAccountsCollection is where the game server mirrors its Discord links
const LinkedAccountsCollection = "linked_accounts"

// AccountFinder is satisfied by *database.DataManager[models.LinkedAccount]
type AccountFinder interface {
	Get(ctx context.Context, query bson.M) (*models.LinkedAccount, error)
}

// MongoResolver reads the linked_accounts collection
type MongoResolver struct {
	accounts AccountFinder
}

func NewMongoResolver(accounts AccountFinder) *MongoResolver {
	return &MongoResolver{accounts: accounts}
}

func (r *MongoResolver) ByDiscordID(ctx context.Context, discordID string) (*models.PlayerIdentity, error) {
	return r.lookup(ctx, bson.M{"discordId": discordID})
}

func (r *MongoResolver) ByUserID(ctx context.Context, userID uuid.UUID) (*models.PlayerIdentity, error) {
	return r.lookup(ctx, bson.M{"userId": userID.String()})
}

func (r *MongoResolver) lookup(ctx context.Context, query bson.M) (*models.PlayerIdentity, error) {
	acc, err := r.accounts.Get(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("identity: linked accounts: %w", err)
	}
	return fromLinkedAccount(acc)
}

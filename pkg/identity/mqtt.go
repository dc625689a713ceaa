package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/PancyStudios/AppealBotGo/pkg/models"
	"github.com/PancyStudios/AppealBotGo/pkg/mqtt"
)

// Requester is satisfied by *mqtt.MqttCommunicator
type Requester interface {
	Request(ctx context.Context, topic string, payload interface{}) (json.RawMessage, error)
}

// MQTTResolver asks the game server over the broker
type MQTTResolver struct {
	requester Requester
	topic     string
	timeout   time.Duration
}

// NewMQTTResolver sends lookups to topic and gives up after timeout
func NewMQTTResolver(requester Requester, topic string, timeout time.Duration) *MQTTResolver {
	return &MQTTResolver{requester: requester, topic: topic, timeout: timeout}
}

type lookupRequest struct {
	DiscordID string `json:"discordId,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

func (r *MQTTResolver) ByDiscordID(ctx context.Context, discordID string) (*models.PlayerIdentity, error) {
	return r.lookup(ctx, lookupRequest{DiscordID: discordID})
}

func (r *MQTTResolver) ByUserID(ctx context.Context, userID uuid.UUID) (*models.PlayerIdentity, error) {
	return r.lookup(ctx, lookupRequest{UserID: userID.String()})
}

func (r *MQTTResolver) lookup(ctx context.Context, req lookupRequest) (*models.PlayerIdentity, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	data, err := r.requester.Request(ctx, r.topic, req)
	if err != nil {
		var remote *mqtt.RemoteError
		if errors.As(err, &remote) && remote.Message == "not_found" {
			return nil, ErrNotLinked
		}
		return nil, fmt.Errorf("identity: %w", err)
	}

	if len(data) == 0 || string(data) == "null" {
		return nil, ErrNotLinked
	}

	var acc models.LinkedAccount
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("identity: decode mqtt response: %w", err)
	}
	return fromLinkedAccount(&acc)
}

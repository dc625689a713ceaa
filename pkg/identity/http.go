package identity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/PancyStudios/AppealBotGo/pkg/models"
)

// HTTPResolver queries the game server's player API
type HTTPResolver struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPResolver builds a client for {baseURL}/players
func NewHTTPResolver(baseURL, token string, timeout time.Duration) *HTTPResolver {
	return &HTTPResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *HTTPResolver) ByDiscordID(ctx context.Context, discordID string) (*models.PlayerIdentity, error) {
	return r.lookup(ctx, url.Values{"discordId": {discordID}})
}

func (r *HTTPResolver) ByUserID(ctx context.Context, userID uuid.UUID) (*models.PlayerIdentity, error) {
	return r.lookup(ctx, url.Values{"userId": {userID.String()}})
}

func (r *HTTPResolver) lookup(ctx context.Context, query url.Values) (*models.PlayerIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/players?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: player api: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotLinked
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("identity: player api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var acc models.LinkedAccount
	if err := json.NewDecoder(resp.Body).Decode(&acc); err != nil {
		return nil, fmt.Errorf("identity: decode player: %w", err)
	}
	return fromLinkedAccount(&acc)
}

// Package events provides the gateway event handlers that are not part of the
// appeal workflow itself.
package events

import (
	"fmt"

	"github.com/PancyStudios/AppealBotGo/pkg/discord"
	"github.com/PancyStudios/AppealBotGo/pkg/logger"
)

// RegisterAll registers all events with the Discord client.
// guildID is the community whose members must stay fully cached.
func RegisterAll(client *discord.ExtendedClient, guildID string) {
	logger.System("📋 Регистрация событий бота...", "Events")

	// Ready event (bot startup)
	RegisterReadyEvent(client)

	// Shard events (disconnect/resume)
	RegisterShardEvents(client)

	// Guild events (member chunking)
	RegisterGuildEvents(client, guildID)

	logger.Success(fmt.Sprintf("✅ Все события зарегистрированы (%d)", client.EventHandler.Count()), "Events")
}

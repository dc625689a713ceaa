package events

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/AppealBotGo/pkg/discord"
	"github.com/PancyStudios/AppealBotGo/pkg/logger"
)

// chunker is satisfied by *discord.GuildRoster
type chunker interface {
	RequestChunk(guildID string) error
}

// RegisterGuildEvents keeps the member list of guildID complete in the state
// cache so judge lookups do not need REST.
func RegisterGuildEvents(client *discord.ExtendedClient, guildID string) {
	client.EventHandler.OnGuildCreate(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		onGuildCreate(client.Roster, guildID, g)
	})
}

func onGuildCreate(c chunker, guildID string, g *discordgo.GuildCreate) {
	if !shouldChunk(g, guildID) {
		return
	}

	logger.Info(fmt.Sprintf("Запрос участников сервера %s (%d)", g.Name, g.MemberCount), "Guild")
	if err := c.RequestChunk(g.ID); err != nil {
		logger.Error(fmt.Sprintf("Не удалось запросить участников сервера %s: %v", g.ID, err), "Guild")
	}
}

// shouldChunk reports whether g is the configured guild and its member list
// is incomplete.
func shouldChunk(g *discordgo.GuildCreate, guildID string) bool {
	if g == nil || g.Guild == nil || g.ID != guildID || g.Unavailable {
		return false
	}
	return len(g.Members) < g.MemberCount
}

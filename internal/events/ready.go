// Package events provides event handlers for the bot
package events

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/AppealBotGo/pkg/discord"
	"github.com/PancyStudios/AppealBotGo/pkg/logger"
)

const statusText = "📨 Обжалования"

// RegisterReadyEvent registers the ready event handler
func RegisterReadyEvent(client *discord.ExtendedClient) {
	client.EventHandler.OnReady(onReady)
}

// onReady is called when the bot successfully connects to Discord
func onReady(s *discordgo.Session, r *discordgo.Ready) {
	logger.Success(fmt.Sprintf("✅ Бот подключен: %s", r.User.Username), "Ready")
	logger.Info(fmt.Sprintf("📊 Подключен к %d серверам", len(r.Guilds)), "Ready")

	if err := s.UpdateGameStatus(0, statusText); err != nil {
		logger.Error(fmt.Sprintf("Ошибка установки статуса: %v", err), "Ready")
		return
	}

	logger.Debug("Статус бота установлен", "Ready")
}

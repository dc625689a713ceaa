package appeal

import (
	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/AppealBotGo/pkg/discord"
	"github.com/PancyStudios/AppealBotGo/pkg/errors"
	"github.com/PancyStudios/AppealBotGo/pkg/logger"
)

// SessionPlatform serves channel lookups from the state cache before REST
type SessionPlatform struct {
	*discordgo.Session
}

func (p SessionPlatform) Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if p.State != nil {
		if ch, err := p.State.Channel(channelID); err == nil {
			return ch, nil
		}
	}
	return p.Session.Channel(channelID, options...)
}

// Register binds the flow to the client's components and thread events
func Register(client *discord.ExtendedClient, flow *Flow) {
	client.Components.Set(discord.NewComponent(RouteMenu, "Меню обжалования", func(ctx *discord.ComponentContext) error {
		return flow.HandleMenu(ctx.Interaction.Interaction)
	}))

	for kind, texts := range kinds {
		client.Components.Set(discord.NewComponent(texts.route, texts.button, func(ctx *discord.ComponentContext) error {
			return flow.HandleKind(ctx.Interaction.Interaction, kind, firstArg(ctx.Args))
		}))
	}

	client.Components.Set(discord.NewComponent(RouteSelect, "Выбор наказания", func(ctx *discord.ComponentContext) error {
		return flow.HandleSelect(ctx.Interaction.Interaction, firstArg(ctx.Args), ctx.Values())
	}))

	client.EventHandler.OnThreadCreate(func(s *discordgo.Session, t *discordgo.ThreadCreate) {
		defer errors.RecoverMiddleware()()
		flow.HandleThreadCreate(t)
	})

	logger.System("Обработчики обжалований зарегистрированы", "Appeal")
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

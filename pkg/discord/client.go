// Package discord provides the Discord bot client and related structures.
// It wraps discordgo with component routing, event registration, a first-message
// waiter and guild member lookups.
package discord

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/AppealBotGo/pkg/errors"
	"github.com/PancyStudios/AppealBotGo/pkg/logger"
)

func init() {
	discordgo.Logger = func(msgL int, caller int, format string, a ...interface{}) {
		logger.Info(fmt.Sprintf(format, a...), "DiscordGo")
	}
}

// ExtendedClient wraps discordgo.Session with additional functionality
type ExtendedClient struct {
	Session      *discordgo.Session
	Components   *ComponentCollection
	EventHandler *EventHandler
	Waiter       *MessageWaiter
	Roster       *GuildRoster
	StartTime    time.Time
	mu           sync.RWMutex
	isReady      bool
}

var (
	client *ExtendedClient
	once   sync.Once
)

// Init initializes the global Discord client
func Init(token string) (*ExtendedClient, error) {
	var err error
	once.Do(func() {
		client, err = NewClient(token)
	})
	return client, err
}

// Get returns the global Discord client
func Get() *ExtendedClient {
	return client
}

// NewClient creates a new ExtendedClient
func NewClient(token string) (*ExtendedClient, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	// members are needed for the judge roster
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers

	session.ShardCount = 1
	session.SyncEvents = false
	session.StateEnabled = true
	session.State.TrackMembers = true
	session.State.TrackRoles = true
	session.LogLevel = discordgo.LogWarning

	c := &ExtendedClient{
		Session:    session,
		Components: NewComponentCollection(),
		Waiter:     NewMessageWaiter(5 * time.Second),
		Roster:     NewGuildRoster(session),
	}
	c.EventHandler = NewEventHandler(c)

	return c, nil
}

// Start registers the built-in handlers and opens the gateway connection
func (c *ExtendedClient) Start() error {
	c.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		c.mu.Lock()
		c.isReady = true
		c.mu.Unlock()

		logger.Success("Бот подключен как: "+r.User.Username, "Client")
	})

	c.Session.AddHandler(c.handleInteraction)
	c.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		c.Waiter.Dispatch(m.Message)
	})

	logger.System(fmt.Sprintf("Зарегистрировано компонентов: %d", c.Components.Size()), "Client")

	c.StartTime = time.Now()

	return c.Session.Open()
}

// handleInteraction routes message component interactions by custom id
func (c *ExtendedClient) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer errors.RecoverMiddleware()()

	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	customID := i.MessageComponentData().CustomID
	route, args := SplitCustomID(customID)

	comp, ok := c.Components.Get(route)
	if !ok {
		logger.Debug("Необработанный компонент: "+customID, "Client")
		return
	}

	ctx := &ComponentContext{
		Session:     s,
		Interaction: i,
		Client:      c,
		Args:        args,
	}

	if err := comp.Run(ctx); err != nil {
		logger.Error(fmt.Sprintf("Ошибка компонента %s: %v", route, err), "Client")
	}
}

// Stop stops the bot and closes the session
func (c *ExtendedClient) Stop() error {
	c.mu.Lock()
	c.isReady = false
	c.mu.Unlock()

	if c.Session != nil {
		return c.Session.Close()
	}
	return nil
}

// IsReady returns true if the bot is ready
func (c *ExtendedClient) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReady
}

// GetStatus reports the gateway state for the status API
func (c *ExtendedClient) GetStatus() (string, bool) {
	if c.IsReady() {
		return fmt.Sprintf("🟢 | В сети (%d серверов)", c.GuildCount()), true
	}
	return "🔴 | Отключен", false
}

// GuildCount returns the number of guilds the bot is in
func (c *ExtendedClient) GuildCount() int {
	if c.Session == nil || c.Session.State == nil {
		return 0
	}
	c.Session.State.RLock()
	defer c.Session.State.RUnlock()
	return len(c.Session.State.Guilds)
}

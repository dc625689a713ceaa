// Package discord provides message component types and response helpers.
package discord

import (
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Responder is the part of *discordgo.Session used to answer interactions
// and post into channels.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ComponentContext provides context for component execution
type ComponentContext struct {
	Session     *discordgo.Session
	Interaction *discordgo.InteractionCreate
	Client      *ExtendedClient
	Args        []string
}

// ComponentRunFunc is the function type for component execution
type ComponentRunFunc func(ctx *ComponentContext) error

// Component handles every custom id that starts with Route
type Component struct {
	Route       string
	Description string
	Run         ComponentRunFunc
}

// NewComponent creates a new Component with required fields
func NewComponent(route, description string, run ComponentRunFunc) *Component {
	return &Component{
		Route:       route,
		Description: description,
		Run:         run,
	}
}

// ComponentCollection holds registered components
type ComponentCollection struct {
	components map[string]*Component
	mu         sync.RWMutex
}

// NewComponentCollection creates a new ComponentCollection
func NewComponentCollection() *ComponentCollection {
	return &ComponentCollection{
		components: make(map[string]*Component),
	}
}

// Set adds or updates a component
func (cc *ComponentCollection) Set(comp *Component) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.components[comp.Route] = comp
}

// Get retrieves a component by route
func (cc *ComponentCollection) Get(route string) (*Component, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	comp, ok := cc.components[route]
	return comp, ok
}

// Size returns the number of components
func (cc *ComponentCollection) Size() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.components)
}

// SplitCustomID splits "scope:action:arg1:arg2" into the route "scope:action"
// and the remaining arguments.
func SplitCustomID(customID string) (string, []string) {
	parts := strings.Split(customID, ":")
	if len(parts) <= 2 {
		return customID, nil
	}
	return parts[0] + ":" + parts[1], parts[2:]
}

// CustomID joins a route and its arguments
func CustomID(route string, args ...string) string {
	if len(args) == 0 {
		return route
	}
	return route + ":" + strings.Join(args, ":")
}

// Respond sends a visible message in reply to the interaction
func Respond(r Responder, i *discordgo.Interaction, content string, components ...discordgo.MessageComponent) error {
	return r.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:         content,
			Components:      components,
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		},
	})
}

// RespondEphemeral sends a reply visible only to the user
func RespondEphemeral(r Responder, i *discordgo.Interaction, content string, components ...discordgo.MessageComponent) error {
	return r.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
}

// Acknowledge closes the interaction without changing the message
func Acknowledge(r Responder, i *discordgo.Interaction) error {
	return r.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

// FollowUp posts a message after the interaction has been answered.
// Only users listed in mentionUsers and roles in mentionRoles are pinged.
func FollowUp(r Responder, i *discordgo.Interaction, content string, mentionUsers, mentionRoles []string) error {
	_, err := r.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
		Content: content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: mentionUsers,
			Roles: mentionRoles,
		},
	})
	return err
}

// RespondEphemeral sends a reply visible only to the user
func (ctx *ComponentContext) RespondEphemeral(content string, components ...discordgo.MessageComponent) error {
	return RespondEphemeral(ctx.Session, ctx.Interaction.Interaction, content, components...)
}

// Acknowledge closes the interaction without a reply
func (ctx *ComponentContext) Acknowledge() error {
	return Acknowledge(ctx.Session, ctx.Interaction.Interaction)
}

// Values returns the selected values of a select menu
func (ctx *ComponentContext) Values() []string {
	return ctx.Interaction.MessageComponentData().Values
}

// User returns the user who triggered the interaction
func (ctx *ComponentContext) User() *discordgo.User {
	if ctx.Interaction.Member != nil {
		return ctx.Interaction.Member.User
	}
	return ctx.Interaction.User
}

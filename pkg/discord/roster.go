package discord

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

var (
	ErrGuildNotFound = errors.New("discord: guild not found")
	ErrRoleNotFound  = errors.New("discord: role not found")
)

const membersPageSize = 1000

// GuildRoster answers role and member questions from the state cache and
// falls back to REST when the cache is incomplete.
type GuildRoster struct {
	session *discordgo.Session
}

func NewGuildRoster(session *discordgo.Session) *GuildRoster {
	return &GuildRoster{session: session}
}

// Role looks a role up in guildID
func (r *GuildRoster) Role(guildID, roleID string) (*discordgo.Role, error) {
	if st := r.session.State; st != nil {
		if role, err := st.Role(guildID, roleID); err == nil {
			return role, nil
		}
	}

	roles, err := r.session.GuildRoles(guildID)
	if err != nil {
		return nil, restError(err)
	}
	for _, role := range roles {
		if role.ID == roleID {
			return role, nil
		}
	}
	return nil, ErrRoleNotFound
}

// Members lists every member of guildID
func (r *GuildRoster) Members(guildID string) ([]*discordgo.Member, error) {
	if members, ok := r.cachedMembers(guildID); ok {
		return members, nil
	}

	var (
		all   []*discordgo.Member
		after string
	)
	for {
		page, err := r.session.GuildMembers(guildID, after, membersPageSize)
		if err != nil {
			return nil, restError(err)
		}
		all = append(all, page...)
		if len(page) < membersPageSize {
			return all, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// RequestChunk asks the gateway to stream every member of guildID into state
func (r *GuildRoster) RequestChunk(guildID string) error {
	return r.session.RequestGuildMembers(guildID, "", 0, "", false)
}

// cachedMembers returns the state members when the cache holds the whole guild
func (r *GuildRoster) cachedMembers(guildID string) ([]*discordgo.Member, bool) {
	st := r.session.State
	if st == nil {
		return nil, false
	}

	guild, err := st.Guild(guildID)
	if err != nil {
		return nil, false
	}

	st.RLock()
	defer st.RUnlock()

	if len(guild.Members) == 0 {
		return nil, false
	}
	if guild.MemberCount > 0 && len(guild.Members) < guild.MemberCount {
		return nil, false
	}

	members := make([]*discordgo.Member, len(guild.Members))
	copy(members, guild.Members)
	return members, true
}

func restError(err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrGuildNotFound, err)
	}
	return err
}

package appeal

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/AppealBotGo/pkg/discord"
	"github.com/PancyStudios/AppealBotGo/pkg/logger"
)

// Roster is satisfied by *discord.GuildRoster
type Roster interface {
	Role(guildID, roleID string) (*discordgo.Role, error)
	Members(guildID string) ([]*discordgo.Member, error)
}

// ResolveJudges returns the current holders of the judge role, or nil when
// the role is missing or nobody holds it. Nothing is cached.
func ResolveJudges(r Roster, guildID, judgeRoleID string) []*discordgo.Member {
	if _, err := r.Role(guildID, judgeRoleID); err != nil {
		if errors.Is(err, discord.ErrGuildNotFound) {
			logger.Error(fmt.Sprintf("Гильдия с ID %s не найдена", guildID), "Appeal")
		} else {
			logger.Error(fmt.Sprintf("Роль судьи с ID %s не найдена: %v", judgeRoleID, err), "Appeal")
		}
		return nil
	}

	members, err := r.Members(guildID)
	if err != nil {
		logger.Error(fmt.Sprintf("Не удалось получить участников гильдии %s: %v", guildID, err), "Appeal")
		return nil
	}

	var judges []*discordgo.Member
	for _, m := range members {
		if hasRole(m, judgeRoleID) {
			judges = append(judges, m)
		}
	}

	if len(judges) == 0 {
		logger.Warn("Пользователей с ролью судья не обнаружено", "Appeal")
		return nil
	}
	return judges
}

// ExcludeVacationing drops members holding the vacation role
func ExcludeVacationing(members []*discordgo.Member, vacationRoleID string) []*discordgo.Member {
	if vacationRoleID == "" {
		return members
	}
	out := make([]*discordgo.Member, 0, len(members))
	for _, m := range members {
		if !hasRole(m, vacationRoleID) {
			out = append(out, m)
		}
	}
	return out
}

func hasRole(m *discordgo.Member, roleID string) bool {
	if m == nil {
		return false
	}
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

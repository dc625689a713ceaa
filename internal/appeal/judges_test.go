package appeal

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"

	"github.com/PancyStudios/AppealBotGo/pkg/discord"
)

type fakeRoster struct {
	roleErr    error
	membersErr error
	members    []*discordgo.Member
	calls      int
}

func (r *fakeRoster) Role(guildID, roleID string) (*discordgo.Role, error) {
	r.calls++
	if r.roleErr != nil {
		return nil, r.roleErr
	}
	return &discordgo.Role{ID: roleID}, nil
}

func (r *fakeRoster) Members(guildID string) ([]*discordgo.Member, error) {
	return r.members, r.membersErr
}

func member(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id}, Roles: roles}
}

func memberIDs(members []*discordgo.Member) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.User.ID)
	}
	return ids
}

func TestResolveJudges(t *testing.T) {
	r := &fakeRoster{members: []*discordgo.Member{
		member("a", "judge"),
		member("b"),
		member("c", "other", "judge", "vacation"),
	}}

	got := ResolveJudges(r, "g", "judge")
	assert.Equal(t, []string{"a", "c"}, memberIDs(got))

	// recomputed on every call
	r.members = append(r.members, member("d", "judge"))
	got = ResolveJudges(r, "g", "judge")
	assert.Equal(t, []string{"a", "c", "d"}, memberIDs(got))
	assert.Equal(t, 2, r.calls)
}

func TestResolveJudgesNothing(t *testing.T) {
	assert.Nil(t, ResolveJudges(&fakeRoster{roleErr: discord.ErrRoleNotFound}, "g", "judge"))
	assert.Nil(t, ResolveJudges(&fakeRoster{roleErr: discord.ErrGuildNotFound}, "g", "judge"))
	assert.Nil(t, ResolveJudges(&fakeRoster{membersErr: errors.New("rest down")}, "g", "judge"))
	assert.Nil(t, ResolveJudges(&fakeRoster{members: []*discordgo.Member{member("b")}}, "g", "judge"))
}

func TestExcludeVacationing(t *testing.T) {
	judges := []*discordgo.Member{
		member("a", "judge"),
		member("c", "judge", "vacation"),
		member("e", "vacation", "judge"),
	}

	assert.Equal(t, []string{"a"}, memberIDs(ExcludeVacationing(judges, "vacation")))
	assert.Equal(t, []string{"a", "c", "e"}, memberIDs(ExcludeVacationing(judges, "")))
	assert.Empty(t, ExcludeVacationing(nil, "vacation"))
}

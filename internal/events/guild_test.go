package events

import (
	"errors"
	"os"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/PancyStudios/AppealBotGo/pkg/logger"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "events-logs")
	if err != nil {
		panic(err)
	}
	logger.Init(dir, "", "")
	code := m.Run()
	logger.Get().Close()
	os.RemoveAll(dir)
	os.Exit(code)
}

type fakeChunker struct {
	requested []string
	err       error
}

func (f *fakeChunker) RequestChunk(guildID string) error {
	f.requested = append(f.requested, guildID)
	return f.err
}

func guildCreate(id string, count, cached int) *discordgo.GuildCreate {
	g := &discordgo.Guild{ID: id, Name: id, MemberCount: count}
	for i := 0; i < cached; i++ {
		g.Members = append(g.Members, &discordgo.Member{})
	}
	return &discordgo.GuildCreate{Guild: g}
}

func TestShouldChunk(t *testing.T) {
	tests := []struct {
		name string
		g    *discordgo.GuildCreate
		want bool
	}{
		{"configured guild, partial", guildCreate("g1", 500, 1), true},
		{"configured guild, complete", guildCreate("g1", 2, 2), false},
		{"other guild", guildCreate("g2", 500, 1), false},
		{"nil event", nil, false},
	}

	for _, tt := range tests {
		if got := shouldChunk(tt.g, "g1"); got != tt.want {
			t.Errorf("%s: shouldChunk() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOnGuildCreate(t *testing.T) {
	c := &fakeChunker{}
	onGuildCreate(c, "g1", guildCreate("g1", 500, 0))
	onGuildCreate(c, "g1", guildCreate("g2", 500, 0))

	if len(c.requested) != 1 || c.requested[0] != "g1" {
		t.Errorf("requested = %v, want [g1]", c.requested)
	}

	// errors are logged, not propagated
	onGuildCreate(&fakeChunker{err: errors.New("closed")}, "g1", guildCreate("g1", 500, 0))
}

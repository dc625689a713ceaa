package main

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PancyStudios/AppealBotGo/internal/appeal"
	"github.com/PancyStudios/AppealBotGo/pkg/models"
)

func TestSelectKinds(t *testing.T) {
	all, err := selectKinds("all")
	require.NoError(t, err)
	assert.Equal(t, []models.SanctionKind{models.KindServerBan, models.KindRoleBan, models.KindNote}, all)

	notes, err := selectKinds("notes")
	require.NoError(t, err)
	assert.Equal(t, []models.SanctionKind{models.KindNote}, notes)

	_, err = selectKinds("warns")
	assert.Error(t, err)
}

func TestClassification(t *testing.T) {
	c := appeal.NewClassifier([]string{"пдк"}, []string{"бво"})

	assert.Equal(t, "БВО", classification(c, "пдк, бво"))
	assert.Equal(t, "ПДК", classification(c, "ПДК"))
	assert.Equal(t, "-", classification(c, "гриф"))
}

func TestRunRejectsBadArguments(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 2, run([]string{"-player", "nope"}, &out))
	assert.Contains(t, out.String(), "Invalid -player")

	out.Reset()
	assert.Equal(t, 2, run([]string{"-player", uuid.NewString(), "-kind", "warns"}, &out))
	assert.Contains(t, out.String(), "unknown -kind")
}

// A failing kind must not swallow the rows already printed for earlier kinds
func TestRunFlushesBeforeFailing(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "game.db")
	player := uuid.MustParse("6f1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	// role bans and notes tables are missing on purpose
	_, err = db.Exec(`
CREATE TABLE server_ban (
	server_ban_id   INTEGER PRIMARY KEY,
	player_user_id  TEXT,
	banning_admin   TEXT,
	reason          TEXT NOT NULL,
	ban_time        TEXT NOT NULL,
	expiration_time TEXT
);
CREATE TABLE server_unban (
	unban_id INTEGER PRIMARY KEY,
	ban_id   INTEGER NOT NULL
);`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO server_ban (server_ban_id, player_user_id, banning_admin, reason, ban_time, expiration_time) VALUES (?, ?, NULL, ?, ?, NULL)`,
		7, strings.ToUpper(player.String()), "гриф станции", "2024-01-01 00:00:00.0000000")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	t.Setenv("databaseEngine", "sqlite")
	t.Setenv("databaseUrl", dbPath)
	t.Setenv("logsDir", filepath.Join(dir, "logs"))
	t.Setenv("appealConfig", filepath.Join(dir, "missing.json"))

	var out bytes.Buffer
	code := run([]string{"-player", player.String()}, &out)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "== serverbans (1)")
	assert.Contains(t, out.String(), "гриф станции")
	assert.NotContains(t, out.String(), "== rolebans")
}

package sanctions

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PancyStudios/AppealBotGo/pkg/models"
)

var (
	fixtureNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	player     = uuid.MustParse("6f1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d")
	otherGuy   = uuid.MustParse("0a0b0c0d-1e1f-4a2b-8c3d-4e5f6a7b8c9d")
	admin      = uuid.MustParse("11111111-2222-4333-8444-555555555555")
)

func at(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

const sqliteSchema = `
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
);
CREATE TABLE server_role_ban (
	server_role_ban_id INTEGER PRIMARY KEY,
	player_user_id     TEXT,
	banning_admin      TEXT,
	role_id            TEXT NOT NULL,
	reason             TEXT NOT NULL,
	ban_time           TEXT NOT NULL,
	expiration_time    TEXT
);
CREATE TABLE server_role_unban (
	role_unban_id INTEGER PRIMARY KEY,
	ban_id        INTEGER NOT NULL
);
CREATE TABLE admin_notes (
	admin_notes_id  INTEGER PRIMARY KEY,
	player_user_id  TEXT NOT NULL,
	created_by_id   TEXT,
	message         TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	expiration_time TEXT,
	deleted         INTEGER NOT NULL DEFAULT 0
);`

// seeder converts fixture values into what each engine stores
type seeder struct {
	db     *sql.DB
	engine Engine
}

func (s seeder) id(u *uuid.UUID) any {
	if u == nil {
		return nil
	}
	if s.engine == EngineSQLite {
		return strings.ToUpper(u.String())
	}
	return u.String()
}

func (s seeder) ts(t *time.Time) any {
	if t == nil {
		return nil
	}
	if s.engine == EngineSQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return *t
}

func (s seeder) exec(t *testing.T, q string, args ...any) {
	t.Helper()
	_, err := s.db.Exec(rebind(s.engine, q), args...)
	require.NoError(t, err)
}

func (s seeder) serverBan(t *testing.T, id int64, who uuid.UUID, by *uuid.UUID, reason string, banned, expires *time.Time) {
	s.exec(t, `INSERT INTO server_ban (server_ban_id, player_user_id, banning_admin, reason, ban_time, expiration_time) VALUES (?, ?, ?, ?, ?, ?)`,
		id, s.id(&who), s.id(by), reason, s.ts(banned), s.ts(expires))
}

func (s seeder) roleBan(t *testing.T, id int64, who uuid.UUID, by *uuid.UUID, role, reason string, banned, expires *time.Time) {
	s.exec(t, `INSERT INTO server_role_ban (server_role_ban_id, player_user_id, banning_admin, role_id, reason, ban_time, expiration_time) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, s.id(&who), s.id(by), role, reason, s.ts(banned), s.ts(expires))
}

func (s seeder) note(t *testing.T, id int64, who uuid.UUID, by *uuid.UUID, message string, created, expires *time.Time, deleted bool) {
	s.exec(t, `INSERT INTO admin_notes (admin_notes_id, player_user_id, created_by_id, message, created_at, expiration_time, deleted) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, s.id(&who), s.id(by), message, s.ts(created), s.ts(expires), deleted)
}

func seedFixtures(t *testing.T, s seeder) {
	t.Helper()
	now := fixtureNow

	s.serverBan(t, 1, player, &admin, "перма дк", at(2024, 1, 1), nil)
	s.serverBan(t, 2, player, nil, "гриф", at(2024, 5, 20), at(2024, 7, 1))
	s.serverBan(t, 3, player, &admin, "expired", at(2024, 4, 1), at(2024, 5, 1))
	s.serverBan(t, 4, player, &admin, "lifted", at(2024, 4, 1), nil)
	s.serverBan(t, 5, otherGuy, &admin, "someone else", at(2024, 4, 1), nil)
	s.serverBan(t, 6, player, &admin, "ends right now", at(2024, 4, 1), &now)
	s.exec(t, `INSERT INTO server_unban (unban_id, ban_id) VALUES (?, ?)`, 1, 4)

	s.roleBan(t, 10, player, &admin, "Job:Captain", "бво", at(2024, 3, 1), nil)
	s.roleBan(t, 11, player, &admin, "Job:Security", "lifted", at(2024, 3, 1), at(2025, 1, 1))
	s.roleBan(t, 12, player, &admin, "Job:Chef", "expired", at(2024, 3, 1), at(2024, 3, 2))
	s.exec(t, `INSERT INTO server_role_unban (role_unban_id, ban_id) VALUES (?, ?)`, 1, 11)

	s.note(t, 20, player, &admin, "warned", at(2024, 2, 1), nil, false)
	s.note(t, 21, player, &admin, "deleted", at(2024, 2, 1), nil, true)
	s.note(t, 22, player, &admin, "expired", at(2024, 2, 1), at(2024, 2, 2), false)
	s.note(t, 23, player, nil, "anonymous", at(2024, 2, 1), at(2024, 12, 31), false)
}

func ids[T models.Sanction](items []T) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, item.RecordID())
	}
	return out
}

// runStoreSuite checks the active rules against a seeded database of either engine
func runStoreSuite(t *testing.T, store *Store) {
	ctx := context.Background()

	t.Run("server bans", func(t *testing.T) {
		bans, err := store.ActiveServerBans(ctx, player)
		require.NoError(t, err)
		require.Equal(t, []int64{1, 2}, ids(bans))

		assert.Equal(t, player, bans[0].PlayerUserID)
		assert.True(t, bans[0].BanningAdmin.Valid)
		assert.Equal(t, admin, bans[0].BanningAdmin.UUID)
		assert.Equal(t, "перма дк", bans[0].Reason)
		assert.Nil(t, bans[0].ExpirationTime)
		assert.True(t, bans[0].BanTime.Equal(*at(2024, 1, 1)))

		assert.False(t, bans[1].BanningAdmin.Valid)
		require.NotNil(t, bans[1].ExpirationTime)
		assert.True(t, bans[1].ExpirationTime.Equal(*at(2024, 7, 1)))
	})

	t.Run("role bans", func(t *testing.T) {
		bans, err := store.ActiveRoleBans(ctx, player)
		require.NoError(t, err)
		require.Equal(t, []int64{10}, ids(bans))
		assert.Equal(t, "Job:Captain", bans[0].RoleID)
		assert.Equal(t, "бво", bans[0].Reason)
	})

	t.Run("notes", func(t *testing.T) {
		notes, err := store.ActiveNotes(ctx, player)
		require.NoError(t, err)
		require.Equal(t, []int64{20, 23}, ids(notes))
		assert.Equal(t, "warned", notes[0].Message)
		assert.False(t, notes[1].CreatedBy.Valid)
	})

	t.Run("unknown player", func(t *testing.T) {
		bans, err := store.ActiveServerBans(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, bans)

		notes, err := store.ActiveNotes(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, notes)
	})

	t.Run("clock moves expiry", func(t *testing.T) {
		later := New(store.db, store.engine, WithClock(func() time.Time { return *at(2024, 8, 1) }))
		bans, err := later.ActiveServerBans(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids(bans))
	})
}

func openSQLite(t *testing.T) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ss14.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(sqliteSchema)
	require.NoError(t, err)
	return db, path
}

func TestStoreSQLite(t *testing.T) {
	db, path := openSQLite(t)
	seedFixtures(t, seeder{db: db, engine: EngineSQLite})

	store, err := Open(context.Background(), EngineSQLite, path, WithClock(func() time.Time { return fixtureNow }))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))
	runStoreSuite(t, store)
}

func TestStoreClosedDatabase(t *testing.T) {
	db, _ := openSQLite(t)
	store := New(db, EngineSQLite)
	require.NoError(t, store.Close())

	_, err := store.ActiveRoleBans(context.Background(), player)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "role bans")
}

func TestRebind(t *testing.T) {
	q := "SELECT 1 WHERE a = ? AND b > ?"

	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b > $2", rebind(EnginePostgres, q))
	assert.Equal(t, q, rebind(EngineSQLite, q))
}

func TestPrepareFilter(t *testing.T) {
	pg := New(nil, EnginePostgres)
	lite := New(nil, EngineSQLite)

	assert.Contains(t, pg.prepare(notesQuery, "n.player_user_id"), "n.player_user_id = $1")
	assert.Contains(t, pg.prepare(notesQuery, "n.player_user_id"), "n.expiration_time > $2")
	assert.Contains(t, lite.prepare(notesQuery, "n.player_user_id"), "n.player_user_id = ? COLLATE NOCASE")
}

func TestParseEngine(t *testing.T) {
	tests := []struct {
		in      string
		want    Engine
		wantErr bool
	}{
		{"postgres", EnginePostgres, false},
		{" PostgreSQL ", EnginePostgres, false},
		{"sqlite", EngineSQLite, false},
		{"sqlite3", EngineSQLite, false},
		{"mysql", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEngine(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDBTimeScan(t *testing.T) {
	want := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		src  any
	}{
		{"native", want.In(time.FixedZone("MSK", 3*3600))},
		{"sqlite text", "2024-06-01 12:30:00.0000000"},
		{"sqlite text without fraction", "2024-06-01 12:30:00"},
		{"text with offset", "2024-06-01 15:30:00+03:00"},
		{"rfc3339 bytes", []byte("2024-06-01T12:30:00Z")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d dbTime
			require.NoError(t, d.Scan(tt.src))
			require.NotNil(t, d.ptr())
			assert.True(t, d.ptr().Equal(want), "got %v", d.t)
		})
	}

	var d dbTime
	require.NoError(t, d.Scan(nil))
	assert.Nil(t, d.ptr())

	assert.Error(t, d.Scan("yesterday"))
	assert.Error(t, d.Scan(42))
}

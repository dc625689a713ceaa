// Package sanctions reads active bans, role bans and admin notes from the game
// server database. The schema is owned by the game server; this package never writes.
package sanctions

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/PancyStudios/AppealBotGo/pkg/models"
)

// Engine is the database flavour the game server runs on
type Engine string

const (
	EnginePostgres Engine = "postgres"
	EngineSQLite   Engine = "sqlite"
)

// sqliteTimeLayout is the fixed-width rendering the game server uses for TEXT timestamps
const sqliteTimeLayout = "2006-01-02 15:04:05.0000000"

// ParseEngine validates an engine name from configuration
func ParseEngine(name string) (Engine, error) {
	switch Engine(strings.ToLower(strings.TrimSpace(name))) {
	case EnginePostgres, "postgresql", "pgx":
		return EnginePostgres, nil
	case EngineSQLite, "sqlite3":
		return EngineSQLite, nil
	default:
		return "", fmt.Errorf("unknown database engine %q", name)
	}
}

func (e Engine) driver() string {
	if e == EngineSQLite {
		return "sqlite"
	}
	return "pgx"
}

// Store answers the three "what is active for this player" queries
type Store struct {
	db     *sql.DB
	engine Engine
	now    func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces the wall clock used for expiry checks
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open connects to the game server database and verifies the connection
func Open(ctx context.Context, engine Engine, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open(engine.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sanctions: open %s: %w", engine, err)
	}

	if engine == EngineSQLite {
		// the game server holds the write lock while it runs
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sanctions: set busy_timeout: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sanctions: ping %s: %w", engine, err)
	}

	return New(db, engine, opts...), nil
}

// New wraps an already opened database
func New(db *sql.DB, engine Engine, opts ...Option) *Store {
	s := &Store{
		db:     db,
		engine: engine,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the engine the store was opened with
func (s *Store) Engine() Engine {
	return s.engine
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

const serverBansQuery = `
SELECT b.server_ban_id, b.player_user_id, b.banning_admin, b.reason, b.ban_time, b.expiration_time
FROM server_ban b
LEFT JOIN server_unban u ON u.ban_id = b.server_ban_id
WHERE %s
  AND u.unban_id IS NULL
  AND (b.expiration_time IS NULL OR b.expiration_time > ?)
ORDER BY b.server_ban_id`

const roleBansQuery = `
SELECT b.server_role_ban_id, b.player_user_id, b.banning_admin, b.role_id, b.reason, b.ban_time, b.expiration_time
FROM server_role_ban b
LEFT JOIN server_role_unban u ON u.ban_id = b.server_role_ban_id
WHERE %s
  AND u.role_unban_id IS NULL
  AND (b.expiration_time IS NULL OR b.expiration_time > ?)
ORDER BY b.server_role_ban_id`

const notesQuery = `
SELECT n.admin_notes_id, n.player_user_id, n.created_by_id, n.message, n.created_at, n.expiration_time
FROM admin_notes n
WHERE %s
  AND n.deleted = FALSE
  AND (n.expiration_time IS NULL OR n.expiration_time > ?)
ORDER BY n.admin_notes_id`

// ActiveServerBans returns the player's server bans that are neither lifted nor expired
func (s *Store) ActiveServerBans(ctx context.Context, userID uuid.UUID) ([]models.ServerBan, error) {
	return query(ctx, s, "server bans", s.prepare(serverBansQuery, "b.player_user_id"), func(rows *sql.Rows) (models.ServerBan, error) {
		var (
			ban     models.ServerBan
			reason  sql.NullString
			issued  dbTime
			expires dbTime
		)
		err := rows.Scan(&ban.ID, &ban.PlayerUserID, &ban.BanningAdmin, &reason, &issued, &expires)
		ban.Reason = reason.String
		ban.BanTime = issued.t
		ban.ExpirationTime = expires.ptr()
		return ban, err
	}, userID, s.bindNow())
}

// ActiveRoleBans returns the player's role bans that are neither lifted nor expired
func (s *Store) ActiveRoleBans(ctx context.Context, userID uuid.UUID) ([]models.RoleBan, error) {
	return query(ctx, s, "role bans", s.prepare(roleBansQuery, "b.player_user_id"), func(rows *sql.Rows) (models.RoleBan, error) {
		var (
			ban     models.RoleBan
			reason  sql.NullString
			issued  dbTime
			expires dbTime
		)
		err := rows.Scan(&ban.ID, &ban.PlayerUserID, &ban.BanningAdmin, &ban.RoleID, &reason, &issued, &expires)
		ban.Reason = reason.String
		ban.BanTime = issued.t
		ban.ExpirationTime = expires.ptr()
		return ban, err
	}, userID, s.bindNow())
}

// ActiveNotes returns the player's admin notes that are not deleted and not expired
func (s *Store) ActiveNotes(ctx context.Context, userID uuid.UUID) ([]models.AdminNote, error) {
	return query(ctx, s, "admin notes", s.prepare(notesQuery, "n.player_user_id"), func(rows *sql.Rows) (models.AdminNote, error) {
		var (
			note    models.AdminNote
			message sql.NullString
			created dbTime
			expires dbTime
		)
		err := rows.Scan(&note.ID, &note.PlayerUserID, &note.CreatedBy, &message, &created, &expires)
		note.Message = message.String
		note.CreatedAt = created.t
		note.ExpirationTime = expires.ptr()
		return note, err
	}, userID, s.bindNow())
}

func query[T any](ctx context.Context, s *Store, what, q string, scan func(*sql.Rows) (T, error), args ...any) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sanctions: query %s: %w", what, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("sanctions: scan %s: %w", what, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sanctions: read %s: %w", what, err)
	}
	return out, nil
}

// prepare fills in the player filter and rebinds placeholders for the engine
func (s *Store) prepare(q, userColumn string) string {
	filter := userColumn + " = ?"
	if s.engine == EngineSQLite {
		// guids are stored upper-case as TEXT
		filter += " COLLATE NOCASE"
	}
	return rebind(s.engine, fmt.Sprintf(q, filter))
}

// bindNow renders the current time in the form the engine compares against
func (s *Store) bindNow() any {
	now := s.now().UTC()
	if s.engine == EngineSQLite {
		return now.Format(sqliteTimeLayout)
	}
	return now
}

// rebind turns ? placeholders into $1..$n for postgres
func rebind(engine Engine, q string) string {
	if engine != EnginePostgres {
		return q
	}

	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var dbTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	time.RFC3339Nano,
}

// dbTime scans native timestamps as well as the TEXT columns SQLite uses
type dbTime struct {
	t     time.Time
	valid bool
}

func (d *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.t, d.valid = time.Time{}, false
		return nil
	case time.Time:
		d.t, d.valid = v.UTC(), true
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (d *dbTime) parse(s string) error {
	for _, layout := range dbTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.t, d.valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

func (d dbTime) ptr() *time.Time {
	if !d.valid {
		return nil
	}
	t := d.t
	return &t
}

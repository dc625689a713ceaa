package models

import (
	"time"

	"github.com/google/uuid"
)

// SanctionKind identifies one of the three record families shown to a player
type SanctionKind string

const (
	KindServerBan SanctionKind = "serverbans"
	KindRoleBan   SanctionKind = "rolebans"
	KindNote      SanctionKind = "notes"
)

// Sanction is the read-only view the appeal menus render.
type Sanction interface {
	Kind() SanctionKind
	RecordID() int64
	// IssuedBy is the admin's player id, invalid when the record has none
	IssuedBy() uuid.NullUUID
	IssuedAt() time.Time
	// ExpiresAt is nil for permanent records
	ExpiresAt() *time.Time
	Text() string
}

// ServerBan is a row of server_ban without a matching server_unban
type ServerBan struct {
	ID             int64
	PlayerUserID   uuid.UUID
	BanningAdmin   uuid.NullUUID
	Reason         string
	BanTime        time.Time
	ExpirationTime *time.Time
}

func (b ServerBan) Kind() SanctionKind      { return KindServerBan }
func (b ServerBan) RecordID() int64         { return b.ID }
func (b ServerBan) IssuedBy() uuid.NullUUID { return b.BanningAdmin }
func (b ServerBan) IssuedAt() time.Time     { return b.BanTime }
func (b ServerBan) ExpiresAt() *time.Time   { return b.ExpirationTime }
func (b ServerBan) Text() string            { return b.Reason }

// RoleBan is a row of server_role_ban without a matching server_role_unban.
// RoleID is the game role identifier, e.g. "Job:Captain".
type RoleBan struct {
	ID             int64
	PlayerUserID   uuid.UUID
	BanningAdmin   uuid.NullUUID
	RoleID         string
	Reason         string
	BanTime        time.Time
	ExpirationTime *time.Time
}

func (b RoleBan) Kind() SanctionKind      { return KindRoleBan }
func (b RoleBan) RecordID() int64         { return b.ID }
func (b RoleBan) IssuedBy() uuid.NullUUID { return b.BanningAdmin }
func (b RoleBan) IssuedAt() time.Time     { return b.BanTime }
func (b RoleBan) ExpiresAt() *time.Time   { return b.ExpirationTime }
func (b RoleBan) Text() string            { return b.Reason }

// AdminNote is a non-deleted admin_notes row, shown to players as a warning
type AdminNote struct {
	ID             int64
	PlayerUserID   uuid.UUID
	CreatedBy      uuid.NullUUID
	Message        string
	CreatedAt      time.Time
	ExpirationTime *time.Time
}

func (n AdminNote) Kind() SanctionKind      { return KindNote }
func (n AdminNote) RecordID() int64         { return n.ID }
func (n AdminNote) IssuedBy() uuid.NullUUID { return n.CreatedBy }
func (n AdminNote) IssuedAt() time.Time     { return n.CreatedAt }
func (n AdminNote) ExpiresAt() *time.Time   { return n.ExpirationTime }
func (n AdminNote) Text() string            { return n.Message }

// Active reports whether a record with the given expiry is still in force at now.
// Unban rows are checked by the store, not here.
func Active(s Sanction, now time.Time) bool {
	exp := s.ExpiresAt()
	return exp == nil || exp.After(now)
}

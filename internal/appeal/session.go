package appeal

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PancyStudios/AppealBotGo/pkg/models"
)

// Session is the state behind one ephemeral view. It is immutable once opened;
// only its deadline moves.
type Session struct {
	ID       string
	OwnerID  string
	ThreadID string
	GuildID  string
	PlayerID uuid.UUID
	Records  []models.Sanction

	timeout time.Duration
	expires time.Time
	timer   *time.Timer
}

// SessionStore keeps sessions in memory until they go idle
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Open stores s under a fresh id and drops it after timeout without use
func (st *SessionStore) Open(s Session, timeout time.Duration) *Session {
	sess := &s
	sess.ID = uuid.NewString()
	sess.timeout = timeout

	st.mu.Lock()
	defer st.mu.Unlock()

	sess.expires = st.now().Add(timeout)
	sess.timer = time.AfterFunc(timeout, func() { st.expire(sess) })
	st.sessions[sess.ID] = sess
	return sess
}

// Get returns a live session and pushes its deadline back
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	now := st.now()
	if !now.Before(sess.expires) {
		sess.timer.Stop()
		delete(st.sessions, id)
		return nil, false
	}
	sess.expires = now.Add(sess.timeout)
	sess.timer.Reset(sess.timeout)
	return sess, true
}

// Len returns the number of live sessions
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Clear stops every timer and forgets all sessions
func (st *SessionStore) Clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, sess := range st.sessions {
		sess.timer.Stop()
		delete(st.sessions, id)
	}
}

func (st *SessionStore) expire(sess *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	// a Get may have extended the deadline after the timer fired
	if cur, ok := st.sessions[sess.ID]; ok && cur == sess && !st.now().Before(sess.expires) {
		delete(st.sessions, sess.ID)
	}
}

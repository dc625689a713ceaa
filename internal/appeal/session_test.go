package appeal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIdleExpiry(t *testing.T) {
	st := NewSessionStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }
	defer st.Clear()

	sess := st.Open(Session{OwnerID: "u1", ThreadID: "t1"}, time.Minute)
	require.NotEmpty(t, sess.ID)

	now = now.Add(50 * time.Second)
	got, ok := st.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, "u1", got.OwnerID)

	// use pushed the deadline back
	now = now.Add(50 * time.Second)
	_, ok = st.Get(sess.ID)
	require.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = st.Get(sess.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, st.Len())
}

func TestSessionTimerRemovesIdleSession(t *testing.T) {
	st := NewSessionStore()
	st.Open(Session{OwnerID: "u1"}, 10*time.Millisecond)
	assert.Equal(t, 1, st.Len())

	assert.Eventually(t, func() bool { return st.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSessionIDsAreUnique(t *testing.T) {
	st := NewSessionStore()
	defer st.Clear()

	a := st.Open(Session{}, time.Minute)
	b := st.Open(Session{}, time.Minute)
	assert.NotEqual(t, a.ID, b.ID)

	_, ok := st.Get("unknown")
	assert.False(t, ok)

	st.Clear()
	assert.Equal(t, 0, st.Len())
	_, ok = st.Get(a.ID)
	assert.False(t, ok)
}

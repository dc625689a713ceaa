package discord

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ErrWaitTimeout is returned when no matching message arrived in time
var ErrWaitTimeout = errors.New("discord: timed out waiting for message")

// MessageFilter reports whether a message satisfies a wait
type MessageFilter func(m *discordgo.Message) bool

type pendingWait struct {
	filter MessageFilter
	ch     chan *discordgo.Message
}

type recentMessage struct {
	msg *discordgo.Message
	at  time.Time
}

// MessageWaiter hands MESSAGE_CREATE events to goroutines blocked in Wait.
// Messages nobody was waiting for are kept for a short retention window so a
// wait registered slightly after the event still sees it.
type MessageWaiter struct {
	mu        sync.Mutex
	waits     map[string][]*pendingWait
	backlog   map[string][]recentMessage
	retention time.Duration
	now       func() time.Time
}

// NewMessageWaiter creates a waiter keeping unclaimed messages for retention
func NewMessageWaiter(retention time.Duration) *MessageWaiter {
	return &MessageWaiter{
		waits:     make(map[string][]*pendingWait),
		backlog:   make(map[string][]recentMessage),
		retention: retention,
		now:       time.Now,
	}
}

// Wait blocks until a message in channelID passes filter, the timeout
// elapses or ctx is cancelled.
func (w *MessageWaiter) Wait(ctx context.Context, channelID string, filter MessageFilter, timeout time.Duration) (*discordgo.Message, error) {
	w.mu.Lock()
	if m := w.takeRecent(channelID, filter); m != nil {
		w.mu.Unlock()
		return m, nil
	}
	pw := &pendingWait{filter: filter, ch: make(chan *discordgo.Message, 1)}
	w.waits[channelID] = append(w.waits[channelID], pw)
	w.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case m := <-pw.ch:
		return m, nil
	case <-timer.C:
		return w.abandon(channelID, pw, ErrWaitTimeout)
	case <-ctx.Done():
		return w.abandon(channelID, pw, ctx.Err())
	}
}

// abandon unregisters pw. A message delivered between expiry and removal wins.
func (w *MessageWaiter) abandon(channelID string, pw *pendingWait, cause error) (*discordgo.Message, error) {
	w.mu.Lock()
	w.removeWait(channelID, pw)
	w.mu.Unlock()

	select {
	case m := <-pw.ch:
		return m, nil
	default:
		return nil, cause
	}
}

// Dispatch offers m to the oldest matching wait on its channel
func (w *MessageWaiter) Dispatch(m *discordgo.Message) {
	if m == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, pw := range w.waits[m.ChannelID] {
		if pw.filter == nil || pw.filter(m) {
			w.removeWait(m.ChannelID, pw)
			pw.ch <- m
			return
		}
	}

	if w.retention <= 0 {
		return
	}
	now := w.now()
	w.prune(now)
	w.backlog[m.ChannelID] = append(w.backlog[m.ChannelID], recentMessage{msg: m, at: now})
}

// Pending returns the number of waits registered on channelID
func (w *MessageWaiter) Pending(channelID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.waits[channelID])
}

func (w *MessageWaiter) takeRecent(channelID string, filter MessageFilter) *discordgo.Message {
	w.prune(w.now())
	recent := w.backlog[channelID]
	for i, r := range recent {
		if filter == nil || filter(r.msg) {
			rest := append(recent[:i:i], recent[i+1:]...)
			if len(rest) == 0 {
				delete(w.backlog, channelID)
			} else {
				w.backlog[channelID] = rest
			}
			return r.msg
		}
	}
	return nil
}

func (w *MessageWaiter) removeWait(channelID string, pw *pendingWait) {
	waits := w.waits[channelID]
	for i, p := range waits {
		if p == pw {
			waits = append(waits[:i:i], waits[i+1:]...)
			break
		}
	}
	if len(waits) == 0 {
		delete(w.waits, channelID)
	} else {
		w.waits[channelID] = waits
	}
}

func (w *MessageWaiter) prune(now time.Time) {
	cutoff := now.Add(-w.retention)
	for ch, recent := range w.backlog {
		kept := recent[:0]
		for _, r := range recent {
			if r.at.After(cutoff) {
				kept = append(kept, r)
			}
		}
		if len(kept) == 0 {
			delete(w.backlog, ch)
		} else {
			w.backlog[ch] = kept
		}
	}
}

// Package session owns the per-chat conversational state. Each chat has
// at most one Context, and each Context at most one active Flow; entering
// a new flow implicitly abandons the previous one.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/avoronkov/quizbot/internal/model"
	"github.com/avoronkov/quizbot/internal/transport"
)

// Outcome is what a flow produces for one inbound message.
type Outcome struct {
	Replies []transport.Outbound
	// Next, when non-nil, replaces the chat's active flow.
	Next Flow
	// Exit discards the chat's active flow. Next wins if both are set.
	Exit bool
}

// Flow is one conversational state machine bound to a single chat.
// Handle is never called concurrently for the same chat.
type Flow interface {
	Handle(ctx context.Context, in transport.Inbound) Outcome
}

// Context is the transient state of one chat: the signed-in user, the
// active flow, and bookkeeping for idle expiry.
type Context struct {
	mu         sync.Mutex
	user       *model.User
	flow       Flow
	lastActive time.Time
}

// Registry maps chat IDs to their contexts. All methods are safe for
// concurrent use; flow handling for one chat is serialized via Do.
type Registry struct {
	mu          sync.Mutex
	chats       map[int64]*Context
	idleTimeout time.Duration
	now         func() time.Time
}

// New creates a registry. idleTimeout of 0 disables idle expiry.
func New(idleTimeout time.Duration) *Registry {
	return &Registry{
		chats:       make(map[int64]*Context),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

func (r *Registry) get(chatID int64) *Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[chatID]
	if !ok {
		c = &Context{lastActive: r.now()}
		r.chats[chatID] = c
	}
	return c
}

// Do runs fn while holding the chat's lock, serializing all state
// transitions for that chat relative to each other.
func (r *Registry) Do(chatID int64, fn func()) {
	c := r.get(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = r.now()
	fn()
}

// Resolve returns the chat's active flow, or nil if none.
func (r *Registry) Resolve(chatID int64) Flow {
	return r.get(chatID).flow
}

// Enter makes flow the chat's active flow, replacing any prior one.
func (r *Registry) Enter(chatID int64, flow Flow) {
	c := r.get(chatID)
	c.flow = flow
}

// Exit discards the chat's active flow and all of its state.
func (r *Registry) Exit(chatID int64) {
	c := r.get(chatID)
	c.flow = nil
}

// SetUser binds a signed-in user to the chat; nil signs the chat out and
// discards any active flow with it.
func (r *Registry) SetUser(chatID int64, u *model.User) {
	c := r.get(chatID)
	c.user = u
	if u == nil {
		c.flow = nil
	}
}

// User returns the user bound to the chat, or nil.
func (r *Registry) User(chatID int64) *model.User {
	return r.get(chatID).user
}

// Sweep abandons flows of chats idle longer than the idle timeout and
// returns how many were cleared. Authentication survives a sweep; only
// the conversational state is dropped.
func (r *Registry) Sweep() int {
	if r.idleTimeout == 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTimeout)

	r.mu.Lock()
	contexts := make([]*Context, 0, len(r.chats))
	for _, c := range r.chats {
		contexts = append(contexts, c)
	}
	r.mu.Unlock()

	cleared := 0
	for _, c := range contexts {
		c.mu.Lock()
		if c.flow != nil && c.lastActive.Before(cutoff) {
			c.flow = nil
			cleared++
		}
		c.mu.Unlock()
	}
	return cleared
}

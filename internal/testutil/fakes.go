package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sent is one recorded Notify call.
type Sent struct {
	UserID    uuid.UUID
	Message   string
	Type      string
	RelatedID *uuid.UUID
}

// Notifier records every call. When Err is set each call still records and
// then returns Err.
type Notifier struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

func (n *Notifier) Notify(ctx context.Context, userID uuid.UUID, message, notifType string, relatedID *uuid.UUID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Sent{UserID: userID, Message: message, Type: notifType, RelatedID: relatedID})
	return n.Err
}

func (n *Notifier) Sent() []Sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Sent(nil), n.sent...)
}

// For returns the calls addressed to userID, optionally filtered by type.
func (n *Notifier) For(userID uuid.UUID, notifType string) []Sent {
	var out []Sent
	for _, s := range n.Sent() {
		if s.UserID == userID && (notifType == "" || s.Type == notifType) {
			out = append(out, s)
		}
	}
	return out
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/entity"
)

// RecordingNotifier captures notifications instead of storing them.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []entity.Notification
}

func (r *RecordingNotifier) Notify(_ context.Context, notifications ...entity.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notifications...)
}

// Sent returns a copy of everything recorded so far.
func (r *RecordingNotifier) Sent() []entity.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// For returns the notifications addressed to one recipient.
func (r *RecordingNotifier) For(userID uuid.UUID) []entity.Notification {
	var out []entity.Notification
	for _, n := range r.Sent() {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/entity"
)

// Snapshot is what a client renders: the recent list and the unread count.
type Snapshot struct {
	Notifications []entity.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unread_count"`
}

// Inbox is one user's notification view. Every feed event triggers a full
// refetch instead of patching the list; local read marks are optimistic
// until the next refetch confirms them.
type Inbox struct {
	svc    NotificationService
	userID uuid.UUID
	limit  int

	mu   sync.Mutex
	snap Snapshot
}

func NewInbox(svc NotificationService, userID uuid.UUID, limit int) *Inbox {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return &Inbox{svc: svc, userID: userID, limit: limit}
}

func (i *Inbox) Snapshot() Snapshot {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.copyLocked()
}

func (i *Inbox) copyLocked() Snapshot {
	items := make([]entity.Notification, len(i.snap.Notifications))
	copy(items, i.snap.Notifications)
	return Snapshot{Notifications: items, UnreadCount: i.snap.UnreadCount}
}

// Refresh refetches the list and the unread count.
func (i *Inbox) Refresh(ctx context.Context) (Snapshot, error) {
	items, err := i.svc.GetNotifications(ctx, i.userID, i.limit, 0)
	if err != nil {
		return i.Snapshot(), err
	}
	count, err := i.svc.UnreadCount(ctx, i.userID)
	if err != nil {
		return i.Snapshot(), err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.snap = Snapshot{Notifications: items, UnreadCount: count}
	return i.copyLocked(), nil
}

// markLocal applies the optimistic read mark and returns the new snapshot.
func (i *Inbox) markLocal(id uuid.UUID) Snapshot {
	i.mu.Lock()
	defer i.mu.Unlock()

	for idx := range i.snap.Notifications {
		n := &i.snap.Notifications[idx]
		if n.ID == id && !n.IsRead {
			n.IsRead = true
			i.snap.UnreadCount = max(0, i.snap.UnreadCount-1)
			break
		}
	}
	return i.copyLocked()
}

// MarkRead marks one notification read, optimistically first.
// onOptimistic, when set, sees the local state before the store confirms it.
func (i *Inbox) MarkRead(ctx context.Context, id uuid.UUID, onOptimistic func(Snapshot)) (Snapshot, error) {
	optimistic := i.markLocal(id)
	if onOptimistic != nil {
		onOptimistic(optimistic)
	}

	if err := i.svc.MarkAsRead(ctx, i.userID, id); err != nil {
		// roll back to whatever the store says
		snap, _ := i.Refresh(ctx)
		return snap, err
	}
	return i.Refresh(ctx)
}

func (i *Inbox) MarkAllRead(ctx context.Context) (Snapshot, error) {
	if err := i.svc.MarkAllAsRead(ctx, i.userID); err != nil {
		return i.Snapshot(), err
	}
	return i.Refresh(ctx)
}

// Follow refetches on every feed event and hands the result to onChange
// until the subscription closes or ctx ends.
func (i *Inbox) Follow(ctx context.Context, sub Subscription, onChange func(Snapshot) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-sub.C():
			if !ok {
				return nil
			}
			snap, err := i.Refresh(ctx)
			if err != nil {
				continue
			}
			if err := onChange(snap); err != nil {
				return err
			}
		}
	}
}

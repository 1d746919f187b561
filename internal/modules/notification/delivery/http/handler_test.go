package handler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veertikothari/campustrack/internal/entity"
	"github.com/veertikothari/campustrack/internal/modules/notification/dto"
	notifRepo "github.com/veertikothari/campustrack/internal/modules/notification/repository"
	notifService "github.com/veertikothari/campustrack/internal/modules/notification/service"
	"github.com/veertikothari/campustrack/internal/testutil"
)

func seedInbox(t *testing.T, titles ...string) (notifService.NotificationService, *notifService.Inbox, notifService.Snapshot, uuid.UUID) {
	t.Helper()
	db := testutil.PrepareDB(t)
	svc := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), notifService.NewMemoryBroker(), nil)
	userID := uuid.New()

	notes := make([]entity.Notification, 0, len(titles))
	for _, title := range titles {
		notes = append(notes, entity.Notification{
			UserID:  userID,
			Title:   title,
			Message: title + " message",
			Type:    entity.NotificationEventCreated,
		})
	}
	require.NoError(t, svc.SendBulk(context.Background(), notes))

	inbox := notifService.NewInbox(svc, userID, 10)
	snap, err := inbox.Refresh(context.Background())
	require.NoError(t, err)
	return svc, inbox, snap, userID
}

func command(t *testing.T, action, id string) []byte {
	t.Helper()
	raw, err := json.Marshal(dto.InboxCommand{Action: action, ID: id})
	require.NoError(t, err)
	return raw
}

func TestApplyCommandMarksThroughInbox(t *testing.T) {
	svc, inbox, snap, userID := seedInbox(t, "a", "b")
	ctx := context.Background()
	require.EqualValues(t, 2, snap.UnreadCount)

	var written []notifService.Snapshot
	write := func(s notifService.Snapshot) error {
		written = append(written, s)
		return nil
	}

	require.NoError(t, applyCommand(ctx, inbox, command(t, dto.ActionMarkRead, snap.Notifications[0].ID.String()), write))
	require.Len(t, written, 2, "optimistic then confirmed")
	assert.EqualValues(t, 1, written[0].UnreadCount)
	assert.EqualValues(t, 1, written[1].UnreadCount)

	count, err := svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, applyCommand(ctx, inbox, command(t, dto.ActionMarkAllRead, ""), write))
	require.Len(t, written, 3)
	assert.Zero(t, written[2].UnreadCount)

	count, err = svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestApplyCommandSkipsBadInput(t *testing.T) {
	_, inbox, _, _ := seedInbox(t, "a")
	ctx := context.Background()

	var written []notifService.Snapshot
	write := func(s notifService.Snapshot) error {
		written = append(written, s)
		return nil
	}

	for _, raw := range [][]byte{
		[]byte("not json"),
		command(t, "explode", ""),
		command(t, dto.ActionMarkRead, "not-a-uuid"),
	} {
		require.NoError(t, applyCommand(ctx, inbox, raw, write))
	}
	assert.Empty(t, written)

	// an unknown id rolls back to the stored state instead of closing the feed
	require.NoError(t, applyCommand(ctx, inbox, command(t, dto.ActionMarkRead, uuid.NewString()), write))
	require.NotEmpty(t, written)
	assert.EqualValues(t, 1, written[len(written)-1].UnreadCount)
}

func TestApplyCommandStopsOnWriteFailure(t *testing.T) {
	_, inbox, snap, _ := seedInbox(t, "a")
	broken := errors.New("connection closed")

	err := applyCommand(context.Background(), inbox, command(t, dto.ActionMarkRead, snap.Notifications[0].ID.String()), func(notifService.Snapshot) error {
		return broken
	})
	assert.ErrorIs(t, err, broken)
}

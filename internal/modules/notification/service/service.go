package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/entity"
	notifRepo "github.com/veertikothari/campustrack/internal/modules/notification/repository"
	"github.com/veertikothari/campustrack/pkg/apperror"
	"github.com/veertikothari/campustrack/pkg/database"
	"github.com/veertikothari/campustrack/pkg/metrics"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type NotificationService interface {
	// Send stores one notification for a mutation that has already committed.
	Send(ctx context.Context, notification *entity.Notification) error
	// SendBulk stores a fan-out batch, all rows or none.
	SendBulk(ctx context.Context, notifications []entity.Notification) error
	Subscribe(ctx context.Context, userID uuid.UUID) (Subscription, error)
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	RegisterDevice(ctx context.Context, userID uuid.UUID, token, platform string) error
	UnregisterDevice(ctx context.Context, userID uuid.UUID, token string) error
}

type notificationService struct {
	repo   notifRepo.NotificationRepository
	broker Broker
	pusher Pusher
}

// NewNotificationService wires the dispatcher. pusher may be nil.
func NewNotificationService(repo notifRepo.NotificationRepository, broker Broker, pusher Pusher) NotificationService {
	if broker == nil {
		broker = NewMemoryBroker()
	}
	return &notificationService{
		repo:   repo,
		broker: broker,
		pusher: pusher,
	}
}

func (s *notificationService) Send(ctx context.Context, notification *entity.Notification) error {
	if err := s.validate(notification); err != nil {
		return err
	}

	// 1. Save to DB
	if err := s.repo.Create(ctx, notification); err != nil {
		return database.Classify(err)
	}
	metrics.NotificationsSent.WithLabelValues(string(notification.Type)).Inc()

	// 2. Announce on the change feed, then push
	s.deliver(ctx, []entity.Notification{*notification})
	return nil
}

func (s *notificationService) SendBulk(ctx context.Context, notifications []entity.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	for i := range notifications {
		if err := s.validate(&notifications[i]); err != nil {
			return err
		}
		if notifications[i].ID == uuid.Nil {
			notifications[i].ID = uuid.New()
		}
	}

	if err := s.repo.CreateBatch(ctx, notifications); err != nil {
		return database.Classify(err)
	}
	for _, n := range notifications {
		metrics.NotificationsSent.WithLabelValues(string(n.Type)).Inc()
	}

	s.deliver(ctx, notifications)
	return nil
}

func (s *notificationService) validate(n *entity.Notification) error {
	if n.UserID == uuid.Nil {
		return apperror.Validation("notification recipient is required")
	}
	if !n.Type.Valid() {
		return apperror.Validation(fmt.Sprintf("unknown notification type %q", n.Type))
	}
	if n.Title == "" {
		return apperror.Validation("notification title is required")
	}
	return nil
}

// deliver runs after the rows are committed; failures are logged only.
func (s *notificationService) deliver(ctx context.Context, notifications []entity.Notification) {
	for _, n := range notifications {
		payload, err := json.Marshal(n)
		if err != nil {
			continue
		}
		if err := s.broker.Publish(ctx, n.UserID, payload); err != nil {
			log.Printf("Failed to publish notification %s: %v", n.ID, err)
		}
	}

	if s.pusher == nil {
		return
	}

	recipients := make([]uuid.UUID, 0, len(notifications))
	byUser := make(map[uuid.UUID]entity.Notification, len(notifications))
	for _, n := range notifications {
		if _, ok := byUser[n.UserID]; !ok {
			recipients = append(recipients, n.UserID)
		}
		byUser[n.UserID] = n
	}

	tokens, err := s.repo.DeviceTokensFor(ctx, recipients)
	if err != nil {
		log.Printf("Failed to load device tokens: %v", err)
		return
	}

	perUser := make(map[uuid.UUID][]string)
	for _, t := range tokens {
		perUser[t.UserID] = append(perUser[t.UserID], t.Token)
	}
	for userID, userTokens := range perUser {
		if err := s.pusher.Push(ctx, userTokens, byUser[userID]); err != nil {
			log.Printf("Failed to push notification to user %s: %v", userID, err)
		}
	}
}

func (s *notificationService) Subscribe(ctx context.Context, userID uuid.UUID) (Subscription, error) {
	sub, err := s.broker.Subscribe(ctx, userID)
	if err != nil {
		return nil, apperror.Transport(err)
	}
	return sub, nil
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	notifications, err := s.repo.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, database.Classify(err)
	}
	return notifications, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, database.Classify(err)
	}
	return count, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	found, err := s.repo.MarkAsRead(ctx, id, userID)
	if err != nil {
		return database.Classify(err)
	}
	if !found {
		return apperror.NotFound("Notification not found")
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return database.Classify(s.repo.MarkAllAsRead(ctx, userID))
}

func (s *notificationService) RegisterDevice(ctx context.Context, userID uuid.UUID, token, platform string) error {
	if token == "" {
		return apperror.Validation("Device token is required")
	}
	return database.Classify(s.repo.SaveDeviceToken(ctx, &entity.DeviceToken{
		UserID:   userID,
		Token:    token,
		Platform: platform,
	}))
}

func (s *notificationService) UnregisterDevice(ctx context.Context, userID uuid.UUID, token string) error {
	return database.Classify(s.repo.DeleteDeviceToken(ctx, userID, token))
}

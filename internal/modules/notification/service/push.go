package service

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/veertikothari/campustrack/internal/entity"
)

// Pusher delivers a notification to device tokens outside the app.
type Pusher interface {
	Push(ctx context.Context, tokens []string, n entity.Notification) error
}

// fcmMulticastLimit is the most tokens FCM accepts in one multicast.
const fcmMulticastLimit = 500

type fcmPusher struct {
	client *messaging.Client
}

// NewFCMPusher returns nil when FCM is not configured so callers can skip push.
func NewFCMPusher(ctx context.Context, credentialsPath string) Pusher {
	if credentialsPath == "" {
		log.Println("⚠️  FCM not configured (FCM_CREDENTIALS_PATH missing)")
		return nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		log.Printf("❌ Error initializing Firebase app: %v", err)
		return nil
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		log.Printf("❌ Error getting FCM client: %v", err)
		return nil
	}

	log.Println("✅ FCM initialized successfully")
	return &fcmPusher{client: client}
}

func (p *fcmPusher) Push(ctx context.Context, tokens []string, n entity.Notification) error {
	failed := 0
	for i := 0; i < len(tokens); i += fcmMulticastLimit {
		end := min(i+fcmMulticastLimit, len(tokens))
		batch := tokens[i:end]

		resp, err := p.client.SendEachForMulticast(ctx, buildMulticast(batch, n))
		if err != nil {
			failed += len(batch)
			continue
		}
		failed += resp.FailureCount
	}

	if failed > 0 {
		return fmt.Errorf("failed to push to %d/%d tokens", failed, len(tokens))
	}
	return nil
}

func buildMulticast(tokens []string, n entity.Notification) *messaging.MulticastMessage {
	data := map[string]string{
		"notification_id": n.ID.String(),
		"type":            string(n.Type),
	}
	if n.EventID != nil {
		data["event_id"] = n.EventID.String()
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   data,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID:    "campus_notifications",
				DefaultSound: true,
			},
		},
	}
}

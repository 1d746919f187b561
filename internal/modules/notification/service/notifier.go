package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/veertikothari/campustrack/internal/entity"
	"github.com/veertikothari/campustrack/pkg/metrics"
)

// Notifier is how domain services hand off notifications after their own
// write has committed. It never reports failure back to the caller.
type Notifier interface {
	Notify(ctx context.Context, notifications ...entity.Notification)
}

// dispatch stores one batch and logs, never returns, a failure.
func dispatch(ctx context.Context, svc NotificationService, notifications []entity.Notification) {
	if len(notifications) == 0 {
		return
	}

	var err error
	if len(notifications) == 1 {
		n := notifications[0]
		err = svc.Send(ctx, &n)
	} else {
		err = svc.SendBulk(ctx, notifications)
	}
	if err != nil {
		metrics.NotificationFailures.Inc()
		log.Printf("Failed to dispatch %d notification(s): %v", len(notifications), err)
	}
}

type directNotifier struct {
	svc NotificationService
}

// NewDirectNotifier dispatches inline, on the caller's goroutine.
func NewDirectNotifier(svc NotificationService) Notifier {
	return &directNotifier{svc: svc}
}

func (n *directNotifier) Notify(ctx context.Context, notifications ...entity.Notification) {
	dispatch(ctx, n.svc, notifications)
}

type asyncNotifier struct {
	svc     NotificationService
	timeout time.Duration
	wg      sync.WaitGroup
}

// AsyncNotifier dispatches on a background goroutine so the request returns
// as soon as the domain write is done.
type AsyncNotifier interface {
	Notifier
	// Wait blocks until every dispatched batch has been handled.
	Wait()
}

func NewAsyncNotifier(svc NotificationService, timeout time.Duration) AsyncNotifier {
	return &asyncNotifier{svc: svc, timeout: timeout}
}

func (n *asyncNotifier) Notify(ctx context.Context, notifications ...entity.Notification) {
	if len(notifications) == 0 {
		return
	}
	batch := append([]entity.Notification(nil), notifications...)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		// the request context ends with the response
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		dispatch(bgCtx, n.svc, batch)
	}()
}

func (n *asyncNotifier) Wait() {
	n.wg.Wait()
}

// kafkaNotifier writes each batch as one message; a consumer persists it.
type kafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(brokers []string, topic string) (Notifier, func() error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return &kafkaNotifier{writer: writer}, writer.Close
}

func (n *kafkaNotifier) Notify(ctx context.Context, notifications ...entity.Notification) {
	if len(notifications) == 0 {
		return
	}

	payload, err := json.Marshal(notifications)
	if err != nil {
		log.Printf("Failed to encode notification batch: %v", err)
		return
	}

	// keyed by first recipient so a user's batches keep their order
	msg := kafka.Message{
		Key:   []byte(notifications[0].UserID.String()),
		Value: payload,
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := n.writer.WriteMessages(writeCtx, msg); err != nil {
		metrics.NotificationFailures.Inc()
		log.Printf("Failed to queue %d notification(s) on kafka: %v", len(notifications), err)
	}
}

// DecodeBatch parses a queued notification batch.
func DecodeBatch(value []byte) ([]entity.Notification, error) {
	var batch []entity.Notification
	if err := json.Unmarshal(value, &batch); err != nil {
		return nil, fmt.Errorf("invalid notification batch: %w", err)
	}
	return batch, nil
}

const consumerAttempts = 3

// StartKafkaConsumer persists queued batches until ctx is cancelled.
func StartKafkaConsumer(ctx context.Context, brokers []string, topic, groupID string, svc NotificationService) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	log.Printf("📨 Notification consumer listening on %s", topic)
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("🛑 Notification consumer stopped")
				return
			}
			log.Printf("Failed to fetch notification batch: %v", err)
			time.Sleep(time.Second)
			continue
		}

		handleQueuedBatch(ctx, svc, msg.Value)

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Printf("Failed to commit notification offset: %v", err)
		}
	}
}

func handleQueuedBatch(ctx context.Context, svc NotificationService, value []byte) {
	batch, err := DecodeBatch(value)
	if err != nil {
		log.Printf("Dropping notification batch: %v", err)
		return
	}

	for attempt := 1; attempt <= consumerAttempts; attempt++ {
		if err = svc.SendBulk(ctx, batch); err == nil {
			return
		}
		time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
	}
	metrics.NotificationFailures.Inc()
	log.Printf("Giving up on notification batch of %d: %v", len(batch), err)
}

package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/entity"
	enrollRepo "github.com/veertikothari/campustrack/internal/modules/enrollment/repository"
	eventRepo "github.com/veertikothari/campustrack/internal/modules/event/repository"
	notifService "github.com/veertikothari/campustrack/internal/modules/notification/service"
	"github.com/veertikothari/campustrack/pkg/cooldown"
)

// reminderHold covers the whole day before the event, so each event is
// reminded once even when several instances run the job.
const reminderHold = 36 * time.Hour

// ReminderJob sends event_reminder to students enrolled in tomorrow's events.
type ReminderJob struct {
	schedule    string
	events      eventRepo.EventRepository
	enrollments enrollRepo.EnrollmentRepository
	notifier    notifService.Notifier
	guard       cooldown.Guard
	now         func() time.Time
}

func NewReminderJob(
	schedule string,
	events eventRepo.EventRepository,
	enrollments enrollRepo.EnrollmentRepository,
	notifier notifService.Notifier,
	guard cooldown.Guard,
) *ReminderJob {
	return &ReminderJob{
		schedule:    schedule,
		events:      events,
		enrollments: enrollments,
		notifier:    notifier,
		guard:       guard,
		now:         time.Now,
	}
}

func (j *ReminderJob) Name() string     { return "event-reminders" }
func (j *ReminderJob) Schedule() string { return j.schedule }

func (j *ReminderJob) Run(ctx context.Context) error {
	tomorrow := j.now().AddDate(0, 0, 1).Format(entity.DateLayout)

	events, err := j.events.ListOnDate(ctx, tomorrow)
	if err != nil {
		return fmt.Errorf("failed to list events on %s: %w", tomorrow, err)
	}

	due := make(map[uuid.UUID]entity.Event, len(events))
	ids := make([]uuid.UUID, 0, len(events))
	for _, e := range events {
		ok, _, err := j.guard.Acquire(ctx, reminderKey(e.ID), reminderHold)
		if err != nil {
			j.release(ctx, ids)
			return fmt.Errorf("failed to claim reminder for %s: %w", e.ID, err)
		}
		if !ok {
			continue
		}
		due[e.ID] = e
		ids = append(ids, e.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	enrollments, err := j.enrollments.ListByEventIDs(ctx, ids)
	if err != nil {
		j.release(ctx, ids)
		return fmt.Errorf("failed to list enrollments: %w", err)
	}

	notifications := make([]entity.Notification, 0, len(enrollments))
	for _, en := range enrollments {
		event := due[en.EventID]
		eventID := event.ID
		notifications = append(notifications, entity.Notification{
			UserID:  en.UserID,
			EventID: &eventID,
			Title:   "Reminder: " + event.Title,
			Message: fmt.Sprintf("%s is tomorrow at %s, %s", event.Title, event.Time, event.Venue),
			Type:    entity.NotificationEventReminder,
		})
	}

	j.notifier.Notify(ctx, notifications...)
	log.Printf("🔔 Queued %d reminder(s) for %d event(s) on %s", len(notifications), len(ids), tomorrow)
	return nil
}

// release drops claims taken by a run that failed, so the next run retries them.
func (j *ReminderJob) release(ctx context.Context, ids []uuid.UUID) {
	for _, id := range ids {
		if err := j.guard.Release(ctx, reminderKey(id)); err != nil {
			log.Printf("⚠️  Failed to release reminder claim for %s: %v", id, err)
		}
	}
}

func reminderKey(eventID uuid.UUID) string {
	return fmt.Sprintf("reminder:event:%s", eventID)
}

package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/entity"
	"github.com/veertikothari/campustrack/internal/modules/attendance/dto"
	attendanceRepo "github.com/veertikothari/campustrack/internal/modules/attendance/repository"
	enrollRepo "github.com/veertikothari/campustrack/internal/modules/enrollment/repository"
	eventService "github.com/veertikothari/campustrack/internal/modules/event/service"
	notifService "github.com/veertikothari/campustrack/internal/modules/notification/service"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/pkg/database"
	"github.com/veertikothari/campustrack/pkg/metrics"
)

type AttendanceService interface {
	Sheet(ctx context.Context, actor session.Principal, eventID uuid.UUID) (*dto.Sheet, error)
	Stage(ctx context.Context, actor session.Principal, eventID, userID uuid.UUID, present bool) (*dto.Sheet, error)
	Reset(ctx context.Context, actor session.Principal, eventID uuid.UUID) (*dto.Sheet, error)
	// Commit writes the staged draft, plus any marks given, as one batch.
	Commit(ctx context.Context, actor session.Principal, eventID uuid.UUID, marks map[uuid.UUID]bool) (*dto.Sheet, error)
}

type attendanceService struct {
	repo        attendanceRepo.AttendanceRepository
	enrollments enrollRepo.EnrollmentRepository
	events      eventService.EventService
	drafts      DraftStore
	notifier    notifService.Notifier
	now         func() time.Time
}

func NewAttendanceService(
	repo attendanceRepo.AttendanceRepository,
	enrollments enrollRepo.EnrollmentRepository,
	events eventService.EventService,
	drafts DraftStore,
	notifier notifService.Notifier,
) AttendanceService {
	return &attendanceService{
		repo:        repo,
		enrollments: enrollments,
		events:      events,
		drafts:      drafts,
		notifier:    notifier,
		now:         time.Now,
	}
}

// open loads the roster baseline and replays the actor's draft on top.
func (s *attendanceService) open(ctx context.Context, actor session.Principal, eventID uuid.UUID) (*entity.Event, *Recorder, error) {
	event, err := s.events.Owned(ctx, actor, eventID)
	if err != nil {
		return nil, nil, err
	}

	enrollments, err := s.enrollments.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, nil, database.Classify(err)
	}
	roster := make([]entity.User, 0, len(enrollments))
	for _, e := range enrollments {
		if e.User != nil {
			roster = append(roster, *e.User)
		}
	}

	existing, err := s.repo.ListForEvent(ctx, eventID)
	if err != nil {
		return nil, nil, database.Classify(err)
	}

	recorder := NewRecorder(eventID, roster, existing)

	draft, err := s.drafts.Load(ctx, actor.UserID, eventID)
	if err != nil {
		// a lost draft only costs the operator their unsaved marks
		log.Printf("Failed to load attendance draft for event %s: %v", eventID, err)
	} else if len(draft) > 0 {
		recorder.Restore(draft)
	}

	return event, recorder, nil
}

func (s *attendanceService) Sheet(ctx context.Context, actor session.Principal, eventID uuid.UUID) (*dto.Sheet, error) {
	_, recorder, err := s.open(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	return toSheet(recorder), nil
}

func (s *attendanceService) Stage(ctx context.Context, actor session.Principal, eventID, userID uuid.UUID, present bool) (*dto.Sheet, error) {
	_, recorder, err := s.open(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}

	if err := recorder.Stage(userID, present); err != nil {
		return nil, err
	}
	if err := s.saveDraft(ctx, actor.UserID, recorder); err != nil {
		return nil, err
	}
	return toSheet(recorder), nil
}

func (s *attendanceService) Reset(ctx context.Context, actor session.Principal, eventID uuid.UUID) (*dto.Sheet, error) {
	_, recorder, err := s.open(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}

	recorder.Reset()
	if err := s.drafts.Clear(ctx, actor.UserID, eventID); err != nil {
		return nil, database.Classify(err)
	}
	return toSheet(recorder), nil
}

func (s *attendanceService) Commit(ctx context.Context, actor session.Principal, eventID uuid.UUID, marks map[uuid.UUID]bool) (*dto.Sheet, error) {
	event, recorder, err := s.open(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}

	for userID, present := range marks {
		if err := recorder.Stage(userID, present); err != nil {
			return nil, err
		}
	}

	batch, err := recorder.BeginCommit()
	if err != nil {
		return nil, err
	}

	if err := s.repo.Commit(ctx, eventID, actor.UserID, batch, s.now()); err != nil {
		recorder.CommitFailed()
		metrics.AttendanceCommits.WithLabelValues("failed").Inc()
		if len(marks) > 0 {
			// keep request-supplied marks so a retry does not need them again
			if saveErr := s.saveDraft(ctx, actor.UserID, recorder); saveErr != nil {
				log.Printf("Failed to keep attendance draft for event %s: %v", eventID, saveErr)
			}
		}
		return nil, database.Classify(err)
	}

	recorder.CommitSucceeded()
	metrics.AttendanceCommits.WithLabelValues("committed").Inc()
	metrics.AttendanceMarks.Add(float64(len(batch)))

	if err := s.drafts.Clear(ctx, actor.UserID, eventID); err != nil {
		log.Printf("Failed to clear attendance draft for event %s: %v", eventID, err)
	}

	s.announce(ctx, event, batch)

	return toSheet(recorder), nil
}

func (s *attendanceService) saveDraft(ctx context.Context, facultyID uuid.UUID, recorder *Recorder) error {
	var draft Marks
	if recorder.HasUnsavedChanges() {
		draft = recorder.Pending()
	}
	if err := s.drafts.Save(ctx, facultyID, recorder.eventID, draft); err != nil {
		return database.Classify(err)
	}
	return nil
}

// announce tells every student in the committed batch their resulting status.
func (s *attendanceService) announce(ctx context.Context, event *entity.Event, batch Marks) {
	if len(batch) == 0 {
		return
	}

	eventID := event.ID
	notifications := make([]entity.Notification, 0, len(batch))
	for userID, status := range batch {
		notifications = append(notifications, entity.Notification{
			UserID:  userID,
			EventID: &eventID,
			Title:   "Attendance marked",
			Message: fmt.Sprintf("You were marked %s for %s on %s", status, event.Title, event.Date),
			Type:    entity.NotificationAttendanceMarked,
		})
	}
	s.notifier.Notify(ctx, notifications...)
}

func toSheet(r *Recorder) *dto.Sheet {
	saved := r.Saved()
	pending := r.Pending()

	entries := make([]dto.SheetEntry, 0, len(r.Roster()))
	for _, u := range r.Roster() {
		entry := dto.SheetEntry{UserID: u.ID, UID: u.UID, Name: u.Name}
		if status, ok := saved[u.ID]; ok {
			entry.Saved = &status
		}
		if status, ok := pending[u.ID]; ok {
			entry.Pending = &status
		}
		entries = append(entries, entry)
	}

	return &dto.Sheet{
		EventID:           r.eventID,
		State:             string(r.State()),
		HasUnsavedChanges: r.HasUnsavedChanges(),
		Entries:           entries,
	}
}

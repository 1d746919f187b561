package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/entity"
	enrollRepo "github.com/veertikothari/campustrack/internal/modules/enrollment/repository"
	eventService "github.com/veertikothari/campustrack/internal/modules/event/service"
	notifService "github.com/veertikothari/campustrack/internal/modules/notification/service"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/pkg/apperror"
	"github.com/veertikothari/campustrack/pkg/database"
	"github.com/veertikothari/campustrack/pkg/metrics"
)

const (
	msgAlreadyEnrolled = "You are already enrolled in this event"
	msgEnrollLocked    = "Attendance has already been marked for this event"
	msgUnenrollLocked  = "Cannot unenroll as attendance has already been marked"
	msgNotEnrolled     = "You are not enrolled in this event"
)

type EnrollmentService interface {
	Enroll(ctx context.Context, actor session.Principal, eventID uuid.UUID) (*entity.Enrollment, error)
	Unenroll(ctx context.Context, actor session.Principal, eventID uuid.UUID) error
	MyEnrollments(ctx context.Context, actor session.Principal) ([]entity.Enrollment, error)
	EventEnrollments(ctx context.Context, actor session.Principal, eventID uuid.UUID) ([]entity.Enrollment, error)
}

type enrollmentService struct {
	repo     enrollRepo.EnrollmentRepository
	events   eventService.EventService
	notifier notifService.Notifier
}

func NewEnrollmentService(repo enrollRepo.EnrollmentRepository, events eventService.EventService, notifier notifService.Notifier) EnrollmentService {
	return &enrollmentService{
		repo:     repo,
		events:   events,
		notifier: notifier,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, actor session.Principal, eventID uuid.UUID) (*entity.Enrollment, error) {
	if !actor.IsStudent() {
		return nil, apperror.Forbidden("Only students can enroll in events")
	}

	event, err := s.events.Visible(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.Find(ctx, eventID, actor.UserID); err == nil {
		return nil, apperror.Conflict(msgAlreadyEnrolled)
	} else if !database.IsNotFound(err) {
		return nil, database.Classify(err)
	}

	marked, err := s.repo.HasAttendance(ctx, eventID, actor.UserID)
	if err != nil {
		return nil, database.Classify(err)
	}
	if marked {
		return nil, apperror.Locked(msgEnrollLocked)
	}

	enrollment := &entity.Enrollment{EventID: eventID, UserID: actor.UserID}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		switch {
		case errors.Is(err, enrollRepo.ErrAttendanceMarked):
			return nil, apperror.Locked(msgEnrollLocked)
		case database.IsUniqueViolation(err):
			// lost a race with a concurrent enroll for the same pair
			return nil, apperror.Conflict(msgAlreadyEnrolled)
		}
		return nil, database.Classify(err)
	}
	metrics.Enrollments.WithLabelValues("enroll").Inc()

	id := event.ID
	s.notifier.Notify(ctx, entity.Notification{
		UserID:  actor.UserID,
		EventID: &id,
		Title:   "Enrollment confirmed",
		Message: fmt.Sprintf("You are enrolled in %s on %s at %s", event.Title, event.Date, event.Time),
		Type:    entity.NotificationEnrollmentConfirmed,
	})

	return enrollment, nil
}

func (s *enrollmentService) Unenroll(ctx context.Context, actor session.Principal, eventID uuid.UUID) error {
	if _, err := s.events.Visible(ctx, actor, eventID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, eventID, actor.UserID); err != nil {
		switch {
		case errors.Is(err, enrollRepo.ErrAttendanceMarked):
			return apperror.Locked(msgUnenrollLocked)
		case database.IsNotFound(err):
			return apperror.NotFound(msgNotEnrolled)
		}
		return database.Classify(err)
	}
	metrics.Enrollments.WithLabelValues("unenroll").Inc()

	return nil
}

func (s *enrollmentService) MyEnrollments(ctx context.Context, actor session.Principal) ([]entity.Enrollment, error) {
	enrollments, err := s.repo.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, database.Classify(err)
	}
	return enrollments, nil
}

func (s *enrollmentService) EventEnrollments(ctx context.Context, actor session.Principal, eventID uuid.UUID) ([]entity.Enrollment, error) {
	if _, err := s.events.Owned(ctx, actor, eventID); err != nil {
		return nil, err
	}

	enrollments, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, database.Classify(err)
	}
	return enrollments, nil
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/entity"
	enrollRepo "github.com/veertikothari/campustrack/internal/modules/enrollment/repository"
	eventService "github.com/veertikothari/campustrack/internal/modules/event/service"
	"github.com/veertikothari/campustrack/internal/modules/feedback/dto"
	feedbackRepo "github.com/veertikothari/campustrack/internal/modules/feedback/repository"
	userRepo "github.com/veertikothari/campustrack/internal/modules/user/repository"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/pkg/apperror"
	"github.com/veertikothari/campustrack/pkg/database"
	"github.com/veertikothari/campustrack/pkg/sanitize"
	"github.com/veertikothari/campustrack/pkg/stats"
)

const msgAbsent = "Feedback cannot be submitted for absent attendance"

type FeedbackService interface {
	Submit(ctx context.Context, actor session.Principal, eventID uuid.UUID, input dto.SubmitFeedbackInput) (*entity.Feedback, error)
	Status(ctx context.Context, actor session.Principal, eventID uuid.UUID) (*dto.FeedbackStatus, error)
	ListForEvent(ctx context.Context, actor session.Principal, eventID uuid.UUID) (*dto.EventFeedbackResponse, error)
}

type feedbackService struct {
	repo        feedbackRepo.FeedbackRepository
	enrollments enrollRepo.EnrollmentRepository
	users       userRepo.UserRepository
	events      eventService.EventService
	now         func() time.Time
}

func NewFeedbackService(
	repo feedbackRepo.FeedbackRepository,
	enrollments enrollRepo.EnrollmentRepository,
	users userRepo.UserRepository,
	events eventService.EventService,
) FeedbackService {
	return &feedbackService{
		repo:        repo,
		enrollments: enrollments,
		users:       users,
		events:      events,
		now:         time.Now,
	}
}

func (s *feedbackService) Submit(ctx context.Context, actor session.Principal, eventID uuid.UUID, input dto.SubmitFeedbackInput) (*entity.Feedback, error) {
	if input.Rating < entity.MinRating || input.Rating > entity.MaxRating {
		return nil, apperror.Validation("Rating must be between 1 and 5")
	}

	if _, err := s.events.Visible(ctx, actor, eventID); err != nil {
		return nil, err
	}

	if _, err := s.enrollments.Find(ctx, eventID, actor.UserID); err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.Forbidden("Only enrolled students can give feedback")
		}
		return nil, database.Classify(err)
	}

	feedback, err := s.repo.Upsert(ctx, &entity.Feedback{
		EventID:     eventID,
		UserID:      actor.UserID,
		Rating:      input.Rating,
		Comments:    sanitize.Text(input.Comments),
		SubmittedAt: s.now(),
	})
	if err != nil {
		if errors.Is(err, feedbackRepo.ErrAbsent) {
			return nil, apperror.Locked(msgAbsent)
		}
		return nil, database.Classify(err)
	}
	return feedback, nil
}

func (s *feedbackService) Status(ctx context.Context, actor session.Principal, eventID uuid.UUID) (*dto.FeedbackStatus, error) {
	feedback, err := s.repo.Find(ctx, eventID, actor.UserID)
	if err != nil {
		if database.IsNotFound(err) {
			return &dto.FeedbackStatus{}, nil
		}
		return nil, database.Classify(err)
	}
	return &dto.FeedbackStatus{FeedbackSubmitted: true, Feedback: feedback}, nil
}

func (s *feedbackService) ListForEvent(ctx context.Context, actor session.Principal, eventID uuid.UUID) (*dto.EventFeedbackResponse, error) {
	if _, err := s.events.Owned(ctx, actor, eventID); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, database.Classify(err)
	}
	average, count, err := s.repo.Average(ctx, eventID)
	if err != nil {
		return nil, database.Classify(err)
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, f := range rows {
		ids = append(ids, f.UserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, database.Classify(err)
	}
	byID := make(map[uuid.UUID]entity.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	entries := make([]dto.FeedbackEntry, 0, len(rows))
	for _, f := range rows {
		u := byID[f.UserID]
		entries = append(entries, dto.FeedbackEntry{Feedback: f, UID: u.UID, Name: u.Name})
	}

	return &dto.EventFeedbackResponse{
		Entries:       entries,
		Count:         count,
		AverageRating: stats.Round2(average),
	}, nil
}

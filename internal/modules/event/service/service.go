package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/entity"
	"github.com/veertikothari/campustrack/internal/modules/event/dto"
	eventRepo "github.com/veertikothari/campustrack/internal/modules/event/repository"
	notifService "github.com/veertikothari/campustrack/internal/modules/notification/service"
	userRepo "github.com/veertikothari/campustrack/internal/modules/user/repository"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/pkg/apperror"
	"github.com/veertikothari/campustrack/pkg/database"
	"github.com/veertikothari/campustrack/pkg/sanitize"
)

const searchLimit = 50

type EventService interface {
	Create(ctx context.Context, actor session.Principal, input dto.CreateEventInput) (*entity.Event, error)
	Get(ctx context.Context, actor session.Principal, id uuid.UUID) (*entity.Event, error)
	List(ctx context.Context, actor session.Principal) ([]entity.Event, error)
	Search(ctx context.Context, actor session.Principal, query string) ([]entity.Event, error)
	// Visible loads an event and checks the actor may see it.
	Visible(ctx context.Context, actor session.Principal, id uuid.UUID) (*entity.Event, error)
	// Owned loads an event and checks the actor created it.
	Owned(ctx context.Context, actor session.Principal, id uuid.UUID) (*entity.Event, error)
}

type eventService struct {
	events   eventRepo.EventRepository
	users    userRepo.UserRepository
	notifier notifService.Notifier
	index    EventIndex
}

// NewEventService wires the event service. index may be nil, in which case
// search falls back to the database.
func NewEventService(events eventRepo.EventRepository, users userRepo.UserRepository, notifier notifService.Notifier, index EventIndex) EventService {
	return &eventService{
		events:   events,
		users:    users,
		notifier: notifier,
		index:    index,
	}
}

func (s *eventService) Create(ctx context.Context, actor session.Principal, input dto.CreateEventInput) (*entity.Event, error) {
	if !actor.IsFaculty() && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	category := entity.EventCategory(input.Category)
	if !category.Valid() {
		return nil, apperror.Validation("Invalid event category")
	}
	if _, err := time.Parse(entity.DateLayout, input.Date); err != nil {
		return nil, apperror.Validation("Date must be YYYY-MM-DD")
	}
	if _, err := time.Parse(entity.TimeLayout, input.Time); err != nil {
		return nil, apperror.Validation("Time must be HH:MM")
	}
	if input.MaxPoints < 0 {
		return nil, apperror.Validation("Max points cannot be negative")
	}

	department := actor.Department
	if actor.IsAdmin() && input.Department != "" {
		department = input.Department
	}
	if department == "" {
		return nil, apperror.Validation("Department is required")
	}

	title := sanitize.Text(input.Title)
	if title == "" {
		return nil, apperror.Validation("Title is required")
	}

	event := &entity.Event{
		Title:       title,
		Description: sanitize.Text(input.Description),
		Date:        input.Date,
		Time:        input.Time,
		Venue:       sanitize.Text(input.Venue),
		Department:  department,
		Year:        input.Year,
		CreatedBy:   actor.UserID,
		MaxPoints:   input.MaxPoints,
		Category:    category,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, database.Classify(err)
	}

	if s.index != nil {
		if err := s.index.IndexEvent(ctx, event); err != nil {
			log.Printf("Failed to index event %s: %v", event.ID, err)
		}
	}

	s.announce(ctx, event)

	return event, nil
}

// announce sends one event_created notification per student in the
// event's audience. Failures are logged and never reach the creator.
func (s *eventService) announce(ctx context.Context, event *entity.Event) {
	students, err := s.users.FindStudents(ctx, event.Department, event.Year)
	if err != nil {
		log.Printf("Failed to load audience for event %s: %v", event.ID, err)
		return
	}
	if len(students) == 0 {
		return
	}

	eventID := event.ID
	notifications := make([]entity.Notification, 0, len(students))
	for _, student := range students {
		notifications = append(notifications, entity.Notification{
			UserID:  student.ID,
			EventID: &eventID,
			Title:   "New event: " + event.Title,
			Message: fmt.Sprintf("%s on %s at %s, %s", event.Title, event.Date, event.Time, event.Venue),
			Type:    entity.NotificationEventCreated,
		})
	}
	s.notifier.Notify(ctx, notifications...)
}

func (s *eventService) Get(ctx context.Context, actor session.Principal, id uuid.UUID) (*entity.Event, error) {
	return s.Visible(ctx, actor, id)
}

func (s *eventService) Visible(ctx context.Context, actor session.Principal, id uuid.UUID) (*entity.Event, error) {
	event, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, event) {
		// Hidden events look the same as missing ones.
		return nil, apperror.NotFound("Event not found")
	}
	return event, nil
}

func (s *eventService) Owned(ctx context.Context, actor session.Principal, id uuid.UUID) (*entity.Event, error) {
	event, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.OwnedBy(actor.UserID) && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	return event, nil
}

func (s *eventService) find(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound("Event not found")
		}
		return nil, database.Classify(err)
	}
	return event, nil
}

func (s *eventService) List(ctx context.Context, actor session.Principal) ([]entity.Event, error) {
	var (
		events []entity.Event
		err    error
	)
	switch {
	case actor.IsStudent():
		events, err = s.events.ListForAudience(ctx, actor.Department, actor.Year)
	case actor.IsFaculty():
		events, err = s.events.ListByCreator(ctx, actor.UserID)
	default:
		events, err = s.events.ListAll(ctx, 200, 0)
	}
	if err != nil {
		return nil, database.Classify(err)
	}
	return events, nil
}

func (s *eventService) Search(ctx context.Context, actor session.Principal, query string) ([]entity.Event, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.Validation("Search query is required")
	}

	if s.index != nil {
		ids, err := s.index.Search(ctx, query, searchLimit)
		if err == nil {
			events, err := s.events.FindByIDs(ctx, ids)
			if err != nil {
				return nil, database.Classify(err)
			}
			return filterVisible(actor, ordered(ids, events)), nil
		}
		log.Printf("Search index unavailable, falling back to database: %v", err)
	}

	events, err := s.List(ctx, actor)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	matched := make([]entity.Event, 0)
	for _, e := range events {
		if strings.Contains(strings.ToLower(e.Title), needle) ||
			strings.Contains(strings.ToLower(e.Description), needle) ||
			strings.Contains(strings.ToLower(e.Venue), needle) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

func canSee(actor session.Principal, event *entity.Event) bool {
	switch {
	case actor.IsAdmin():
		return true
	case actor.IsFaculty():
		return event.OwnedBy(actor.UserID)
	default:
		return event.VisibleTo(actor.Department, actor.Year)
	}
}

func filterVisible(actor session.Principal, events []entity.Event) []entity.Event {
	out := make([]entity.Event, 0, len(events))
	for i := range events {
		if canSee(actor, &events[i]) {
			out = append(out, events[i])
		}
	}
	return out
}

// ordered restores search ranking after an IN query.
func ordered(ids []uuid.UUID, events []entity.Event) []entity.Event {
	byID := make(map[uuid.UUID]entity.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}
	out := make([]entity.Event, 0, len(events))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

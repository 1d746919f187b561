package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/veertikothari/campustrack/internal/entity"
	"github.com/veertikothari/campustrack/internal/modules/event/dto"
	eventRepo "github.com/veertikothari/campustrack/internal/modules/event/repository"
	userRepo "github.com/veertikothari/campustrack/internal/modules/user/repository"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/internal/testutil"
	"github.com/veertikothari/campustrack/pkg/apperror"
)

type fakeIndex struct {
	indexed []uuid.UUID
	hits    []uuid.UUID
	err     error
}

func (f *fakeIndex) IndexEvent(_ context.Context, e *entity.Event) error {
	f.indexed = append(f.indexed, e.ID)
	return f.err
}

func (f *fakeIndex) Search(_ context.Context, _ string, _ int) ([]uuid.UUID, error) {
	return f.hits, f.err
}

func setup(t *testing.T, index EventIndex) (*gorm.DB, EventService, *testutil.RecordingNotifier) {
	t.Helper()
	db := testutil.PrepareDB(t)
	notifier := &testutil.RecordingNotifier{}
	svc := NewEventService(eventRepo.NewEventRepository(db), userRepo.NewUserRepository(db), notifier, index)
	return db, svc, notifier
}

func validInput() dto.CreateEventInput {
	return dto.CreateEventInput{
		Title:     "Robotics Workshop",
		Date:      time.Now().AddDate(0, 0, 3).Format(entity.DateLayout),
		Time:      "14:30",
		Venue:     "Lab 2",
		MaxPoints: 5,
		Category:  string(entity.CategoryCoCurricular),
	}
}

func TestCreateFansOutToDepartment(t *testing.T) {
	db, svc, notifier := setup(t, nil)
	ctx := context.Background()

	faculty := testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0)
	var audience []*entity.User
	for i := 0; i < 4; i++ {
		audience = append(audience, testutil.CreateUser(t, db, entity.RoleStudent, "CSE", i%2+1))
	}
	outsider := testutil.CreateUser(t, db, entity.RoleStudent, "ECE", 1)

	event, err := svc.Create(ctx, session.PrincipalOf(faculty), validInput())
	require.NoError(t, err)
	assert.Equal(t, "CSE", event.Department)
	assert.Equal(t, faculty.ID, event.CreatedBy)

	sent := notifier.Sent()
	require.Len(t, sent, len(audience))
	for _, student := range audience {
		got := notifier.For(student.ID)
		require.Len(t, got, 1)
		assert.Equal(t, entity.NotificationEventCreated, got[0].Type)
		require.NotNil(t, got[0].EventID)
		assert.Equal(t, event.ID, *got[0].EventID)
	}
	assert.Empty(t, notifier.For(outsider.ID))
	assert.Empty(t, notifier.For(faculty.ID))
}

func TestCreateTargetsYear(t *testing.T) {
	db, svc, notifier := setup(t, nil)

	faculty := testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0)
	second := testutil.CreateUser(t, db, entity.RoleStudent, "CSE", 2)
	third := testutil.CreateUser(t, db, entity.RoleStudent, "CSE", 3)

	input := validInput()
	input.Year = 2
	_, err := svc.Create(context.Background(), session.PrincipalOf(faculty), input)
	require.NoError(t, err)

	assert.Len(t, notifier.For(second.ID), 1)
	assert.Empty(t, notifier.For(third.ID))
}

func TestCreateValidation(t *testing.T) {
	db, svc, notifier := setup(t, nil)
	faculty := session.PrincipalOf(testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0))
	student := session.PrincipalOf(testutil.CreateUser(t, db, entity.RoleStudent, "CSE", 1))

	tests := []struct {
		name    string
		actor   session.Principal
		mutate  func(*dto.CreateEventInput)
		wantErr error
	}{
		{"student cannot create", student, func(*dto.CreateEventInput) {}, apperror.ErrForbidden},
		{"bad category", faculty, func(in *dto.CreateEventInput) { in.Category = "sports" }, apperror.ErrValidation},
		{"bad date", faculty, func(in *dto.CreateEventInput) { in.Date = "12/05/2026" }, apperror.ErrValidation},
		{"bad time", faculty, func(in *dto.CreateEventInput) { in.Time = "2pm" }, apperror.ErrValidation},
		{"negative points", faculty, func(in *dto.CreateEventInput) { in.MaxPoints = -1 }, apperror.ErrValidation},
		{"markup only title", faculty, func(in *dto.CreateEventInput) { in.Title = "<b></b>" }, apperror.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)
			_, err := svc.Create(context.Background(), tt.actor, input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, notifier.Sent())
}

func TestCreateSanitisesText(t *testing.T) {
	db, svc, _ := setup(t, nil)
	faculty := testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0)

	input := validInput()
	input.Title = "Hackathon <script>alert(1)</script>"
	input.Venue = `R&D "Block" B`
	event, err := svc.Create(context.Background(), session.PrincipalOf(faculty), input)
	require.NoError(t, err)
	assert.Equal(t, "Hackathon", event.Title)
	assert.Equal(t, `R&D "Block" B`, event.Venue)

	var stored entity.Event
	require.NoError(t, db.First(&stored, "id = ?", event.ID).Error)
	assert.Equal(t, `R&D "Block" B`, stored.Venue)
}

func TestCreateIndexesBestEffort(t *testing.T) {
	index := &fakeIndex{err: errors.New("meili down")}
	db, svc, _ := setup(t, index)
	faculty := testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0)

	event, err := svc.Create(context.Background(), session.PrincipalOf(faculty), validInput())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{event.ID}, index.indexed)
}

func TestVisibility(t *testing.T) {
	db, svc, _ := setup(t, nil)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0)
	colleague := testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0)
	admin := testutil.CreateUser(t, db, entity.RoleAdmin, "", 0)
	firstYear := testutil.CreateUser(t, db, entity.RoleStudent, "CSE", 1)
	secondYear := testutil.CreateUser(t, db, entity.RoleStudent, "CSE", 2)
	other := testutil.CreateUser(t, db, entity.RoleStudent, "ECE", 1)

	allYears := testutil.CreateEvent(t, db, owner, 0)
	yearOne := testutil.CreateEvent(t, db, owner, 1)

	tests := []struct {
		name  string
		actor *entity.User
		want  []uuid.UUID
	}{
		{"first year sees both", firstYear, []uuid.UUID{allYears.ID, yearOne.ID}},
		{"second year sees department wide", secondYear, []uuid.UUID{allYears.ID}},
		{"other department sees none", other, nil},
		{"owner sees own", owner, []uuid.UUID{allYears.ID, yearOne.ID}},
		{"colleague sees none", colleague, nil},
		{"admin sees all", admin, []uuid.UUID{allYears.ID, yearOne.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := svc.List(ctx, session.PrincipalOf(tt.actor))
			require.NoError(t, err)
			var got []uuid.UUID
			for _, e := range events {
				got = append(got, e.ID)
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}

	_, err := svc.Get(ctx, session.PrincipalOf(secondYear), yearOne.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.Owned(ctx, session.PrincipalOf(colleague), allYears.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.Get(ctx, session.PrincipalOf(admin), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestSearch(t *testing.T) {
	db := testutil.PrepareDB(t)
	owner := testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0)
	student := testutil.CreateUser(t, db, entity.RoleStudent, "CSE", 1)
	outsider := testutil.CreateUser(t, db, entity.RoleStudent, "ECE", 1)
	workshop := testutil.CreateEvent(t, db, owner, 0)

	t.Run("index hits filtered by visibility", func(t *testing.T) {
		index := &fakeIndex{hits: []uuid.UUID{workshop.ID, uuid.New()}}
		svc := NewEventService(eventRepo.NewEventRepository(db), userRepo.NewUserRepository(db), &testutil.RecordingNotifier{}, index)

		events, err := svc.Search(context.Background(), session.PrincipalOf(student), "work")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, workshop.ID, events[0].ID)

		events, err = svc.Search(context.Background(), session.PrincipalOf(outsider), "work")
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("falls back to database", func(t *testing.T) {
		index := &fakeIndex{err: errors.New("unreachable")}
		svc := NewEventService(eventRepo.NewEventRepository(db), userRepo.NewUserRepository(db), &testutil.RecordingNotifier{}, index)

		events, err := svc.Search(context.Background(), session.PrincipalOf(student), "WORK")
		require.NoError(t, err)
		require.Len(t, events, 1)

		events, err = svc.Search(context.Background(), session.PrincipalOf(student), "chess")
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("empty query", func(t *testing.T) {
		svc := NewEventService(eventRepo.NewEventRepository(db), userRepo.NewUserRepository(db), &testutil.RecordingNotifier{}, nil)
		_, err := svc.Search(context.Background(), session.PrincipalOf(student), "  ")
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}

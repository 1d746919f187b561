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
	attendanceRepo "github.com/veertikothari/campustrack/internal/modules/attendance/repository"
	enrollRepo "github.com/veertikothari/campustrack/internal/modules/enrollment/repository"
	eventRepo "github.com/veertikothari/campustrack/internal/modules/event/repository"
	eventService "github.com/veertikothari/campustrack/internal/modules/event/service"
	userRepo "github.com/veertikothari/campustrack/internal/modules/user/repository"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/internal/testutil"
	"github.com/veertikothari/campustrack/pkg/apperror"
)

type flakyRepo struct {
	attendanceRepo.AttendanceRepository
	fail bool
}

func (f *flakyRepo) Commit(ctx context.Context, eventID, markedBy uuid.UUID, marks map[uuid.UUID]entity.AttendanceStatus, at time.Time) error {
	if f.fail {
		return errors.New("connection reset by peer")
	}
	return f.AttendanceRepository.Commit(ctx, eventID, markedBy, marks, at)
}

type fixture struct {
	db       *gorm.DB
	svc      AttendanceService
	repo     *flakyRepo
	notifier *testutil.RecordingNotifier
	owner    *entity.User
	event    *entity.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.PrepareDB(t)
	notifier := &testutil.RecordingNotifier{}
	repo := &flakyRepo{AttendanceRepository: attendanceRepo.NewAttendanceRepository(db)}
	events := eventService.NewEventService(eventRepo.NewEventRepository(db), userRepo.NewUserRepository(db), notifier, nil)
	svc := NewAttendanceService(repo, enrollRepo.NewEnrollmentRepository(db), events, NewMemoryDraftStore(), notifier)

	owner := testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0)
	return &fixture{
		db:       db,
		svc:      svc,
		repo:     repo,
		notifier: notifier,
		owner:    owner,
		event:    testutil.CreateEvent(t, db, owner, 0),
	}
}

func (f *fixture) enroll(t *testing.T) *entity.User {
	t.Helper()
	student := testutil.CreateUser(t, f.db, entity.RoleStudent, "CSE", 1)
	testutil.Enroll(t, f.db, f.event, student)
	return student
}

func (f *fixture) rows(t *testing.T) map[uuid.UUID]entity.AttendanceStatus {
	t.Helper()
	var rows []entity.Attendance
	require.NoError(t, f.db.Where("event_id = ?", f.event.ID).Find(&rows).Error)
	out := make(map[uuid.UUID]entity.AttendanceStatus, len(rows))
	for _, r := range rows {
		out[r.UserID] = r.Status
	}
	assert.Len(t, out, len(rows), "one row per student")
	return out
}

func TestCommitIsIdempotentUpsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := session.PrincipalOf(f.owner)
	a, b := f.enroll(t), f.enroll(t)

	_, err := f.svc.Commit(ctx, actor, f.event.ID, map[uuid.UUID]bool{a.ID: true, b.ID: true})
	require.NoError(t, err)

	sheet, err := f.svc.Commit(ctx, actor, f.event.ID, map[uuid.UUID]bool{a.ID: true, b.ID: false})
	require.NoError(t, err)
	assert.Equal(t, string(StateCommitted), sheet.State)

	assert.Equal(t, map[uuid.UUID]entity.AttendanceStatus{
		a.ID: entity.AttendancePresent,
		b.ID: entity.AttendanceAbsent,
	}, f.rows(t))

	var enrollment entity.Enrollment
	require.NoError(t, f.db.Where("event_id = ? AND user_id = ?", f.event.ID, b.ID).First(&enrollment).Error)
	assert.Equal(t, entity.EnrollmentAbsent, enrollment.Status)

	// every student in each committed batch hears their resulting status
	require.Len(t, f.notifier.For(a.ID), 2)
	assert.Contains(t, f.notifier.For(a.ID)[1].Message, "Present")
	require.Len(t, f.notifier.For(b.ID), 2)
	assert.Contains(t, f.notifier.For(b.ID)[1].Message, "Absent")
	for _, n := range f.notifier.Sent() {
		assert.Equal(t, entity.NotificationAttendanceMarked, n.Type)
	}
}

func TestCommitWithoutChangesIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := session.PrincipalOf(f.owner)
	a := f.enroll(t)

	_, err := f.svc.Commit(ctx, actor, f.event.ID, map[uuid.UUID]bool{a.ID: true})
	require.NoError(t, err)

	_, err = f.svc.Commit(ctx, actor, f.event.ID, map[uuid.UUID]bool{a.ID: true})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestStagedDraftSurvivesRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := session.PrincipalOf(f.owner)
	a, b := f.enroll(t), f.enroll(t)

	_, err := f.svc.Stage(ctx, actor, f.event.ID, a.ID, true)
	require.NoError(t, err)
	sheet, err := f.svc.Stage(ctx, actor, f.event.ID, b.ID, false)
	require.NoError(t, err)
	assert.True(t, sheet.HasUnsavedChanges)
	assert.Empty(t, f.rows(t))

	sheet, err = f.svc.Sheet(ctx, actor, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StateDirty), sheet.State)

	_, err = f.svc.Commit(ctx, actor, f.event.ID, nil)
	require.NoError(t, err)
	assert.Len(t, f.rows(t), 2)

	sheet, err = f.svc.Sheet(ctx, actor, f.event.ID)
	require.NoError(t, err)
	assert.False(t, sheet.HasUnsavedChanges)
}

func TestCommitFailureKeepsDraftDirty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := session.PrincipalOf(f.owner)
	a := f.enroll(t)

	_, err := f.svc.Stage(ctx, actor, f.event.ID, a.ID, true)
	require.NoError(t, err)

	f.repo.fail = true
	_, err = f.svc.Commit(ctx, actor, f.event.ID, nil)
	require.ErrorIs(t, err, apperror.ErrTransport)
	assert.Equal(t, apperror.TransportMessage, err.Error())
	assert.Empty(t, f.rows(t))
	assert.Empty(t, f.notifier.Sent())

	sheet, err := f.svc.Sheet(ctx, actor, f.event.ID)
	require.NoError(t, err)
	assert.True(t, sheet.HasUnsavedChanges)

	f.repo.fail = false
	_, err = f.svc.Commit(ctx, actor, f.event.ID, nil)
	require.NoError(t, err)
	assert.Len(t, f.rows(t), 1)
}

func TestResetDiscardsDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := session.PrincipalOf(f.owner)
	a := f.enroll(t)

	_, err := f.svc.Stage(ctx, actor, f.event.ID, a.ID, true)
	require.NoError(t, err)

	sheet, err := f.svc.Reset(ctx, actor, f.event.ID)
	require.NoError(t, err)
	assert.False(t, sheet.HasUnsavedChanges)

	_, err = f.svc.Commit(ctx, actor, f.event.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestEmptyRoster(t *testing.T) {
	f := newFixture(t)
	actor := session.PrincipalOf(f.owner)

	sheet, err := f.svc.Sheet(context.Background(), actor, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StateEmpty), sheet.State)
	assert.Empty(t, sheet.Entries)

	_, err = f.svc.Commit(context.Background(), actor, f.event.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestOnlyOwnerMarks(t *testing.T) {
	f := newFixture(t)
	a := f.enroll(t)
	other := testutil.CreateUser(t, f.db, entity.RoleFaculty, "CSE", 0)

	_, err := f.svc.Stage(context.Background(), session.PrincipalOf(other), f.event.ID, a.ID, true)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.Stage(context.Background(), session.PrincipalOf(f.owner), f.event.ID, uuid.New(), true)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

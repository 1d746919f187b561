package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veertikothari/campustrack/internal/entity"
	enrollRepo "github.com/veertikothari/campustrack/internal/modules/enrollment/repository"
	eventRepo "github.com/veertikothari/campustrack/internal/modules/event/repository"
	"github.com/veertikothari/campustrack/internal/testutil"
	"github.com/veertikothari/campustrack/pkg/cooldown"
)

func TestReminderJobNotifiesOncePerEvent(t *testing.T) {
	db := testutil.PrepareDB(t)
	notifier := &testutil.RecordingNotifier{}
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.Local)

	job := NewReminderJob("0 8 * * *", eventRepo.NewEventRepository(db), enrollRepo.NewEnrollmentRepository(db), notifier, cooldown.NewMemoryGuard())
	job.now = func() time.Time { return now }

	owner := testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0)
	tomorrow := testutil.CreateEvent(t, db, owner, 0)
	require.NoError(t, db.Model(tomorrow).Update("date", "2026-05-11").Error)
	later := testutil.CreateEvent(t, db, owner, 0)
	require.NoError(t, db.Model(later).Update("date", "2026-05-20").Error)

	enrolled := testutil.CreateUser(t, db, entity.RoleStudent, "CSE", 1)
	settled := testutil.CreateUser(t, db, entity.RoleStudent, "CSE", 1)
	elsewhere := testutil.CreateUser(t, db, entity.RoleStudent, "CSE", 1)
	testutil.Enroll(t, db, tomorrow, enrolled)
	e := testutil.Enroll(t, db, tomorrow, settled)
	require.NoError(t, db.Model(e).Update("status", entity.EnrollmentAttended).Error)
	testutil.Enroll(t, db, later, elsewhere)

	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))

	sent := notifier.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, enrolled.ID, sent[0].UserID)
	assert.Equal(t, entity.NotificationEventReminder, sent[0].Type)
}

func TestReminderJobReleasesClaimsWhenClaimFails(t *testing.T) {
	db := testutil.PrepareDB(t)
	notifier := &testutil.RecordingNotifier{}
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.Local)
	guard := &flakyGuard{Guard: cooldown.NewMemoryGuard(), failOn: 2}

	job := NewReminderJob("0 8 * * *", eventRepo.NewEventRepository(db), enrollRepo.NewEnrollmentRepository(db), notifier, guard)
	job.now = func() time.Time { return now }

	owner := testutil.CreateUser(t, db, entity.RoleFaculty, "CSE", 0)
	student := testutil.CreateUser(t, db, entity.RoleStudent, "CSE", 1)
	for i := 0; i < 2; i++ {
		event := testutil.CreateEvent(t, db, owner, 0)
		require.NoError(t, db.Model(event).Update("date", "2026-05-11").Error)
		testutil.Enroll(t, db, event, student)
	}

	require.Error(t, job.Run(context.Background()))
	assert.Empty(t, notifier.Sent())

	// The claim taken before the failure was dropped, so a retry covers both events.
	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, notifier.For(student.ID), 2)
}

func TestSchedulerRunByName(t *testing.T) {
	s := NewScheduler(time.Minute)
	job := &countingJob{}
	require.NoError(t, s.Register(job))

	require.NoError(t, s.RunByName(context.Background(), "counting"))
	assert.Equal(t, 1, job.runs)
	assert.ErrorIs(t, s.RunByName(context.Background(), "missing"), ErrJobNotFound)

	assert.Error(t, s.Register(&countingJob{schedule: "not a cron"}))
}

type countingJob struct {
	schedule string
	runs     int
}

func (j *countingJob) Name() string     { return "counting" }
func (j *countingJob) Schedule() string { return j.schedule }
func (j *countingJob) Run(context.Context) error {
	j.runs++
	return nil
}

// flakyGuard fails its failOn-th Acquire call once.
type flakyGuard struct {
	cooldown.Guard
	failOn int
	calls  int
}

func (g *flakyGuard) Acquire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	g.calls++
	if g.calls == g.failOn {
		return false, 0, errors.New("redis: connection reset")
	}
	return g.Guard.Acquire(ctx, key, window)
}

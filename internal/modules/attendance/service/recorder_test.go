package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veertikothari/campustrack/internal/entity"
	"github.com/veertikothari/campustrack/pkg/apperror"
)

func roster(n int) []entity.User {
	users := make([]entity.User, n)
	for i := range users {
		users[i] = entity.User{ID: uuid.New(), Name: string(rune('A' + i))}
	}
	return users
}

func TestRecorderLifecycle(t *testing.T) {
	users := roster(2)
	r := NewRecorder(uuid.New(), users, nil)
	assert.Equal(t, StateStaged, r.State())
	assert.False(t, r.HasUnsavedChanges())

	_, err := r.BeginCommit()
	assert.ErrorIs(t, err, apperror.ErrValidation)

	require.NoError(t, r.Stage(users[0].ID, true))
	assert.Equal(t, StateDirty, r.State())
	assert.True(t, r.HasUnsavedChanges())

	batch, err := r.BeginCommit()
	require.NoError(t, err)
	assert.Equal(t, StateCommitting, r.State())
	assert.Equal(t, Marks{users[0].ID: entity.AttendancePresent}, batch)

	r.CommitSucceeded()
	assert.Equal(t, StateCommitted, r.State())
	assert.False(t, r.HasUnsavedChanges())
	assert.Equal(t, batch, r.Saved())
}

func TestRecorderStageBackToBaselineIsClean(t *testing.T) {
	users := roster(1)
	existing := []entity.Attendance{{UserID: users[0].ID, Status: entity.AttendanceAbsent}}
	r := NewRecorder(uuid.New(), users, existing)

	require.NoError(t, r.Stage(users[0].ID, true))
	assert.Equal(t, StateDirty, r.State())

	require.NoError(t, r.Stage(users[0].ID, false))
	assert.Equal(t, StateClean, r.State())
	assert.False(t, r.HasUnsavedChanges())
}

func TestRecorderFullResend(t *testing.T) {
	users := roster(3)
	existing := []entity.Attendance{
		{UserID: users[0].ID, Status: entity.AttendancePresent},
		{UserID: users[1].ID, Status: entity.AttendanceAbsent},
	}
	r := NewRecorder(uuid.New(), users, existing)

	require.NoError(t, r.Stage(users[2].ID, true))

	batch, err := r.BeginCommit()
	require.NoError(t, err)
	assert.Equal(t, Marks{
		users[0].ID: entity.AttendancePresent,
		users[1].ID: entity.AttendanceAbsent,
		users[2].ID: entity.AttendancePresent,
	}, batch)
}

func TestRecorderFailureKeepsPending(t *testing.T) {
	users := roster(1)
	r := NewRecorder(uuid.New(), users, nil)
	require.NoError(t, r.Stage(users[0].ID, false))

	_, err := r.BeginCommit()
	require.NoError(t, err)
	r.CommitFailed()

	assert.Equal(t, StateDirty, r.State())
	assert.Equal(t, Marks{users[0].ID: entity.AttendanceAbsent}, r.Pending())
	assert.Empty(t, r.Saved())
}

func TestRecorderReset(t *testing.T) {
	users := roster(2)
	r := NewRecorder(uuid.New(), users, nil)
	require.NoError(t, r.Stage(users[0].ID, true))
	require.NoError(t, r.Stage(users[1].ID, false))

	r.Reset()
	assert.Equal(t, StateClean, r.State())
	assert.Empty(t, r.Pending())
}

func TestRecorderRejectsStrangers(t *testing.T) {
	r := NewRecorder(uuid.New(), roster(1), nil)
	assert.ErrorIs(t, r.Stage(uuid.New(), true), apperror.ErrValidation)

	r.Restore(Marks{uuid.New(): entity.AttendancePresent, uuid.New(): "Late"})
	assert.False(t, r.HasUnsavedChanges())
}

func TestRecorderEmptyRoster(t *testing.T) {
	r := NewRecorder(uuid.New(), nil, nil)
	assert.Equal(t, StateEmpty, r.State())

	assert.ErrorIs(t, r.Stage(uuid.New(), true), apperror.ErrValidation)
	_, err := r.BeginCommit()
	assert.ErrorIs(t, err, apperror.ErrValidation)

	r.Reset()
	assert.Equal(t, StateEmpty, r.State())
}

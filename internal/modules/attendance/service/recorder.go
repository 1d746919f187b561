package service

import (
	"maps"
	"sort"

	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/entity"
	"github.com/veertikothari/campustrack/pkg/apperror"
)

// State is where a marking session stands.
type State string

const (
	StateLoading    State = "loading"
	StateStaged     State = "staged"
	StateDirty      State = "dirty"
	StateClean      State = "clean"
	StateCommitting State = "committing"
	StateCommitted  State = "committed"
	// StateEmpty is terminal: the event has nobody to mark.
	StateEmpty State = "empty"
)

// Marks maps a student to a decided status. Students without a decision are absent from the map.
type Marks map[uuid.UUID]entity.AttendanceStatus

const (
	msgNothingToMark = "No students are enrolled in this event"
	msgNoChanges     = "There are no unsaved attendance changes"
	msgNotOnRoster   = "Student is not enrolled in this event"
)

// Recorder holds one faculty member's marking session for an event. The
// clean map mirrors what the store holds; pending is what the operator has
// staged on top of it.
type Recorder struct {
	eventID uuid.UUID
	roster  []entity.User
	onList  map[uuid.UUID]struct{}
	clean   Marks
	pending Marks
	state   State
}

// NewRecorder builds the baseline from the enrolled students and any
// attendance already stored for them.
func NewRecorder(eventID uuid.UUID, roster []entity.User, existing []entity.Attendance) *Recorder {
	r := &Recorder{
		eventID: eventID,
		onList:  make(map[uuid.UUID]struct{}, len(roster)),
		clean:   make(Marks),
		state:   StateLoading,
	}

	r.roster = append(r.roster, roster...)
	sort.SliceStable(r.roster, func(i, j int) bool { return r.roster[i].Name < r.roster[j].Name })
	for _, u := range r.roster {
		r.onList[u.ID] = struct{}{}
	}
	for _, a := range existing {
		if _, ok := r.onList[a.UserID]; ok {
			r.clean[a.UserID] = a.Status
		}
	}
	r.pending = maps.Clone(r.clean)

	if len(r.roster) == 0 {
		r.state = StateEmpty
	} else {
		r.state = StateStaged
	}
	return r
}

func (r *Recorder) State() State { return r.state }

func (r *Recorder) Roster() []entity.User { return r.roster }

// Pending returns a copy of the staged marks.
func (r *Recorder) Pending() Marks { return maps.Clone(r.pending) }

// Saved returns a copy of the stored baseline.
func (r *Recorder) Saved() Marks { return maps.Clone(r.clean) }

// HasUnsavedChanges reports whether pending differs from clean.
func (r *Recorder) HasUnsavedChanges() bool {
	return !maps.Equal(r.pending, r.clean)
}

// Stage records one decision without touching the store.
func (r *Recorder) Stage(userID uuid.UUID, present bool) error {
	if r.state == StateEmpty {
		return apperror.Validation(msgNothingToMark)
	}
	if _, ok := r.onList[userID]; !ok {
		return apperror.Validation(msgNotOnRoster)
	}

	r.pending[userID] = entity.AttendanceStatusOf(present)
	r.settle()
	return nil
}

// Restore replays a saved draft, dropping students no longer on the roster.
func (r *Recorder) Restore(draft Marks) {
	if r.state == StateEmpty {
		return
	}
	for userID, status := range draft {
		if _, ok := r.onList[userID]; ok && status.Valid() {
			r.pending[userID] = status
		}
	}
	r.settle()
}

// Reset discards staged changes.
func (r *Recorder) Reset() {
	if r.state == StateEmpty {
		return
	}
	r.pending = maps.Clone(r.clean)
	r.state = StateClean
}

// BeginCommit returns the full batch to write. Every pending entry is
// included, not only the changed ones.
func (r *Recorder) BeginCommit() (Marks, error) {
	switch {
	case r.state == StateEmpty:
		return nil, apperror.Validation(msgNothingToMark)
	case r.state == StateCommitting:
		return nil, apperror.Conflict("A commit is already in progress")
	case !r.HasUnsavedChanges():
		return nil, apperror.Validation(msgNoChanges)
	}
	r.state = StateCommitting
	return maps.Clone(r.pending), nil
}

// CommitSucceeded promotes pending to clean.
func (r *Recorder) CommitSucceeded() {
	r.clean = maps.Clone(r.pending)
	r.state = StateCommitted
}

// CommitFailed leaves pending untouched so the operator can retry.
func (r *Recorder) CommitFailed() {
	r.settle()
}

func (r *Recorder) settle() {
	if r.HasUnsavedChanges() {
		r.state = StateDirty
	} else {
		r.state = StateClean
	}
}

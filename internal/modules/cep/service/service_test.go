package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/veertikothari/campustrack/internal/entity"
	"github.com/veertikothari/campustrack/internal/modules/cep/dto"
	cepRepo "github.com/veertikothari/campustrack/internal/modules/cep/repository"
	userRepo "github.com/veertikothari/campustrack/internal/modules/user/repository"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/internal/testutil"
	"github.com/veertikothari/campustrack/pkg/apperror"
	"github.com/veertikothari/campustrack/pkg/cooldown"
	"github.com/veertikothari/campustrack/pkg/storage"
)

type fakeProofs struct {
	uploaded []string
	deleted  []string
	fail     bool
}

func (f *fakeProofs) UploadProof(_ context.Context, r io.Reader, fileName string) (string, error) {
	if f.fail {
		return "", errors.New("cloudinary timeout")
	}
	_, _ = io.ReadAll(r)
	ref := "https://files.test/" + uuid.NewString() + "-" + fileName
	f.uploaded = append(f.uploaded, ref)
	return ref, nil
}

func (f *fakeProofs) DeleteProof(_ context.Context, fileRef string) error {
	f.deleted = append(f.deleted, fileRef)
	return nil
}

func setup(t *testing.T, proofs *fakeProofs, guard cooldown.Guard, window time.Duration) (*gorm.DB, CEPService) {
	t.Helper()
	db := testutil.PrepareDB(t)
	var store storage.ProofStorage
	if proofs != nil {
		store = proofs
	}
	return db, NewCEPService(cepRepo.NewCEPRepository(db), userRepo.NewUserRepository(db), store, guard, window)
}

func submit(t *testing.T, svc CEPService, actor session.Principal, hours int) *entity.CEPSubmission {
	t.Helper()
	sub, err := svc.Submit(context.Background(), actor, dto.SubmitInput{
		ActivityName: "Tree plantation",
		Hours:        hours,
		FileRef:      "ref-" + uuid.NewString(),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.ReviewPending, sub.State())
	return sub
}

func TestAccrualScenario(t *testing.T) {
	db, svc := setup(t, nil, nil, 0)
	ctx := context.Background()

	faculty := session.PrincipalOf(testutil.CreateUser(t, db, entity.RoleFaculty, "CS", 0))
	studentUser := testutil.CreateUser(t, db, entity.RoleStudent, "CS", 1)
	student := session.PrincipalOf(studentUser)

	_, err := svc.SetRequirement(ctx, faculty, dto.RequirementInput{Year: 1, HoursRequired: 20})
	require.NoError(t, err)

	first := submit(t, svc, student, 8)
	second := submit(t, svc, student, 5)
	third := submit(t, svc, student, 10)

	_, err = svc.Review(ctx, faculty, first.ID, true)
	require.NoError(t, err)
	_, err = svc.Review(ctx, faculty, second.ID, true)
	require.NoError(t, err)
	rejected, err := svc.Review(ctx, faculty, third.ID, false)
	require.NoError(t, err)
	assert.Equal(t, entity.ReviewRejected, rejected.State())

	progress, err := svc.Progress(ctx, student, studentUser.ID)
	require.NoError(t, err)
	assert.Equal(t, 13, progress.CompletedHours)
	assert.Equal(t, 0.65, progress.Progress)
	assert.Equal(t, 65.0, progress.ProgressPercent)
	assert.True(t, progress.RequirementConfigured)
	assert.False(t, progress.Completed)

	fourth := submit(t, svc, student, 7)
	_, err = svc.Review(ctx, faculty, fourth.ID, true)
	require.NoError(t, err)

	progress, err = svc.Progress(ctx, student, studentUser.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, progress.CompletedHours)
	assert.Equal(t, 1.0, progress.Progress)
	assert.True(t, progress.Completed)
}

func TestAccrualFollowsReviewCorrections(t *testing.T) {
	db, svc := setup(t, nil, nil, 0)
	ctx := context.Background()

	faculty := session.PrincipalOf(testutil.CreateUser(t, db, entity.RoleFaculty, "CS", 0))
	studentUser := testutil.CreateUser(t, db, entity.RoleStudent, "CS", 1)
	sub := submit(t, svc, session.PrincipalOf(studentUser), 6)

	hours := func() int {
		total, err := svc.ComputeCompletedHours(ctx, studentUser.ID)
		require.NoError(t, err)
		return total
	}

	assert.Equal(t, 0, hours())

	steps := []struct {
		approve bool
		want    int
	}{
		{true, 6},
		{true, 6},
		{false, 0},
		{true, 6},
	}
	for _, step := range steps {
		reviewed, err := svc.Review(ctx, faculty, sub.ID, step.approve)
		require.NoError(t, err)
		assert.Equal(t, step.want, hours())
		require.NotNil(t, reviewed.ReviewedBy)
		assert.Equal(t, faculty.UserID, *reviewed.ReviewedBy)
	}

	var count int64
	require.NoError(t, db.Model(&entity.CEPSubmission{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestProgressWithoutRequirement(t *testing.T) {
	db, svc := setup(t, nil, nil, 0)
	studentUser := testutil.CreateUser(t, db, entity.RoleStudent, "CS", 2)

	progress, err := svc.Progress(context.Background(), session.PrincipalOf(studentUser), studentUser.ID)
	require.NoError(t, err)
	assert.False(t, progress.RequirementConfigured)
	assert.Nil(t, progress.HoursRequired)
	assert.False(t, progress.Completed)
}

func TestProgressAccess(t *testing.T) {
	db, svc := setup(t, nil, nil, 0)
	ctx := context.Background()

	studentUser := testutil.CreateUser(t, db, entity.RoleStudent, "CS", 1)
	classmate := testutil.CreateUser(t, db, entity.RoleStudent, "CS", 1)
	sameDept := testutil.CreateUser(t, db, entity.RoleFaculty, "CS", 0)
	otherDept := testutil.CreateUser(t, db, entity.RoleFaculty, "ME", 0)

	_, err := svc.Progress(ctx, session.PrincipalOf(classmate), studentUser.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.Progress(ctx, session.PrincipalOf(sameDept), studentUser.ID)
	assert.NoError(t, err)

	_, err = svc.Progress(ctx, session.PrincipalOf(otherDept), studentUser.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestRequirementUpsert(t *testing.T) {
	db, svc := setup(t, nil, nil, 0)
	ctx := context.Background()
	faculty := session.PrincipalOf(testutil.CreateUser(t, db, entity.RoleFaculty, "CS", 0))

	first, err := svc.SetRequirement(ctx, faculty, dto.RequirementInput{Year: 1, HoursRequired: 20})
	require.NoError(t, err)

	second, err := svc.SetRequirement(ctx, faculty, dto.RequirementInput{Year: 1, HoursRequired: 30, Deadline: "2027-03-31"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 30, second.HoursRequired)
	require.NotNil(t, second.Deadline)

	var count int64
	require.NoError(t, db.Model(&entity.CEPRequirement{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	_, err = svc.SetRequirement(ctx, faculty, dto.RequirementInput{Year: 1, Department: "ME", HoursRequired: 10})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	student := session.PrincipalOf(testutil.CreateUser(t, db, entity.RoleStudent, "CS", 1))
	_, err = svc.SetRequirement(ctx, student, dto.RequirementInput{Year: 1, HoursRequired: 10})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestSubmitValidation(t *testing.T) {
	db, svc := setup(t, nil, nil, 0)
	student := session.PrincipalOf(testutil.CreateUser(t, db, entity.RoleStudent, "CS", 1))

	tests := []struct {
		name  string
		input dto.SubmitInput
	}{
		{"zero hours", dto.SubmitInput{ActivityName: "Camp", Hours: 0, FileRef: "ref"}},
		{"negative hours", dto.SubmitInput{ActivityName: "Camp", Hours: -2, FileRef: "ref"}},
		{"missing file", dto.SubmitInput{ActivityName: "Camp", Hours: 3}},
		{"blank activity", dto.SubmitInput{ActivityName: "  ", Hours: 3, FileRef: "ref"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), student, tt.input, nil)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}

	_, err := svc.Submit(context.Background(), student, dto.SubmitInput{ActivityName: "Camp", Hours: 2}, &ProofUpload{
		Reader: strings.NewReader("pdf"), FileName: "proof.pdf",
	})
	assert.ErrorIs(t, err, apperror.ErrValidation, "uploads need storage")
}

func TestSubmitCooldown(t *testing.T) {
	db, svc := setup(t, nil, cooldown.NewMemoryGuard(), time.Minute)
	student := session.PrincipalOf(testutil.CreateUser(t, db, entity.RoleStudent, "CS", 1))

	submit(t, svc, student, 2)

	_, err := svc.Submit(context.Background(), student, dto.SubmitInput{ActivityName: "Camp", Hours: 2, FileRef: "ref"}, nil)
	assert.ErrorIs(t, err, apperror.ErrRateLimitExceeded)
	assert.Equal(t, 429, apperror.MapErrorToStatus(err))
}

func TestActivityNameStoredAsTyped(t *testing.T) {
	db, svc := setup(t, nil, nil, 0)
	ctx := context.Background()
	student := session.PrincipalOf(testutil.CreateUser(t, db, entity.RoleStudent, "CS", 1))

	sub, err := svc.Submit(ctx, student, dto.SubmitInput{
		ActivityName: `Food & "Clothes" drive<script>alert(1)</script>`,
		Hours:        3,
		FileRef:      "ref",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, `Food & "Clothes" drive`, sub.ActivityName)

	renamed := "Blood donation <b>camp</b> & drive"
	edited, err := svc.Edit(ctx, student, sub.ID, dto.EditInput{ActivityName: &renamed}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Blood donation camp & drive", edited.ActivityName)

	var stored entity.CEPSubmission
	require.NoError(t, db.First(&stored, "id = ?", sub.ID).Error)
	assert.Equal(t, "Blood donation camp & drive", stored.ActivityName)
}

func TestEditWhilePending(t *testing.T) {
	proofs := &fakeProofs{}
	db, svc := setup(t, proofs, nil, 0)
	ctx := context.Background()

	faculty := session.PrincipalOf(testutil.CreateUser(t, db, entity.RoleFaculty, "CS", 0))
	student := session.PrincipalOf(testutil.CreateUser(t, db, entity.RoleStudent, "CS", 1))
	other := session.PrincipalOf(testutil.CreateUser(t, db, entity.RoleStudent, "CS", 1))

	sub, err := svc.Submit(ctx, student, dto.SubmitInput{ActivityName: "Camp", Hours: 4}, &ProofUpload{
		Reader: strings.NewReader("pdf"), FileName: "camp.pdf",
	})
	require.NoError(t, err)
	original := sub.FileRef
	assert.Equal(t, proofs.uploaded[0], original)

	hours := 5
	edited, err := svc.Edit(ctx, student, sub.ID, dto.EditInput{Hours: &hours}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, edited.Hours)
	assert.Equal(t, original, edited.FileRef, "omitted file keeps the prior one")

	edited, err = svc.Edit(ctx, student, sub.ID, dto.EditInput{}, &ProofUpload{Reader: strings.NewReader("v2"), FileName: "camp2.pdf"})
	require.NoError(t, err)
	assert.NotEqual(t, original, edited.FileRef)
	assert.Equal(t, []string{original}, proofs.deleted)

	_, err = svc.Edit(ctx, other, sub.ID, dto.EditInput{Hours: &hours}, nil)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.Review(ctx, faculty, sub.ID, false)
	require.NoError(t, err)

	_, err = svc.Edit(ctx, student, sub.ID, dto.EditInput{Hours: &hours}, nil)
	assert.ErrorIs(t, err, apperror.ErrLocked)
}

func TestSubmitUploadFailure(t *testing.T) {
	proofs := &fakeProofs{fail: true}
	db, svc := setup(t, proofs, cooldown.NewMemoryGuard(), time.Minute)
	student := session.PrincipalOf(testutil.CreateUser(t, db, entity.RoleStudent, "CS", 1))

	_, err := svc.Submit(context.Background(), student, dto.SubmitInput{ActivityName: "Camp", Hours: 2}, &ProofUpload{
		Reader: strings.NewReader("pdf"), FileName: "camp.pdf",
	})
	assert.ErrorIs(t, err, apperror.ErrTransport)

	// the failed attempt does not start the cooldown
	proofs.fail = false
	_, err = svc.Submit(context.Background(), student, dto.SubmitInput{ActivityName: "Camp", Hours: 2, FileRef: "ref"}, nil)
	assert.NoError(t, err)
}

func TestReviewScope(t *testing.T) {
	db, svc := setup(t, nil, nil, 0)
	ctx := context.Background()

	student := session.PrincipalOf(testutil.CreateUser(t, db, entity.RoleStudent, "CS", 1))
	otherDept := session.PrincipalOf(testutil.CreateUser(t, db, entity.RoleFaculty, "ME", 0))
	sameDept := session.PrincipalOf(testutil.CreateUser(t, db, entity.RoleFaculty, "CS", 0))
	sub := submit(t, svc, student, 3)

	_, err := svc.Review(ctx, otherDept, sub.ID, true)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.Review(ctx, student, sub.ID, true)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.Review(ctx, sameDept, uuid.New(), true)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	pending, err := svc.PendingForDepartment(ctx, sameDept)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, sub.ID, pending[0].ID)

	pending, err = svc.PendingForDepartment(ctx, otherDept)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/entity"
	"github.com/veertikothari/campustrack/internal/modules/cep/dto"
	cepRepo "github.com/veertikothari/campustrack/internal/modules/cep/repository"
	userRepo "github.com/veertikothari/campustrack/internal/modules/user/repository"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/pkg/apperror"
	"github.com/veertikothari/campustrack/pkg/cooldown"
	"github.com/veertikothari/campustrack/pkg/database"
	"github.com/veertikothari/campustrack/pkg/metrics"
	"github.com/veertikothari/campustrack/pkg/sanitize"
	"github.com/veertikothari/campustrack/pkg/stats"
	"github.com/veertikothari/campustrack/pkg/storage"
)

const submitAction = "cep_submit"

// ProofUpload is a file sent with a submission instead of a file reference.
type ProofUpload struct {
	Reader   io.Reader
	FileName string
}

type CEPService interface {
	SetRequirement(ctx context.Context, actor session.Principal, input dto.RequirementInput) (*entity.CEPRequirement, error)
	ComputeCompletedHours(ctx context.Context, userID uuid.UUID) (int, error)
	// Progress reports accrual for userID. Students may only ask about themselves.
	Progress(ctx context.Context, actor session.Principal, userID uuid.UUID) (*dto.Progress, error)
	Submit(ctx context.Context, actor session.Principal, input dto.SubmitInput, upload *ProofUpload) (*entity.CEPSubmission, error)
	Edit(ctx context.Context, actor session.Principal, id uuid.UUID, input dto.EditInput, upload *ProofUpload) (*entity.CEPSubmission, error)
	Review(ctx context.Context, actor session.Principal, id uuid.UUID, approved bool) (*entity.CEPSubmission, error)
	MySubmissions(ctx context.Context, actor session.Principal) ([]entity.CEPSubmission, error)
	PendingForDepartment(ctx context.Context, actor session.Principal) ([]entity.CEPSubmission, error)
}

type cepService struct {
	repo   cepRepo.CEPRepository
	users  userRepo.UserRepository
	proofs storage.ProofStorage
	guard  cooldown.Guard
	window time.Duration
	now    func() time.Time
}

// NewCEPService wires the CEP engine. proofs may be nil when uploads are
// not configured; submissions then need a file reference.
func NewCEPService(repo cepRepo.CEPRepository, users userRepo.UserRepository, proofs storage.ProofStorage, guard cooldown.Guard, window time.Duration) CEPService {
	return &cepService{
		repo:   repo,
		users:  users,
		proofs: proofs,
		guard:  guard,
		window: window,
		now:    time.Now,
	}
}

func (s *cepService) SetRequirement(ctx context.Context, actor session.Principal, input dto.RequirementInput) (*entity.CEPRequirement, error) {
	if !actor.IsFaculty() && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	if input.HoursRequired <= 0 {
		return nil, apperror.Validation("Hours required must be greater than 0")
	}
	if input.Year <= 0 {
		return nil, apperror.Validation("Year is required")
	}

	department := actor.Department
	if actor.IsAdmin() && input.Department != "" {
		department = input.Department
	}
	if input.Department != "" && input.Department != department {
		return nil, apperror.Forbidden("Faculty can only set requirements for their own department")
	}
	if department == "" {
		return nil, apperror.Validation("Department is required")
	}

	req := &entity.CEPRequirement{
		Year:          input.Year,
		Department:    department,
		HoursRequired: input.HoursRequired,
		UpdatedBy:     actor.UserID,
	}
	if input.Deadline != "" {
		deadline, err := time.Parse(entity.DateLayout, input.Deadline)
		if err != nil {
			return nil, apperror.Validation("Deadline must be YYYY-MM-DD")
		}
		req.Deadline = &deadline
	}

	saved, err := s.repo.UpsertRequirement(ctx, req)
	if err != nil {
		return nil, database.Classify(err)
	}
	return saved, nil
}

func (s *cepService) ComputeCompletedHours(ctx context.Context, userID uuid.UUID) (int, error) {
	total, err := s.repo.CompletedHours(ctx, userID)
	if err != nil {
		return 0, database.Classify(err)
	}
	return total, nil
}

func (s *cepService) Progress(ctx context.Context, actor session.Principal, userID uuid.UUID) (*dto.Progress, error) {
	student, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound("Student not found")
		}
		return nil, database.Classify(err)
	}
	if !canViewStudent(actor, student) {
		return nil, apperror.ErrForbidden
	}

	completed, err := s.ComputeCompletedHours(ctx, userID)
	if err != nil {
		return nil, err
	}
	progress := &dto.Progress{CompletedHours: completed}

	req, err := s.repo.FindRequirement(ctx, student.Year, student.Department)
	if err != nil {
		if database.IsNotFound(err) {
			return progress, nil
		}
		return nil, database.Classify(err)
	}

	ratio := stats.Ratio(completed, req.HoursRequired)
	progress.RequirementConfigured = true
	progress.HoursRequired = &req.HoursRequired
	progress.Deadline = req.Deadline
	progress.Progress = stats.Round2(ratio)
	progress.ProgressPercent = stats.Round2(ratio * 100)
	progress.Completed = completed >= req.HoursRequired
	return progress, nil
}

func (s *cepService) Submit(ctx context.Context, actor session.Principal, input dto.SubmitInput, upload *ProofUpload) (*entity.CEPSubmission, error) {
	if !actor.IsStudent() {
		return nil, apperror.Forbidden("Only students can submit CEP hours")
	}
	if input.Hours <= 0 {
		return nil, apperror.Validation("Hours must be a positive whole number")
	}
	fileRef := strings.TrimSpace(input.FileRef)
	if fileRef == "" && upload == nil {
		return nil, apperror.Validation("A proof file is required")
	}
	activity := sanitize.Text(input.ActivityName)
	if activity == "" {
		return nil, apperror.Validation("Activity name is required")
	}

	key := cooldown.UserKey(actor.UserID, submitAction)
	if s.guard != nil && s.window > 0 {
		ok, left, err := s.guard.Acquire(ctx, key, s.window)
		if err != nil {
			log.Printf("Cooldown check failed, allowing submission: %v", err)
		} else if !ok {
			return nil, apperror.New(http.StatusTooManyRequests,
				fmt.Sprintf("Please wait %s before submitting again", left.Round(time.Second)),
				apperror.ErrRateLimitExceeded)
		}
	}

	uploaded := false
	if upload != nil {
		ref, err := s.store(ctx, upload)
		if err != nil {
			s.release(ctx, key)
			return nil, err
		}
		fileRef, uploaded = ref, true
	}

	sub := &entity.CEPSubmission{
		UserID:       actor.UserID,
		ActivityName: activity,
		Hours:        input.Hours,
		FileRef:      fileRef,
		SubmittedAt:  s.now(),
	}
	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		s.release(ctx, key)
		if uploaded {
			s.discard(ctx, fileRef)
		}
		return nil, database.Classify(err)
	}
	return sub, nil
}

func (s *cepService) Edit(ctx context.Context, actor session.Principal, id uuid.UUID, input dto.EditInput, upload *ProofUpload) (*entity.CEPSubmission, error) {
	sub, err := s.own(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if sub.State() != entity.ReviewPending {
		return nil, apperror.Locked("Submission has already been reviewed and can no longer be edited")
	}

	if input.ActivityName != nil {
		activity := sanitize.Text(*input.ActivityName)
		if activity == "" {
			return nil, apperror.Validation("Activity name is required")
		}
		sub.ActivityName = activity
	}
	if input.Hours != nil {
		if *input.Hours <= 0 {
			return nil, apperror.Validation("Hours must be a positive whole number")
		}
		sub.Hours = *input.Hours
	}

	previous := sub.FileRef
	uploaded := false
	switch {
	case upload != nil:
		ref, err := s.store(ctx, upload)
		if err != nil {
			return nil, err
		}
		sub.FileRef, uploaded = ref, true
	case input.FileRef != nil && strings.TrimSpace(*input.FileRef) != "":
		sub.FileRef = strings.TrimSpace(*input.FileRef)
	}

	if err := s.repo.UpdatePending(ctx, sub); err != nil {
		if uploaded {
			s.discard(ctx, sub.FileRef)
		}
		if errors.Is(err, cepRepo.ErrNotPending) {
			return nil, apperror.Locked("Submission has already been reviewed and can no longer be edited")
		}
		return nil, database.Classify(err)
	}

	if uploaded && previous != "" {
		s.discard(ctx, previous)
	}
	return sub, nil
}

func (s *cepService) Review(ctx context.Context, actor session.Principal, id uuid.UUID, approved bool) (*entity.CEPSubmission, error) {
	if !actor.IsFaculty() && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	sub, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.User == nil || !canViewStudent(actor, sub.User) {
		return nil, apperror.ErrForbidden
	}

	// Re-applying the current decision is a no-op.
	if sub.Approved != nil && *sub.Approved == approved {
		return sub, nil
	}

	at := s.now()
	if err := s.repo.Review(ctx, id, approved, actor.UserID, at); err != nil {
		return nil, database.Classify(err)
	}

	decision := "rejected"
	if approved {
		decision = "approved"
	}
	if sub.Approved != nil {
		decision = "corrected_" + decision
	}
	metrics.CEPReviews.WithLabelValues(decision).Inc()

	reviewer := actor.UserID
	sub.Approved = &approved
	sub.ReviewedBy = &reviewer
	sub.ReviewedAt = &at
	return sub, nil
}

func (s *cepService) MySubmissions(ctx context.Context, actor session.Principal) ([]entity.CEPSubmission, error) {
	subs, err := s.repo.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, database.Classify(err)
	}
	return subs, nil
}

func (s *cepService) PendingForDepartment(ctx context.Context, actor session.Principal) ([]entity.CEPSubmission, error) {
	if !actor.IsFaculty() && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	subs, err := s.repo.ListPendingForDepartment(ctx, actor.Department)
	if err != nil {
		return nil, database.Classify(err)
	}
	return subs, nil
}

func (s *cepService) find(ctx context.Context, id uuid.UUID) (*entity.CEPSubmission, error) {
	sub, err := s.repo.FindSubmission(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound("Submission not found")
		}
		return nil, database.Classify(err)
	}
	return sub, nil
}

// own loads a submission belonging to the actor. Other users' rows look missing.
func (s *cepService) own(ctx context.Context, actor session.Principal, id uuid.UUID) (*entity.CEPSubmission, error) {
	sub, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.UserID != actor.UserID {
		return nil, apperror.NotFound("Submission not found")
	}
	return sub, nil
}

func (s *cepService) store(ctx context.Context, upload *ProofUpload) (string, error) {
	if s.proofs == nil {
		return "", apperror.Validation("File uploads are not available, send a file reference instead")
	}
	ref, err := s.proofs.UploadProof(ctx, upload.Reader, upload.FileName)
	if err != nil {
		return "", apperror.Transport(err)
	}
	return ref, nil
}

func (s *cepService) discard(ctx context.Context, fileRef string) {
	if s.proofs == nil {
		return
	}
	if err := s.proofs.DeleteProof(ctx, fileRef); err != nil {
		log.Printf("Failed to delete proof %s: %v", fileRef, err)
	}
}

func (s *cepService) release(ctx context.Context, key string) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Release(ctx, key); err != nil {
		log.Printf("Failed to release cooldown %s: %v", key, err)
	}
}

func canViewStudent(actor session.Principal, student *entity.User) bool {
	switch {
	case actor.IsAdmin():
		return true
	case actor.IsFaculty():
		return student.Department == actor.Department
	default:
		return actor.UserID == student.ID
	}
}

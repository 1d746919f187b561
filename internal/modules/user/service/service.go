package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/veertikothari/campustrack/internal/entity"
	"github.com/veertikothari/campustrack/internal/modules/user/dto"
	"github.com/veertikothari/campustrack/internal/modules/user/repository"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/pkg/apperror"
	"github.com/veertikothari/campustrack/pkg/database"
)

type AuthService interface {
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	Logout(ctx context.Context, sess *session.Session) error
	Me(ctx context.Context, p session.Principal) (*entity.User, error)
}

type authService struct {
	repo     repository.UserRepository
	sessions *session.Manager
}

func NewAuthService(repo repository.UserRepository, sessions *session.Manager) AuthService {
	return &authService{repo: repo, sessions: sessions}
}

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", apperror.ErrUnauthorized)

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, errInvalidCredentials
		}
		return nil, database.Classify(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	token, expiresAt, err := s.sessions.Issue(session.PrincipalOf(user))
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		User:        user,
	}, nil
}

func (s *authService) Logout(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return errors.New("no active session")
	}
	return s.sessions.Teardown(ctx, sess)
}

func (s *authService) Me(ctx context.Context, p session.Principal) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, database.Classify(err)
	}
	return user, nil
}

package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/veertikothari/campustrack/internal/entity"
	"github.com/veertikothari/campustrack/internal/modules/admin/dto"
	userRepo "github.com/veertikothari/campustrack/internal/modules/user/repository"
	"github.com/veertikothari/campustrack/pkg/apperror"
	"github.com/veertikothari/campustrack/pkg/database"
	commonDto "github.com/veertikothari/campustrack/pkg/dto"
)

// AdminService provisions accounts. The core never creates users itself.
type AdminService interface {
	CreateUser(ctx context.Context, input dto.CreateUserInput) (*entity.User, error)
	GetAllUsers(ctx context.Context, query dto.ListUsersQuery) (*dto.PaginatedUsersResponse, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type adminService struct {
	userRepo userRepo.UserRepository
}

func NewAdminService(userRepo userRepo.UserRepository) AdminService {
	return &adminService{userRepo: userRepo}
}

func (s *adminService) CreateUser(ctx context.Context, input dto.CreateUserInput) (*entity.User, error) {
	role := entity.Role(input.Role)
	if !role.Valid() {
		return nil, apperror.Validation("Role must be one of: student faculty admin")
	}

	department := strings.TrimSpace(input.Department)
	switch role {
	case entity.RoleStudent:
		if department == "" || input.Year < 1 {
			return nil, apperror.Validation("Students need a department and a year")
		}
	case entity.RoleFaculty:
		if department == "" {
			return nil, apperror.Validation("Faculty need a department")
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		UID:          strings.TrimSpace(input.UID),
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: string(hashed),
		Role:         role,
		Department:   department,
		Year:         input.Year,
	}
	if role != entity.RoleStudent {
		user.Year = 0
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperror.Conflict("Email or UID already registered")
		}
		return nil, database.Classify(err)
	}
	return user, nil
}

func (s *adminService) GetAllUsers(ctx context.Context, query dto.ListUsersQuery) (*dto.PaginatedUsersResponse, error) {
	offset := query.Normalize()

	users, total, err := s.userRepo.List(ctx, entity.Role(query.Role), query.Limit, offset)
	if err != nil {
		return nil, database.Classify(err)
	}

	return &dto.PaginatedUsersResponse{
		Data: users,
		Meta: commonDto.NewPaginationMeta(query.PaginationQuery, total),
	}, nil
}

func (s *adminService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.userRepo.FindByID(ctx, id); err != nil {
		return database.Classify(err)
	}
	return database.Classify(s.userRepo.Delete(ctx, id))
}

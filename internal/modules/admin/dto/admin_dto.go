package dto

import (
	"github.com/veertikothari/campustrack/internal/entity"
	commonDto "github.com/veertikothari/campustrack/pkg/dto"
)

type CreateUserInput struct {
	UID        string `json:"uid" binding:"required,max=50"`
	Name       string `json:"name" binding:"required,max=100"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Role       string `json:"role" binding:"required,oneof=student faculty admin"`
	Department string `json:"department" binding:"max=50"`
	Year       int    `json:"year" binding:"omitempty,min=1,max=6"`
}

type ListUsersQuery struct {
	commonDto.PaginationQuery
	Role string `form:"role" binding:"omitempty,oneof=student faculty admin"`
}

type PaginatedUsersResponse struct {
	Data []entity.User            `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

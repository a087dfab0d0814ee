package dto

import (
	"time"

	"github.com/carebridge/carebridge-api/internal/models"
)

// CreateUserRequest registers a new account. Carer accounts start
// unapproved and must be approved by an administrator before they can
// record care.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=6"`
	FullName string          `json:"full_name" validate:"required,min=2,max=200"`
	Role     models.UserRole `json:"role" validate:"required"`
	Phone    *string         `json:"phone,omitempty"`
	HireDate *time.Time      `json:"hire_date,omitempty"`
}

// UpdateUserRequest edits profile fields.
type UpdateUserRequest struct {
	FullName *string          `json:"full_name,omitempty" validate:"omitempty,min=2,max=200"`
	Role     *models.UserRole `json:"role,omitempty"`
	Phone    *string          `json:"phone,omitempty"`
	HireDate *time.Time       `json:"hire_date,omitempty"`
	Active   *bool            `json:"active,omitempty"`
}

// ApproveUserRequest flips the approval flag on a carer account.
type ApproveUserRequest struct {
	Approved bool `json:"approved"`
}

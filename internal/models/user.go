package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin    UserRole = "SUPERADMIN"
	RoleAdmin         UserRole = "ADMIN"
	RolePractitioner  UserRole = "PRACTITIONER"
	RoleSupportWorker UserRole = "SUPPORT_WORKER"
	RoleFamily        UserRole = "FAMILY"
)

// CarerRoles lists the roles allowed to log activities, incidents and shifts.
var CarerRoles = []UserRole{RoleSupportWorker, RolePractitioner}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Approved     bool       `db:"approved" json:"approved"`
	Active       bool       `db:"active" json:"active"`
	HireDate     *time.Time `db:"hire_date" json:"hire_date,omitempty"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the user holds an administrative role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// IsCarer reports whether the user is frontline staff.
func (u *User) IsCarer() bool {
	return u.Role == RoleSupportWorker || u.Role == RolePractitioner
}

// CanRecordCare is the capability gate for completion records, behavior
// incidents and clock events: an approved, active carer.
func (u *User) CanRecordCare() bool {
	return u.IsCarer() && u.Approved && u.Active
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Approved  *bool
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

package models

import "time"

// User roles
const (
	RoleAdmin    = "ADMIN"
	RoleUser     = "USER"
	RoleExternal = "EXTERNAL"
)

// User statuses. Users are never physically removed, only set INACTIVE.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// User represents the users table
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;size:50" json:"username"`
	PasswordHash string    `gorm:"column:password;not null;size:255" json:"-"`
	Role         string    `gorm:"size:16;not null;default:'USER'" json:"role"`
	Status       string    `gorm:"size:16;not null;default:'ACTIVE';index" json:"status"`
	Email        *string   `gorm:"uniqueIndex;size:191" json:"email"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsActive reports whether the user may authenticate
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// ValidRole reports whether role is one of the fixed roles
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleUser, RoleExternal:
		return true
	}
	return false
}

// ValidStatus reports whether status is one of the fixed statuses
func ValidStatus(status string) bool {
	return status == StatusActive || status == StatusInactive
}

package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
	RoleCustomer = "customer"
)

// User represents an account in the system (customer, employee or admin)
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Subject      string         `gorm:"uniqueIndex;not null" json:"subject"` // token 'sub' claim: "local|<uuid>" or the Auth0 user ID
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `json:"-"` // empty for Auth0-provisioned users
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	Phone        string         `json:"phone,omitempty"`
	Role         string         `gorm:"not null;default:'customer'" json:"role"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsStaff reports whether the user may manage catalog and orders
func (u User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleEmployee
}

// ValidRole reports whether role is one of the known account roles
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleEmployee, RoleCustomer:
		return true
	}
	return false
}

package models

import (
	"time"
)

// Employee roles
const (
	EmployeeRoleAdmin     = "admin"
	EmployeeRoleWarehouse = "warehouse"
	EmployeeRoleSupport   = "support"
	EmployeeRoleSales     = "sales"
)

// Employee wraps a user account with staff details
type Employee struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	UserID     uint         `gorm:"not null;uniqueIndex" json:"user_id"`
	User       User         `gorm:"foreignKey:UserID" json:"user"`
	Role       string       `gorm:"not null" json:"role"`
	Department string       `gorm:"not null" json:"department"`
	Attendance []Attendance `gorm:"foreignKey:EmployeeID" json:"attendance"`
	Tasks      []Task       `gorm:"foreignKey:AssignedToID" json:"tasks"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// TableName specifies the table name for the Employee model
func (Employee) TableName() string {
	return "employees"
}

// Attendance is one login/logout pair; LogoutAt is nil while the shift is open
type Attendance struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	EmployeeID uint       `gorm:"not null;index" json:"employee_id"`
	LoginAt    time.Time  `gorm:"not null" json:"login_at"`
	LogoutAt   *time.Time `json:"logout_at"`
}

// TableName specifies the table name for the Attendance model
func (Attendance) TableName() string {
	return "attendance"
}

// ValidEmployeeRole reports whether role is a known staff role
func ValidEmployeeRole(role string) bool {
	switch role {
	case EmployeeRoleAdmin, EmployeeRoleWarehouse, EmployeeRoleSupport, EmployeeRoleSales:
		return true
	}
	return false
}

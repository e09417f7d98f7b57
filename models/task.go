package models

import (
	"time"
)

// Task statuses
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

// Task is a unit of work assigned to one employee
type Task struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Title        string     `gorm:"not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	Status       string     `gorm:"not null;default:'pending'" json:"status"`
	AssignedToID uint       `gorm:"not null;index" json:"assigned_to_id"` // foreign key to employees table
	AssignedByID uint       `gorm:"not null" json:"assigned_by_id"`       // foreign key to users table
	AssignedBy   *User      `gorm:"foreignKey:AssignedByID" json:"assigned_by,omitempty"`
	DueDate      *time.Time `json:"due_date"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Task model
func (Task) TableName() string {
	return "tasks"
}

// ValidTaskStatus reports whether status is a known task status
func ValidTaskStatus(status string) bool {
	switch status {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

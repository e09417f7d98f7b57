package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shopwise/shopwise-api/config"
	"github.com/shopwise/shopwise-api/models"
)

// CreateTaskRequest represents the request body for assigning a task
type CreateTaskRequest struct {
	Title        string     `json:"title" binding:"required"`
	Description  string     `json:"description"`
	AssignedToID uint       `json:"assigned_to_id" binding:"required"`
	DueDate      *time.Time `json:"due_date"`
}

// UpdateTaskStatusRequest represents the request body for changing a task's status
type UpdateTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// tasksByDueDate orders tasks by due date with undated tasks last
func tasksByDueDate(db *gorm.DB) *gorm.DB {
	return db.Order("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END").Order("due_date ASC").Order("id ASC")
}

// CreateTask handles POST /api/v1/tasks - admin only
func CreateTask(c *gin.Context) {
	user, ok := requireCurrentUser(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	db := config.GetDB()
	var assignee int64
	if err := db.Model(&models.Employee{}).Where("id = ?", req.AssignedToID).Count(&assignee).Error; err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check employee")
		return
	}
	if assignee == 0 {
		respondWithError(c, http.StatusBadRequest, "EMPLOYEE_NOT_FOUND", "Employee not found")
		return
	}

	task := models.Task{
		Title:        req.Title,
		Description:  req.Description,
		Status:       models.TaskStatusPending,
		AssignedToID: req.AssignedToID,
		AssignedByID: user.ID,
		DueDate:      req.DueDate,
	}
	if err := db.Create(&task).Error; err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create task")
		return
	}

	respondData(c, http.StatusCreated, task)
}

// ListTasks handles GET /api/v1/tasks - admin only, ordered by due date
func ListTasks(c *gin.Context) {
	var tasks []models.Task
	if err := config.GetDB().
		Preload("AssignedBy").
		Scopes(tasksByDueDate).
		Find(&tasks).Error; err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch tasks")
		return
	}

	respondData(c, http.StatusOK, tasks)
}

// ListEmployeeTasks handles GET /api/v1/tasks/employee/:employeeId - admin or that employee
func ListEmployeeTasks(c *gin.Context) {
	user, ok := requireCurrentUser(c)
	if !ok {
		return
	}
	employeeID, ok := idParam(c, "employeeId")
	if !ok {
		return
	}

	db := config.GetDB()
	var employee models.Employee
	if err := db.First(&employee, employeeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondWithError(c, http.StatusNotFound, "EMPLOYEE_NOT_FOUND", "Employee not found")
			return
		}
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch employee")
		return
	}

	if user.Role != models.RoleAdmin && employee.UserID != user.ID {
		respondWithError(c, http.StatusForbidden, "FORBIDDEN", "Access denied")
		return
	}

	var tasks []models.Task
	if err := db.
		Where("assigned_to_id = ?", employee.ID).
		Preload("AssignedBy").
		Scopes(tasksByDueDate).
		Find(&tasks).Error; err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch tasks")
		return
	}

	respondData(c, http.StatusOK, tasks)
}

// UpdateTaskStatus handles PUT /api/v1/tasks/:id/status - admin or the assigned employee
func UpdateTaskStatus(c *gin.Context) {
	user, ok := requireCurrentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if !models.ValidTaskStatus(req.Status) {
		respondWithError(c, http.StatusBadRequest, "INVALID_STATUS", "status must be one of pending, in_progress, completed")
		return
	}

	db := config.GetDB()
	var task models.Task
	if err := db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondWithError(c, http.StatusNotFound, "TASK_NOT_FOUND", "Task not found")
			return
		}
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch task")
		return
	}

	if user.Role != models.RoleAdmin {
		var assignee models.Employee
		if err := db.First(&assignee, task.AssignedToID).Error; err != nil || assignee.UserID != user.ID {
			respondWithError(c, http.StatusForbidden, "FORBIDDEN", "Access denied")
			return
		}
	}

	if err := db.Model(&task).Update("status", req.Status).Error; err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update task")
		return
	}
	task.Status = req.Status

	respondData(c, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/v1/tasks/:id - admin only
func DeleteTask(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	result := config.GetDB().Delete(&models.Task{}, id)
	if result.Error != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete task")
		return
	}
	if result.RowsAffected == 0 {
		respondWithError(c, http.StatusNotFound, "TASK_NOT_FOUND", "Task not found")
		return
	}

	respondData(c, http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

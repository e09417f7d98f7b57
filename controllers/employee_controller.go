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

// CreateEmployeeRequest represents the request body for promoting a user to staff
type CreateEmployeeRequest struct {
	UserID     uint   `json:"user_id" binding:"required"`
	Role       string `json:"role" binding:"required"`
	Department string `json:"department" binding:"required"`
}

// UpdateEmployeeRequest represents the request body for updating staff details
type UpdateEmployeeRequest struct {
	Role       string `json:"role"`
	Department string `json:"department"`
}

var errEmployeeNotFound = errors.New("employee not found")

// CreateEmployee handles POST /api/v1/employees - admin only.
// The user's account role becomes employee unless they are an admin.
func CreateEmployee(c *gin.Context) {
	var req CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if !models.ValidEmployeeRole(req.Role) {
		respondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "role must be one of admin, warehouse, support, sales")
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.First(&user, req.UserID).Error; err != nil {
		respondWithError(c, http.StatusBadRequest, "USER_NOT_FOUND", "User not found")
		return
	}

	var existing int64
	if err := db.Model(&models.Employee{}).Where("user_id = ?", user.ID).Count(&existing).Error; err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check existing employee")
		return
	}
	if existing > 0 {
		respondWithError(c, http.StatusConflict, "EMPLOYEE_EXISTS", "User is already an employee")
		return
	}

	employee := models.Employee{
		UserID:     user.ID,
		Role:       req.Role,
		Department: req.Department,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&employee).Error; err != nil {
			return err
		}
		if user.Role == models.RoleAdmin {
			return nil
		}
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Update("role", models.RoleEmployee).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			respondWithError(c, http.StatusConflict, "EMPLOYEE_EXISTS", "User is already an employee")
			return
		}
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create employee")
		return
	}

	loaded, err := loadEmployee(db, employee.ID)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load employee details")
		return
	}
	respondData(c, http.StatusCreated, loaded)
}

// ListEmployees handles GET /api/v1/employees - admin only
func ListEmployees(c *gin.Context) {
	var employees []models.Employee
	if err := config.GetDB().
		Preload("User").
		Preload("Tasks").
		Order("id ASC").
		Find(&employees).Error; err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch employees")
		return
	}

	respondData(c, http.StatusOK, employees)
}

// GetEmployee handles GET /api/v1/employees/:id - admin or the employee
func GetEmployee(c *gin.Context) {
	employee, ok := employeeForCaller(c)
	if !ok {
		return
	}

	respondData(c, http.StatusOK, employee)
}

// UpdateEmployee handles PUT /api/v1/employees/:id - admin only
func UpdateEmployee(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if req.Role != "" && !models.ValidEmployeeRole(req.Role) {
		respondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "role must be one of admin, warehouse, support, sales")
		return
	}

	db := config.GetDB()
	employee, err := loadEmployee(db, id)
	if err != nil {
		respondEmployeeLoadError(c, err)
		return
	}

	updates := make(map[string]interface{})
	if req.Role != "" {
		updates["role"] = req.Role
	}
	if req.Department != "" {
		updates["department"] = req.Department
	}
	if len(updates) > 0 {
		if err := db.Model(&models.Employee{}).Where("id = ?", employee.ID).Updates(updates).Error; err != nil {
			respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update employee")
			return
		}
	}

	employee, err = loadEmployee(db, id)
	if err != nil {
		respondEmployeeLoadError(c, err)
		return
	}
	respondData(c, http.StatusOK, employee)
}

// DeleteEmployee handles DELETE /api/v1/employees/:id - admin only.
// The user's account role reverts to customer.
func DeleteEmployee(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	employee, err := loadEmployee(db, id)
	if err != nil {
		respondEmployeeLoadError(c, err)
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ?", employee.ID).Delete(&models.Attendance{}).Error; err != nil {
			return err
		}
		if err := tx.Where("assigned_to_id = ?", employee.ID).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Employee{}, employee.ID).Error; err != nil {
			return err
		}
		if employee.User.Role == models.RoleAdmin {
			return nil
		}
		return tx.Model(&models.User{}).Where("id = ?", employee.UserID).Update("role", models.RoleCustomer).Error
	})
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete employee")
		return
	}

	respondData(c, http.StatusOK, gin.H{"message": "Employee deleted successfully"})
}

// AttendanceLogin handles POST /api/v1/employees/:id/attendance/login - admin or the employee
func AttendanceLogin(c *gin.Context) {
	employee, ok := employeeForCaller(c)
	if !ok {
		return
	}

	db := config.GetDB()
	record := models.Attendance{EmployeeID: employee.ID, LoginAt: time.Now().UTC()}
	if err := db.Create(&record).Error; err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to record attendance")
		return
	}

	respondWithEmployee(c, db, employee.ID)
}

// AttendanceLogout handles POST /api/v1/employees/:id/attendance/logout - admin or the employee.
// Closes the latest open attendance record; does nothing when none is open.
func AttendanceLogout(c *gin.Context) {
	employee, ok := employeeForCaller(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var last models.Attendance
	err := db.Where("employee_id = ?", employee.ID).Order("login_at DESC").Order("id DESC").First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load attendance")
		return
	}

	if err == nil && last.LogoutAt == nil {
		if err := db.Model(&last).Update("logout_at", time.Now().UTC()).Error; err != nil {
			respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to record attendance")
			return
		}
	}

	respondWithEmployee(c, db, employee.ID)
}

func respondWithEmployee(c *gin.Context, db *gorm.DB, id uint) {
	employee, err := loadEmployee(db, id)
	if err != nil {
		respondEmployeeLoadError(c, err)
		return
	}
	respondData(c, http.StatusOK, employee)
}

// employeeForCaller loads the :id employee and checks that the caller is an admin or that employee
func employeeForCaller(c *gin.Context) (*models.Employee, bool) {
	user, ok := requireCurrentUser(c)
	if !ok {
		return nil, false
	}
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}

	employee, err := loadEmployee(config.GetDB(), id)
	if err != nil {
		respondEmployeeLoadError(c, err)
		return nil, false
	}

	if user.Role != models.RoleAdmin && employee.UserID != user.ID {
		respondWithError(c, http.StatusForbidden, "FORBIDDEN", "Access denied")
		return nil, false
	}
	return employee, true
}

func loadEmployee(db *gorm.DB, id uint) (*models.Employee, error) {
	var employee models.Employee
	err := db.
		Preload("User").
		Preload("Attendance", func(db *gorm.DB) *gorm.DB { return db.Order("login_at ASC").Order("id ASC") }).
		Preload("Tasks").
		First(&employee, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &employee, nil
}

func respondEmployeeLoadError(c *gin.Context, err error) {
	if errors.Is(err, errEmployeeNotFound) {
		respondWithError(c, http.StatusNotFound, "EMPLOYEE_NOT_FOUND", "Employee not found")
		return
	}
	respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch employee")
}

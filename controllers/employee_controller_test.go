package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopwise/shopwise-api/models"
	"github.com/shopwise/shopwise-api/testutil"
)

func employeeRouter(user models.User) *gin.Engine {
	router := setupTestRouter()
	employees := router.Group("/employees", asUser(user))
	{
		employees.POST("", CreateEmployee)
		employees.GET("", ListEmployees)
		employees.GET("/:id", GetEmployee)
		employees.PUT("/:id", UpdateEmployee)
		employees.DELETE("/:id", DeleteEmployee)
		employees.POST("/:id/attendance/login", AttendanceLogin)
		employees.POST("/:id/attendance/logout", AttendanceLogout)
	}
	return router
}

func hireEmployee(t *testing.T, router *gin.Engine, userID uint, role string) uint {
	t.Helper()
	w := performRequest(router, http.MethodPost, "/employees", map[string]interface{}{
		"user_id":    userID,
		"role":       role,
		"department": "Operations",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint(dataOf(t, w)["id"].(float64))
}

func userRole(t *testing.T, env *testEnv, id uint) string {
	t.Helper()
	var user models.User
	require.NoError(t, env.db.First(&user, id).Error)
	return user.Role
}

func TestEmployeeLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	admin := testutil.CreateUser(t, env.db, "admin@example.com", models.RoleAdmin)
	worker := testutil.CreateUser(t, env.db, "worker@example.com", models.RoleCustomer)
	router := employeeRouter(admin)

	employeeID := hireEmployee(t, router, worker.ID, models.EmployeeRoleWarehouse)
	assert.Equal(t, models.RoleEmployee, userRole(t, env, worker.ID))

	t.Run("hiring twice", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/employees", map[string]interface{}{
			"user_id": worker.ID, "role": "sales", "department": "Sales",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "EMPLOYEE_EXISTS", errorCode(t, w))
	})

	t.Run("invalid requests", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/employees", map[string]interface{}{
			"user_id": 9999, "role": "sales", "department": "Sales",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "USER_NOT_FOUND", errorCode(t, w))

		w = performRequest(router, http.MethodPost, "/employees", map[string]interface{}{
			"user_id": worker.ID, "role": "janitor", "department": "Sales",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	})

	t.Run("update", func(t *testing.T) {
		w := performRequest(router, http.MethodPut, fmt.Sprintf("/employees/%d", employeeID), map[string]interface{}{"department": "Returns"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := dataOf(t, w)
		assert.Equal(t, "Returns", data["department"])
		assert.Equal(t, models.EmployeeRoleWarehouse, data["role"])
	})

	t.Run("list", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/employees", nil)
		require.Equal(t, http.StatusOK, w.Code)
		employees := listOf(t, w)
		require.Len(t, employees, 1)
		assert.Equal(t, "worker@example.com", employees[0].(map[string]interface{})["user"].(map[string]interface{})["email"])
	})

	t.Run("delete reverts the account role", func(t *testing.T) {
		w := performRequest(router, http.MethodDelete, fmt.Sprintf("/employees/%d", employeeID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, models.RoleCustomer, userRole(t, env, worker.ID))

		w = performRequest(router, http.MethodGet, fmt.Sprintf("/employees/%d", employeeID), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "EMPLOYEE_NOT_FOUND", errorCode(t, w))
	})

	t.Run("admins keep their account role", func(t *testing.T) {
		id := hireEmployee(t, router, admin.ID, models.EmployeeRoleAdmin)
		assert.Equal(t, models.RoleAdmin, userRole(t, env, admin.ID))

		w := performRequest(router, http.MethodDelete, fmt.Sprintf("/employees/%d", id), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, models.RoleAdmin, userRole(t, env, admin.ID))
	})
}

func TestEmployeeAccess(t *testing.T) {
	env := setupTestEnv(t)
	admin := testutil.CreateUser(t, env.db, "admin@example.com", models.RoleAdmin)
	first := testutil.CreateUser(t, env.db, "first@example.com", models.RoleCustomer)
	second := testutil.CreateUser(t, env.db, "second@example.com", models.RoleCustomer)

	firstID := hireEmployee(t, employeeRouter(admin), first.ID, models.EmployeeRoleSupport)
	hireEmployee(t, employeeRouter(admin), second.ID, models.EmployeeRoleSales)

	// Reload so the callers carry their new account role
	require.NoError(t, env.db.First(&first, first.ID).Error)
	require.NoError(t, env.db.First(&second, second.ID).Error)
	path := fmt.Sprintf("/employees/%d", firstID)

	w := performRequest(employeeRouter(first), http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(employeeRouter(second), http.MethodGet, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performRequest(employeeRouter(second), http.MethodPost, path+"/attendance/login", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAttendance(t *testing.T) {
	env := setupTestEnv(t)
	admin := testutil.CreateUser(t, env.db, "admin@example.com", models.RoleAdmin)
	worker := testutil.CreateUser(t, env.db, "worker@example.com", models.RoleCustomer)
	employeeID := hireEmployee(t, employeeRouter(admin), worker.ID, models.EmployeeRoleWarehouse)
	require.NoError(t, env.db.First(&worker, worker.ID).Error)

	router := employeeRouter(worker)
	base := fmt.Sprintf("/employees/%d/attendance", employeeID)

	w := performRequest(router, http.MethodPost, base+"/login", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	records := dataOf(t, w)["attendance"].([]interface{})
	require.Len(t, records, 1)
	assert.Nil(t, records[0].(map[string]interface{})["logout_at"])

	w = performRequest(router, http.MethodPost, base+"/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	records = dataOf(t, w)["attendance"].([]interface{})
	require.Len(t, records, 1)
	assert.NotNil(t, records[0].(map[string]interface{})["logout_at"])

	// A logout without an open shift changes nothing
	w = performRequest(router, http.MethodPost, base+"/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dataOf(t, w)["attendance"], 1)

	var open int64
	require.NoError(t, env.db.Model(&models.Attendance{}).Where("logout_at IS NULL").Count(&open).Error)
	assert.Equal(t, int64(0), open)
}

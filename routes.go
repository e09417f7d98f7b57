package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/shopwise/shopwise-api/config"
	"github.com/shopwise/shopwise-api/controllers"
	"github.com/shopwise/shopwise-api/middleware"
	"github.com/shopwise/shopwise-api/models"
)

// setupRouter wires every route of the API
func setupRouter(cfg *config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.IsTest() {
		gin.SetMode(gin.TestMode)
	}

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		gin.Recovery(),
		cors.New(corsConfig(cfg)),
	)

	authenticated := middleware.EnsureValidToken(cfg)
	currentUser := middleware.LoadCurrentUser()
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleEmployee)
	admin := middleware.RequireRole(models.RoleAdmin)

	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		if !cfg.UsesAuth0() {
			auth := v1.Group("/auth")
			auth.POST("/register", controllers.Register)
			auth.POST("/login", controllers.Login)
		}

		// Profile provisioning runs before a local user exists
		v1.POST("/users", authenticated, controllers.CreateUser)
		users := v1.Group("/users", authenticated, currentUser)
		users.GET("/me", controllers.GetMyProfile)
		users.PUT("/me", controllers.UpdateMyProfile)

		v1.GET("/products", controllers.ListProducts)
		v1.GET("/products/:id", controllers.GetProduct)
		products := v1.Group("/products", authenticated, currentUser, staff)
		products.POST("", controllers.CreateProduct)
		products.PUT("/:id", controllers.UpdateProduct)
		products.DELETE("/:id", controllers.DeleteProduct)
		products.POST("/:id/image-upload-url", controllers.CreateProductImageUpload)

		orders := v1.Group("/orders", authenticated, currentUser)
		orders.POST("", controllers.CreateOrder)
		orders.GET("", staff, controllers.ListOrders)
		orders.GET("/mine", controllers.ListMyOrders)
		orders.GET("/:id", controllers.GetOrder)
		orders.PUT("/:id/status", staff, controllers.UpdateOrderStatus)
		orders.DELETE("/:id", staff, controllers.DeleteOrder)

		v1.GET("/reviews/product/:productId", controllers.ListProductReviews)
		reviews := v1.Group("/reviews", authenticated, currentUser)
		reviews.POST("", controllers.CreateReview)
		reviews.PUT("/:id", controllers.UpdateReview)
		reviews.DELETE("/:id", controllers.DeleteReview)

		v1.GET("/categories", controllers.ListCategories)
		v1.GET("/categories/:id", controllers.GetCategory)
		categories := v1.Group("/categories", authenticated, currentUser, staff)
		categories.POST("", controllers.CreateCategory)
		categories.PUT("/:id", controllers.UpdateCategory)
		categories.DELETE("/:id", controllers.DeleteCategory)

		employees := v1.Group("/employees", authenticated, currentUser)
		employees.POST("", admin, controllers.CreateEmployee)
		employees.GET("", admin, controllers.ListEmployees)
		employees.GET("/:id", controllers.GetEmployee)
		employees.PUT("/:id", admin, controllers.UpdateEmployee)
		employees.DELETE("/:id", admin, controllers.DeleteEmployee)
		employees.POST("/:id/attendance/login", controllers.AttendanceLogin)
		employees.POST("/:id/attendance/logout", controllers.AttendanceLogout)

		tasks := v1.Group("/tasks", authenticated, currentUser)
		tasks.POST("", admin, controllers.CreateTask)
		tasks.GET("", admin, controllers.ListTasks)
		tasks.GET("/employee/:employeeId", controllers.ListEmployeeTasks)
		tasks.PUT("/:id/status", controllers.UpdateTaskStatus)
		tasks.DELETE("/:id", admin, controllers.DeleteTask)

		chatbot := v1.Group("/chatbot", authenticated, currentUser)
		chatbot.POST("/chat", controllers.Chat)
		chatbot.POST("/transcribe", controllers.TranscribeAndChat)
		chatbot.GET("/history", controllers.ChatHistory)
	}

	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}

	if len(cfg.CORSAllowedOrigins) == 0 || (len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSAllowedOrigins
		corsCfg.AllowCredentials = true
	}
	return corsCfg
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Shopwise API is running",
	})
}

// databaseStatus checks database connectivity
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	stats := sqlDB.Stats()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"data": gin.H{
			"dialect":          db.Dialector.Name(),
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
		},
	})
}

package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/employee-ingest/internal/api/handler"
	"github.com/cuongbtq/employee-ingest/internal/metrics"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": deps.ServiceName,
		})
	})

	// Readiness checks the database
	r.GET("/ready", func(c *gin.Context) {
		if deps.DB != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.DB.HealthCheck(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unavailable",
					"error":  err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	employeeHandler := handler.NewEmployeeHandler(deps)
	notificationHandler := handler.NewNotificationHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		employees := v1.Group("/employees")
		{
			// POST /api/v1/employees - Queue a single employee create
			employees.POST("", employeeHandler.CreateEmployee)

			// POST /api/v1/employees/upload - Queue a bulk CSV import
			employees.POST("/upload", employeeHandler.UploadEmployees)

			// GET /api/v1/employees - List employees with search, sorting and pagination
			employees.GET("", employeeHandler.ListEmployees)

			// GET /api/v1/employees/:id - Get employee details
			employees.GET("/:id", employeeHandler.GetEmployee)

			// PUT /api/v1/employees/:id - Partially update an employee
			employees.PUT("/:id", employeeHandler.UpdateEmployee)

			// DELETE /api/v1/employees/:id - Delete an employee
			employees.DELETE("/:id", employeeHandler.DeleteEmployee)
		}

		notifications := v1.Group("/notifications")
		{
			// GET /api/v1/notifications/employee - Server-sent employee events
			notifications.GET("/employee", notificationHandler.StreamEmployeeEvents)

			// GET /api/v1/notifications/employee/ws - Same events over WebSocket
			notifications.GET("/employee/ws", notificationHandler.StreamEmployeeEventsWS)
		}
	}

	return r
}

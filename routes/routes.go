package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"healthwatch-server/jobs"
	"healthwatch-server/middleware"
	"healthwatch-server/services"
	ws "healthwatch-server/websocket"
)

// JobStatus reports the scheduler state for the health endpoint.
type JobStatus interface {
	State() jobs.JobState
}

// Dependencies are the services the HTTP surface is built from.
type Dependencies struct {
	Auth          *services.AuthService
	Users         *services.UserStore
	Notifications *services.NotificationStore
	Measurements  *services.MeasurementStore
	Reminders     *services.ReminderStore
	Hub           *ws.Hub
	Gateway       *ws.Gateway
	Scheduler     JobStatus
	RateLimiter   *middleware.RateLimiter
	CORSOrigins   []string
	Logger        *zap.Logger
}

// SetupRouter builds the gin engine with every route and middleware.
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.AuditLogMiddleware(deps.Logger))
	router.Use(middleware.CORSMiddleware(deps.CORSOrigins))
	router.Use(middleware.SecurityHeadersMiddleware())

	router.GET("/health", healthCheck(deps))

	// Realtime upgrades carry no JSON body and authenticate themselves.
	router.GET("/socket", deps.Gateway.Handle)

	api := router.Group("/api/v1")
	api.GET("/ws", deps.Gateway.Handle)

	rest := api.Group("")
	rest.Use(middleware.InputValidationMiddleware())
	if deps.RateLimiter != nil {
		rest.Use(middleware.RateLimitMiddleware(deps.RateLimiter, deps.Logger))
	}

	NewAuthHandler(deps.Auth, deps.Logger).RegisterAuthRoutes(rest.Group("/auth"))

	protected := rest.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Auth, deps.Logger))
	NewNotificationHandler(deps.Notifications, deps.Users, deps.Logger).
		RegisterNotificationRoutes(protected.Group("/notifications"))
	NewWatchHandler(deps.Measurements, deps.Logger).
		RegisterWatchRoutes(protected.Group("/watch/measurements"))
	NewScheduleHandler(deps.Reminders, deps.Logger).
		RegisterScheduleRoutes(protected.Group("/schedules"))

	return router
}

func healthCheck(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":    "ok",
			"service":   "healthwatch-server",
			"timestamp": time.Now().UTC(),
			"realtime":  deps.Hub.Stats(),
		}
		if deps.Scheduler != nil {
			body["scheduler"] = deps.Scheduler.State()
		}
		c.JSON(http.StatusOK, body)
	}
}

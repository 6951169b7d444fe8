package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/taskboard-api/internal/config"
	"github.com/yukikurage/taskboard-api/internal/constants"
	"github.com/yukikurage/taskboard-api/internal/database"
	apierrors "github.com/yukikurage/taskboard-api/internal/errors"
	"github.com/yukikurage/taskboard-api/internal/handlers"
	"github.com/yukikurage/taskboard-api/internal/middleware"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/services"
)

const serviceName = "taskboard-api"

// Dependencies are the collaborators the HTTP layer is built from
type Dependencies struct {
	Config       *config.Config
	Log          logrus.FieldLogger
	Auth         *services.AuthService
	Users        *services.UserService
	Tasks        *services.TaskService
	DB           database.Pinger
	Limiter      middleware.Limiter
	SessionStore sessions.Store
}

// New builds the gin engine with every route and the middleware chain
func New(d Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestLogger(d.Log), middleware.Recovery(d.Log))
	if d.SessionStore != nil {
		r.Use(sessions.Sessions(constants.SessionCookieName, d.SessionStore))
	}

	authHandler := handlers.NewAuthHandler(d.Auth)
	userHandler := handlers.NewUserHandler(d.Users)
	taskHandler := handlers.NewTaskHandler(d.Tasks)
	healthHandler := handlers.NewHealthHandler(serviceName, d.DB, d.Log)

	requireAuth := middleware.RequireAuth(d.Auth)
	taskAccess := middleware.RequireTaskAccess(d.Tasks)

	uploadLimit := int64(d.Config.UploadMaxFiles)*d.Config.UploadMaxFileSize + constants.MultipartOverheadBytes

	api := r.Group("/api")
	api.GET("/health", healthHandler.Health)

	api.Use(middleware.BodyLimit(d.Config.MaxBodyBytes, uploadLimit))
	if d.Limiter != nil {
		api.Use(middleware.RateLimit(d.Limiter, d.Log))
	}
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.Me)
			auth.PUT("/password", requireAuth, authHandler.ChangePassword)
		}

		// User routes
		users := api.Group("/users")
		{
			users.GET("/profile", requireAuth, userHandler.GetProfile)
			users.PUT("/profile", requireAuth, userHandler.UpdateProfile)
			users.PUT("/preferences", requireAuth, userHandler.UpdatePreferences)
			users.GET("", requireAuth, middleware.RequireRole(models.RoleManager, models.RoleAdmin), userHandler.ListUsers)
			users.GET("/:id", middleware.OptionalAuth(d.Auth), userHandler.GetUser)
			users.PATCH("/:id/status", requireAuth, middleware.RequireRole(models.RoleAdmin), userHandler.SetStatus)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/generate", taskHandler.GenerateTasks)
			tasks.GET("/stats/overview", taskHandler.Stats)
			tasks.GET("/:id", taskAccess, taskHandler.GetTask)
			tasks.PUT("/:id", taskAccess, taskHandler.UpdateTask)
			tasks.PATCH("/:id", taskAccess, taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskAccess, taskHandler.DeleteTask)
			tasks.POST("/:id/comments", taskAccess, taskHandler.AddComment)
			tasks.PUT("/:id/comments/:commentId", taskAccess, taskHandler.UpdateComment)
			tasks.DELETE("/:id/comments/:commentId", taskAccess, taskHandler.DeleteComment)
			tasks.POST("/:id/time-logs", taskAccess, taskHandler.AddTimeLog)
			tasks.POST("/:id/attachments", taskAccess, taskHandler.UploadAttachments)
			tasks.DELETE("/:id/attachments/:attachmentId", taskAccess, taskHandler.DeleteAttachment)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		apierrors.Respond(c, apierrors.NotFound("Route "+c.Request.URL.Path+" not found"))
	})

	return r
}

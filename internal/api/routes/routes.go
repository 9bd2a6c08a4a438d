package routes

import (
	"net/http"
	"time"

	"rideshare-service/internal/api/handlers"
	"rideshare-service/internal/api/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const slowRequestThreshold = 500 * time.Millisecond

type Handlers struct {
	Auth         *handlers.AuthHandler
	User         *handlers.UserHandler
	Channel      *handlers.ChannelHandler
	Message      *handlers.MessageHandler
	Notification *handlers.NotificationHandler
	WS           *handlers.WSHandler
}

type Router struct {
	engine      *gin.Engine
	h           Handlers
	rateLimitMW *middleware.RateLimitMiddleware
	authMW      *middleware.AuthMiddleware
}

func NewRouter(
	allowedOrigins []string,
	h Handlers,
	authMW *middleware.AuthMiddleware,
	rateLimitMW *middleware.RateLimitMiddleware,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(allowedOrigins))
	engine.Use(middleware.LogApi())
	engine.Use(middleware.SlowRequests(slowRequestThreshold))

	return &Router{
		engine:      engine,
		h:           h,
		rateLimitMW: rateLimitMW,
		authMW:      authMW,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	// Public routes
	authRoutes := api.Group("/auth")
	authRoutes.Use(r.rateLimitMW.RateLimitIP(50, time.Minute)) // 50 requests per minute per IP
	{
		authRoutes.POST("/register", r.h.Auth.Register)
		authRoutes.POST("/login", r.h.Auth.Login)
	}

	// Browsers cannot set headers on the upgrade request, so RequireAuth also accepts ?token=
	api.GET("/ws",
		r.authMW.RequireAuth(),
		r.rateLimitMW.RateLimit(30, time.Minute),
		r.h.WS.HandleWebSocket,
	)

	// Authenticated routes
	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		users := auth.Group("/users")
		users.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			users.GET("/profile", r.h.User.GetProfile)
			users.GET("/online", r.h.User.GetOnlineUsers)
			users.GET("/:id/presence", r.h.User.GetPresence)
		}

		channels := auth.Group("/channels")
		channels.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			channels.GET("", r.h.Channel.GetUserChannels)
			channels.POST("", r.h.Channel.CreateChannel)
			channels.POST("/support", r.h.Channel.OpenSupport)
			channels.GET("/:id", r.h.Channel.GetChannelByID)
			channels.DELETE("/:id", r.h.Channel.DeleteChannel)
			channels.POST("/:id/members", r.h.Channel.AddMember)
			channels.DELETE("/:id/members", r.h.Channel.RemoveMember)
			channels.PUT("/:id/leave", r.h.Channel.LeaveChannel)
			channels.GET("/:id/messages", r.h.Message.GetChannelMessages)
			channels.POST("/:id/messages", r.h.Message.SendMessage)
		}

		messages := auth.Group("/messages")
		messages.Use(r.rateLimitMW.RateLimit(20, time.Minute))
		{
			messages.POST("/attachments", r.h.Message.UploadAttachment)
		}

		notifications := auth.Group("/notifications")
		notifications.Use(r.rateLimitMW.RateLimit(200, time.Minute))
		{
			notifications.GET("", r.h.Notification.List)
			notifications.GET("/unread-count", r.h.Notification.UnreadCount)
			notifications.PUT("/read-all", r.h.Notification.MarkAllRead)
			notifications.PUT("/:id/read", r.h.Notification.MarkRead)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/parleychat/parley-backend/internal/handler"
	"github.com/parleychat/parley-backend/internal/middleware"
	"github.com/parleychat/parley-backend/internal/service"
	"github.com/parleychat/parley-backend/pkg/jwt"
	"github.com/parleychat/parley-backend/pkg/logger"
)

// Setup configures all API routes
func Setup(
	router *gin.Engine,
	conversationHandler *handler.ConversationHandler,
	blockHandler *handler.BlockHandler,
	userHandler *handler.UserHandler,
	mediaHandler *handler.MediaHandler,
	wsHandler *handler.WSHandler,
	userService service.UserService,
	jwtManager *jwt.Manager,
) {
	authed := middleware.JWTAuth(jwtManager)

	api := router.Group("/api/v1", authed, ensureUser(userService))

	conversations := api.Group("/conversations")
	{
		conversations.GET("", conversationHandler.List)
		conversations.POST("/direct", conversationHandler.StartDirect)
		conversations.POST("/group", conversationHandler.CreateGroup)
		conversations.DELETE("/:id", conversationHandler.Hide)
		conversations.GET("/:id/messages", conversationHandler.Messages)
		conversations.GET("/:id/members", conversationHandler.Members)
		conversations.POST("/:id/members", conversationHandler.AddMembers)
		conversations.DELETE("/:id/members/:uid", conversationHandler.RemoveMember)
		conversations.PATCH("/:id/members/:uid/role", conversationHandler.ChangeRole)
		conversations.POST("/:id/leave", conversationHandler.Leave)
	}

	blocks := api.Group("/blocks")
	{
		blocks.GET("", blockHandler.List)
		blocks.POST("", blockHandler.Block)
		blocks.DELETE("/:uid", blockHandler.Unblock)
	}

	users := api.Group("/users")
	{
		users.GET("/me", userHandler.Me)
		users.PATCH("/me", userHandler.UpdateMe)
	}

	media := api.Group("/media")
	{
		media.POST("", mediaHandler.Upload)
		media.GET("/:key/url", mediaHandler.URL)
	}

	// WebSocket upgrade shares the JWT middleware (token query param
	// fallback for browsers).
	router.GET("/ws", authed, ensureUser(userService), wsHandler.Connect)
}

// ensureUser mirrors the authenticated user into the local users table
// on first contact so membership and block rows always resolve.
func ensureUser(userService service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID != "" {
			if err := userService.EnsureUser(c.Request.Context(), userID, middleware.GetNickname(c)); err != nil {
				logger.Get().Error().Err(err).Str("user_id", userID).Msg("user mirror failed")
			}
		}
		c.Next()
	}
}

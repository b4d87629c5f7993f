package api

import (
	"net/http"

	"launchpad_go_backend/internal/auth"
	apperrors "launchpad_go_backend/internal/errors"
	"launchpad_go_backend/internal/services"
	"launchpad_go_backend/internal/wsocket"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authMiddleware gin.HandlerFunc, chatService *services.ChatService, stripeService *services.StripeService, wsHandler *wsocket.Handler) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		chat := api.Group("/chat", authMiddleware)
		chat.POST("", sendChatMessageHandler(chatService))
		chat.GET("/models", listModelsHandler(chatService))
		chat.GET("/conversations", listConversationsHandler(chatService))
		chat.GET("/conversations/:id", getConversationHandler(chatService))
		chat.GET("/conversations/:id/export", exportConversationHandler(chatService))

		billing := api.Group("/billing")
		billing.POST("/checkout", authMiddleware, createCheckoutHandler(stripeService))
		billing.POST("/portal", authMiddleware, createPortalHandler(stripeService))
		billing.POST("/webhook", stripeWebhookHandler(stripeService))
	}

	if wsHandler != nil {
		r.GET("/ws", authMiddleware, func(c *gin.Context) {
			user, ok := auth.CurrentUser(c)
			if !ok {
				apperrors.HandleError(c, apperrors.New401Error(""))
				return
			}
			wsHandler.HandleWebSocket(c.Writer, c.Request, user)
		})
	}
}

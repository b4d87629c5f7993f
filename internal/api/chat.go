package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"launchpad_go_backend/internal/auth"
	apperrors "launchpad_go_backend/internal/errors"
	"launchpad_go_backend/internal/models"
	"launchpad_go_backend/internal/services"

	"github.com/gin-gonic/gin"
)

func sendChatMessageHandler(chatService *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c)
		if !ok {
			apperrors.HandleError(c, apperrors.New401Error(""))
			return
		}

		var request services.SendMessageRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			apperrors.HandleError(c, apperrors.New400Error("Invalid request body"))
			return
		}

		response, err := chatService.SendMessage(c.Request.Context(), user.ID, request)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, response)
	}
}

func listModelsHandler(chatService *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		available, defaultModel := chatService.AvailableModels()
		ids := make([]string, 0, len(available))
		for _, m := range available {
			ids = append(ids, m.ID)
		}
		c.JSON(http.StatusOK, gin.H{
			"models":  ids,
			"default": defaultModel,
		})
	}
}

type conversationSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func listConversationsHandler(chatService *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c)
		if !ok {
			apperrors.HandleError(c, apperrors.New401Error(""))
			return
		}

		convs, err := chatService.ListConversations(c.Request.Context(), user.ID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		summaries := make([]conversationSummary, 0, len(convs))
		for _, conv := range convs {
			summaries = append(summaries, conversationSummary{
				ID:        conv.ID.String(),
				Title:     conv.Title,
				CreatedAt: conv.CreatedAt,
				UpdatedAt: conv.UpdatedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"conversations": summaries})
	}
}

func getConversationHandler(chatService *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c)
		if !ok {
			apperrors.HandleError(c, apperrors.New401Error(""))
			return
		}

		conv, err := chatService.GetConversation(c.Request.Context(), user.ID, c.Param("id"))
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		messages := conv.Messages
		if messages == nil {
			messages = []models.Message{}
		}
		c.JSON(http.StatusOK, gin.H{
			"id":        conv.ID,
			"title":     conv.Title,
			"createdAt": conv.CreatedAt,
			"updatedAt": conv.UpdatedAt,
			"messages":  messages,
		})
	}
}

func exportConversationHandler(chatService *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c)
		if !ok {
			apperrors.HandleError(c, apperrors.New401Error(""))
			return
		}

		var buf bytes.Buffer
		id := c.Param("id")
		if err := chatService.ExportConversation(c.Request.Context(), user.ID, id, &buf); err != nil {
			apperrors.HandleError(c, err)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="conversation-%s.pdf"`, id))
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	}
}

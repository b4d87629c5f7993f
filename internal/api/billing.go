package api

import (
	"io"
	"net/http"

	"launchpad_go_backend/internal/auth"
	apperrors "launchpad_go_backend/internal/errors"
	"launchpad_go_backend/internal/models"
	"launchpad_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxWebhookBodyBytes = int64(65536)

func createCheckoutHandler(stripeService *services.StripeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c)
		if !ok {
			apperrors.HandleError(c, apperrors.New401Error(""))
			return
		}

		var request struct {
			Plan models.PlanTier `json:"plan" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			apperrors.HandleError(c, apperrors.New400Error("plan is required"))
			return
		}

		url, sessionID, err := stripeService.CreateCheckoutSession(c.Request.Context(), user, request.Plan)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url, "sessionId": sessionID})
	}
}

func createPortalHandler(stripeService *services.StripeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c)
		if !ok {
			apperrors.HandleError(c, apperrors.New401Error(""))
			return
		}

		url, err := stripeService.CreatePortalSession(c.Request.Context(), user)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}

func stripeWebhookHandler(stripeService *services.StripeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := zerolog.Ctx(c.Request.Context())
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)

		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			log.Warn().Err(err).Msg("Error reading webhook body")
			apperrors.HandleError(c, apperrors.New400Error("Error reading request body"))
			return
		}

		event, err := stripeService.ConstructEvent(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			log.Warn().Err(err).Msg("Error verifying webhook signature")
			apperrors.HandleError(c, apperrors.New400Error("Failed to verify webhook signature"))
			return
		}

		if err := stripeService.HandleEvent(c.Request.Context(), event); err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

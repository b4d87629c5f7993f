package errors

import (
	"errors"

	"launchpad_go_backend/internal/services"
)

// FromService maps a service-layer error onto the HTTP taxonomy.
// Anything unrecognised becomes a generic 500 that keeps err for logging.
func FromService(err error) *CustomError {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}

	switch {
	case errors.Is(err, services.ErrMessageRequired):
		return New400Error("Message is required")
	case errors.Is(err, services.ErrConversationNotFound):
		return New404Error("Conversation not found")
	case errors.Is(err, services.ErrUnknownModel):
		return NewUnknownModelError(modelFromError(err))
	case errors.Is(err, services.ErrProviderUnconfigured):
		return NewModelUnavailableError(modelFromError(err))
	case errors.Is(err, services.ErrProviderTimeout):
		return NewUpstreamTimeoutError(err)
	case errors.Is(err, services.ErrUserNotFound):
		return New404Error("User not found")
	case errors.Is(err, services.ErrEmailTaken):
		return New409Error("Email is already registered")
	case errors.Is(err, services.ErrUnknownPlan):
		return New400Error("Unknown plan")
	case errors.Is(err, services.ErrNoBillingCustomer):
		return New400Error("No billing account exists for this user")
	default:
		return New500Error(err)
	}
}

// modelFromError returns the requested model id, or "" when the error does not carry one.
func modelFromError(err error) string {
	var modelErr *services.ModelError
	if errors.As(err, &modelErr) {
		return modelErr.ID
	}
	return ""
}

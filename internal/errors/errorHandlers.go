package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeBadRequest          ErrorType = "BAD_REQUEST"
	ErrorTypeUnauthorized        ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden           ErrorType = "FORBIDDEN"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND"
	ErrorTypeConflict            ErrorType = "CONFLICT"
	ErrorTypeUnknownModel        ErrorType = "UNKNOWN_MODEL"
	ErrorTypeModelUnavailable    ErrorType = "MODEL_UNAVAILABLE"
	ErrorTypeUpstreamTimeout     ErrorType = "UPSTREAM_TIMEOUT"
	ErrorTypeInternalServerError ErrorType = "INTERNAL_SERVER_ERROR"
)

// CustomError represents a custom error with associated HTTP status code and type
type CustomError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Internal   error
}

// Error implements the error interface
func (e *CustomError) Error() string {
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Internal
}

// newError creates a new CustomError
func newError(errType ErrorType, message string, statusCode int, internal error) *CustomError {
	return &CustomError{
		Type:       errType,
		Message:    message,
		StatusCode: statusCode,
		Internal:   internal,
	}
}

// New400Error creates a new bad request error
func New400Error(message string) *CustomError {
	return newError(ErrorTypeBadRequest, message, http.StatusBadRequest, nil)
}

// New401Error creates a new unauthorized error
func New401Error(message string) *CustomError {
	if message == "" {
		message = "Unauthorized access"
	}
	return newError(ErrorTypeUnauthorized, message, http.StatusUnauthorized, nil)
}

// New403Error creates a new forbidden error
func New403Error() *CustomError {
	return newError(ErrorTypeForbidden, "Access forbidden", http.StatusForbidden, nil)
}

// New404Error creates a new not found error
func New404Error(message string) *CustomError {
	return newError(ErrorTypeNotFound, message, http.StatusNotFound, nil)
}

// New409Error creates a new conflict error
func New409Error(message string) *CustomError {
	return newError(ErrorTypeConflict, message, http.StatusConflict, nil)
}

// NewUnknownModelError is returned when the caller names a model that is not in the catalog.
func NewUnknownModelError(model string) *CustomError {
	message := "Unknown model"
	if model != "" {
		message += ": " + model
	}
	return newError(ErrorTypeUnknownModel, message, http.StatusBadRequest, nil)
}

// NewModelUnavailableError is returned when the model's provider has no credential configured.
func NewModelUnavailableError(model string) *CustomError {
	message := "Model is not available"
	if model != "" {
		message += ": " + model
	}
	return newError(ErrorTypeModelUnavailable, message, http.StatusUnprocessableEntity, nil)
}

// NewUpstreamTimeoutError hides the provider detail from the caller.
func NewUpstreamTimeoutError(internal error) *CustomError {
	return newError(ErrorTypeUpstreamTimeout, "The AI provider did not respond in time", http.StatusGatewayTimeout, internal)
}

// New500Error creates a new internal server error
func New500Error(internal error) *CustomError {
	return newError(ErrorTypeInternalServerError, "An unexpected error occurred", http.StatusInternalServerError, internal)
}

// HandleError renders err as {"error":{"type","message"}} and aborts the request
func HandleError(c *gin.Context, err error) {
	customErr := FromService(err)

	// Internal detail is only ever logged, never returned.
	if customErr.Internal != nil {
		logger := zerolog.Ctx(c.Request.Context())
		logger.Error().
			Err(customErr.Internal).
			Str("type", string(customErr.Type)).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	}

	c.AbortWithStatusJSON(customErr.StatusCode, gin.H{
		"error": gin.H{
			"type":    customErr.Type,
			"message": customErr.Message,
		},
	})
}

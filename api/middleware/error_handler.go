// api/middleware/error_handler.go
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/nimbusdb/nimbus-backend/internal/auth"
	"github.com/nimbusdb/nimbus-backend/internal/storage"
)

// ErrorHandler creates a Gin middleware for centralized error handling on
// the management surface. Handlers attach errors with c.Error; the last one
// is mapped to a status code here. The gateway endpoint writes its own
// responses because its wire contract fixes the envelope and the audit
// logger needs the final status.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		customLog.Printf("[ErrorHandler] Detected error: %v | Type: %T", err, err)

		var statusCode int
		var userMessage string

		switch {
		case errors.Is(err, storage.ErrDatabaseNotFound),
			errors.Is(err, storage.ErrTableNotFound),
			errors.Is(err, storage.ErrRowNotFound),
			errors.Is(err, storage.ErrAPIKeyNotFound):
			statusCode = http.StatusNotFound
			userMessage = err.Error()
		case errors.Is(err, storage.ErrDatabaseExists),
			errors.Is(err, storage.ErrTableExists),
			errors.Is(err, storage.ErrColumnExists):
			statusCode = http.StatusConflict
			userMessage = err.Error()
		case errors.Is(err, storage.ErrInvalidPayload),
			errors.Is(err, auth.ErrBadRequest):
			statusCode = http.StatusBadRequest
			userMessage = err.Error()
		case errors.Is(err, auth.ErrTokenMalformed),
			errors.Is(err, auth.ErrTokenInvalid),
			errors.Is(err, auth.ErrTokenClaimsInvalid),
			errors.Is(err, auth.ErrUnexpectedSigningMethod),
			errors.Is(err, auth.ErrUnauthorized):
			statusCode = http.StatusUnauthorized
			userMessage = "Invalid or malformed authentication token."
		case errors.Is(err, auth.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			userMessage = "Authentication token has expired."
		case errors.Is(err, auth.ErrForbidden):
			statusCode = http.StatusForbidden
			userMessage = err.Error()
		default:
			if validationErrs, ok := err.(validator.ValidationErrors); ok {
				statusCode = http.StatusBadRequest
				userMessage = "Validation failed. Please check your input."
				for _, fe := range validationErrs {
					customLog.Printf("Validation Error: Field %s failed on %s", fe.Field(), fe.Tag())
				}
				break
			}
			statusCode = http.StatusInternalServerError
			userMessage = "An unexpected internal server error occurred."
			customLog.Printf("Unhandled error type: %T, Error: %v", err, err)
		}

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(statusCode, gin.H{"error": userMessage})
		} else {
			customLog.Printf("[ErrorHandler] Warning: Response already written before handling error.")
		}
	}
}

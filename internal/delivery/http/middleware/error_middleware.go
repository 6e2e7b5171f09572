package middleware

import (
	"errors"
	"net/http"

	"consultancy-backend/internal/delivery/http/response"
	"consultancy-backend/pkg/apperror"
	"consultancy-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

const genericErrorMessage = "An unexpected error occurred. Please try again later."

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Check if there are errors appended to the context
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			// SECURITY: Never expose internal error details to clients.
			logger.Log.Error("Internal Server Error", "error", err, "path", c.FullPath())
			appErr = apperror.New(http.StatusInternalServerError, genericErrorMessage, err)
		} else if appErr.Code >= http.StatusInternalServerError {
			logger.Log.Error("Request failed", "kind", appErr.Kind, "error", appErr.Err, "path", c.FullPath())
		}

		if _, ok := c.Get(response.TRPCPathKey); ok {
			response.TRPCError(c, appErr.Code, appErr.StatusText(), appErr.Message, string(appErr.Kind), appErr.Details)
			return
		}
		response.Error(c, appErr.Code, appErr.Message, response.ErrorBody{
			Code:    appErr.StatusText(),
			Kind:    string(appErr.Kind),
			Details: appErr.Details,
		})
	}
}

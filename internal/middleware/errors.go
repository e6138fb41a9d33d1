package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spimexhq/oilpulse/internal/domain/dto"
	"github.com/spimexhq/oilpulse/internal/logger"
)

// ErrorHandler converts errors attached to the gin context during request
// handling into a standardized 500 response, if no response was written yet.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}

	err := c.Errors.Last().Err
	logger.L().Error().Err(err).Str("path", c.Request.URL.Path).Msg("unhandled request error")
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("internal error", err))
}

// AbortWithError stops request processing with a standardized error body.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		logger.L().Warn().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}

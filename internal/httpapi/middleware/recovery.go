package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/observability"
)

// Recovery converts panics into 500 responses with a structured log entry.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				observability.Logger().Error("panic recovered",
					"err", r,
					"path", c.Request.URL.Path,
					"request_id", c.GetString("request_id"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}

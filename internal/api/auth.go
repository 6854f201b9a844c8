package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cortexchat/internal/config"
)

// OperatorAuth guards routes with the static operator bearer token. The
// token is read from the current snapshot per request so a reload takes
// effect immediately. An empty configured token disables the check.
func OperatorAuth(cfg *config.Live) gin.HandlerFunc {
	return func(c *gin.Context) {
		want := cfg.Snapshot().BasicConfig.OperatorToken
		if want == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(want)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		c.Next()
	}
}

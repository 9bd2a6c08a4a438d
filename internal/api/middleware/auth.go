package middleware

import (
	"net/http"
	"strings"

	"rideshare-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// ContextUserID is the gin context key holding the authenticated user ID.
const ContextUserID = "user_id"

// TokenParser validates a bearer token and returns its user ID.
type TokenParser interface {
	ParseToken(token string) (uint, error)
}

type AuthMiddleware struct {
	tokens TokenParser
}

func NewAuthMiddleware(tokens TokenParser) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth accepts the token from the Authorization header, or from the
// token query parameter since browsers cannot set headers on a WebSocket upgrade.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "authorization token is required", "")
			return
		}

		userID, err := am.tokens.ParseToken(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid token", "")
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// UserID returns the authenticated user set by RequireAuth.
func UserID(c *gin.Context) uint {
	return c.GetUint(ContextUserID)
}

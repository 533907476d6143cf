package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ripplegate/ripplegate/internal/helpers"
)

const TokenCookie = "token"

// JWTAuthMiddleware resolves the caller from the "token" cookie or a Bearer
// Authorization header.
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			tokenString, _ = c.Cookie(TokenCookie)
		}
		if tokenString == "" {
			helpers.AbortWithError(c, http.StatusUnauthorized, "Authentication required.")
			return
		}

		claims, err := helpers.ParseToken(secret, tokenString)
		if err != nil {
			helpers.AbortWithError(c, http.StatusUnauthorized, "Invalid or expired token.")
			return
		}

		c.Set(helpers.ContextUserID, claims.UserID)
		c.Set(helpers.ContextEmail, claims.Email)
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

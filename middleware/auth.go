package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/mindease/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextEmailKey stores the account email inside Gin context.
	ContextEmailKey = "email"
	// ContextTokenKey keeps the raw token so sign-out can revoke it.
	ContextTokenKey = "token"
	// ContextTokenExpiryKey holds the token's expiry as time.Time.
	ContextTokenExpiryKey = "token_expires_at"

	// TokenCookieName is the httpOnly cookie set at sign-in.
	TokenCookieName = "token"
)

// AuthRequired ensures the request carries a valid JWT, either as a Bearer
// header or in the token cookie. The header wins when both are present.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, code, msg := extractToken(ctx)
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, code, msg)
			ctx.Abort()
			return
		}

		if utils.IsTokenBlacklisted(ctx.Request.Context(), tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextEmailKey, claims.Email)
		ctx.Set(ContextTokenKey, tokenString)
		if claims.ExpiresAt != nil {
			ctx.Set(ContextTokenExpiryKey, claims.ExpiresAt.Time)
		}
		ctx.Next()
	}
}

func extractToken(ctx *gin.Context) (string, int, string) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		if cookie, err := ctx.Cookie(TokenCookieName); err == nil && cookie != "" {
			return cookie, 0, ""
		}
		return "", 40101, "authentication required"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", 40102, "invalid authorization header format"
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", 40103, "empty bearer token"
	}
	return tokenString, 0, ""
}

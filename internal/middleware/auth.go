package middleware

import (
	"net/http"
	"strings"

	"storefront-api/internal/auth"
	"storefront-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys set by the middleware below and read by handlers.
const (
	CtxUserID    = "userID"
	CtxUserRole  = "userRole"
	CtxSessionID = "sessionID"
)

// SessionHeader carries the anonymous cart identity for guests.
const SessionHeader = "X-Session-ID"

func abortError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
	c.Abort()
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// RequireAuth rejects requests without a valid bearer token and puts
// the caller's user ID and role on the context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, "Authorization header required (Bearer token)")
			return
		}

		userID, role, err := auth.ValidateToken(tokenString)
		if err != nil {
			abortError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(CtxUserID, userID)
		c.Set(CtxUserRole, role)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(CtxUserRole)
		if !exists {
			abortError(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if role.(string) != models.RoleAdmin {
			abortError(c, http.StatusForbidden, "Admin role required")
			return
		}
		c.Next()
	}
}

// CartIdentity resolves who owns the cart for this request: a logged-in
// user (bearer token) or a guest (X-Session-ID header carrying a UUID).
// A request with neither identity cannot own a cart and is rejected.
func CartIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearerToken(c); ok {
			userID, role, err := auth.ValidateToken(tokenString)
			if err != nil {
				abortError(c, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			c.Set(CtxUserID, userID)
			c.Set(CtxUserRole, role)
			c.Next()
			return
		}

		sessionID := c.GetHeader(SessionHeader)
		if sessionID == "" {
			abortError(c, http.StatusUnauthorized, "Authentication or "+SessionHeader+" header required")
			return
		}
		if _, err := uuid.Parse(sessionID); err != nil {
			abortError(c, http.StatusUnauthorized, "Invalid "+SessionHeader+" header (must be a UUID)")
			return
		}

		c.Set(CtxSessionID, sessionID)
		c.Next()
	}
}

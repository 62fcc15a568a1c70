package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/truckmitra/truckmitra-backend/pkg/utils"
)

// AuthMiddleware validates the signed bearer token and injects the account
// identity into the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		// First try to get token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// If not found in header, try query parameter (for WebSocket)
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			utils.RespondError(c, 401, "Authorization header or token query parameter required", nil)
			c.Abort()
			return
		}

		token, err := utils.ValidateToken(tokenString)
		if err != nil || !token.Valid {
			utils.RespondError(c, 401, "Invalid or expired token", err)
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			utils.RespondError(c, 401, "Invalid token claims", nil)
			c.Abort()
			return
		}

		id, ok := claims["id"].(float64)
		if !ok {
			utils.RespondError(c, 401, "Invalid token claims", nil)
			c.Abort()
			return
		}
		userType, _ := claims["userType"].(string)
		contact, _ := claims["contact"].(string)

		c.Set("userId", uint(id))
		c.Set("userType", userType)
		c.Set("contact", contact)
		c.Next()
	}
}

// RequireUserType rejects requests from the wrong account type.
func RequireUserType(userType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("userType") != userType {
			utils.RespondError(c, 403, "Forbidden for this account type", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

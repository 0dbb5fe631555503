package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// JWTAuthMiddleware validates JWT tokens for user endpoints.
// Compatible with auth-service issued tokens, parsed via MapClaims.
func JWTAuthMiddleware(secretKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			c.Abort()
			return
		}

		// Prefer the uid claim, fall back to the standard sub claim
		if uid, ok := claims["uid"].(string); ok {
			c.Set("userID", uid)
		} else if sub, ok := claims["sub"].(string); ok {
			c.Set("userID", sub)
		}

		c.Next()
	}
}

// InternalAuthMiddleware validates internal service calls with a
// constant-time comparison
func InternalAuthMiddleware(internalSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.GetHeader("X-Internal-Secret")
		if subtle.ConstantTimeCompare([]byte(secret), []byte(internalSecret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized internal access"})
			c.Abort()
			return
		}
		c.Next()
	}
}

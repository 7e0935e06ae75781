package middleware

import (
	"net/http"
	"strings"

	"syntrad-backend/utils"

	"github.com/gin-gonic/gin"
)

// bearerClaims validates the bearer token of the request. On failure the
// returned problem is the message to show the client.
func bearerClaims(c *gin.Context) (claims *utils.Claims, token, problem string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, "", "Authorization header required"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, "", "Invalid authorization header format"
	}

	claims, err := utils.ValidateToken(parts[1])
	if err != nil {
		return nil, "", "Invalid or expired token"
	}
	return claims, parts[1], ""
}

func setIdentity(c *gin.Context, claims *utils.Claims, token string) {
	c.Set("claims", claims)
	c.Set("user_id", claims.UserID)
	c.Set("user_email", claims.Email)
	c.Set("user_role", claims.Role)
	c.Set("token", token)
}

// AuthMiddleware accepts bearer tokens issued by the external API and keeps
// the raw token so admin calls can be forwarded under the caller's identity.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, token, problem := bearerClaims(c)
		if problem != "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": problem})
			c.Abort()
			return
		}
		setIdentity(c, claims, token)
		c.Next()
	}
}

// OptionalAuth sets the caller's identity when a valid token is sent and
// lets guests through otherwise. A stale token is treated as a guest.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, token, problem := bearerClaims(c); problem == "" {
			setIdentity(c, claims, token)
		}
		c.Next()
	}
}

func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, _ := c.Get("claims")
		claims, ok := value.(*utils.Claims)
		if !ok || !claims.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

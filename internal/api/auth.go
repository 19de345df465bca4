package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/diegohenriquecode/employees-service-sub002/internal/models"
)

const userContextKey = "appUser"

// Claims are the JWT claims the application backend issues for its users.
type Claims struct {
	Name    string `json:"name"`
	Account string `json:"account"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer token and resolves the AppUser on
// whose behalf tasks are created.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.Subject == "" || claims.Account == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token missing subject or account"})
			return
		}

		c.Set(userContextKey, models.AppUser{
			ID:      claims.Subject,
			Name:    claims.Name,
			Account: claims.Account,
		})
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by AuthMiddleware.
func CurrentUser(c *gin.Context) models.AppUser {
	if v, ok := c.Get(userContextKey); ok {
		if user, ok := v.(models.AppUser); ok {
			return user
		}
	}
	return models.AppUser{}
}

package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopmate/backend/internal/auth"
	"github.com/shopmate/backend/internal/models"
	"github.com/shopmate/backend/internal/store"
)

const userContextKey = "user"

// Authenticate resolves the JWT from the session cookie or the
// Authorization header and loads the current user onto the request context.
func Authenticate(db *sql.DB, jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := c.Cookie("token")
		if err != nil || tokenStr == "" {
			header := c.GetHeader("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				tokenStr = strings.TrimPrefix(header, "Bearer ")
			}
		}
		if tokenStr == "" {
			respondError(c, http.StatusUnauthorized, "please login to access this resource")
			return
		}

		claims, err := auth.ParseToken(jwtSecret, tokenStr)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		user, err := store.GetUser(c.Request.Context(), db, claims.UserID)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireRoles restricts a route to the given roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			respondError(c, http.StatusUnauthorized, "please login to access this resource")
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		respondError(c, http.StatusForbidden, "you are not allowed to access this resource")
	}
}

func currentUser(c *gin.Context) *models.User {
	value, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

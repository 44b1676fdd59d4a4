package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/moviegraph/pkg/models"
)

const (
	ContextUserID   = "user_id"
	ContextUserTier = "user_tier"
)

type TokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

// Auth requires a "Bearer <jwt>" Authorization header and stores the
// caller's user id and tier on the context.
func Auth(validator TokenValidator, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "MISSING_AUTHORIZATION", "Authorization header is required")
			return
		}

		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			abortWithError(c, http.StatusUnauthorized, "INVALID_AUTHORIZATION_FORMAT",
				"Authorization header must be in format 'Bearer <token>'")
			return
		}

		claims, err := validator.ValidateToken(strings.TrimSpace(tokenString))
		if err != nil {
			logger.WithError(err).WithField("path", c.Request.URL.Path).Warn("Invalid JWT token")
			abortWithError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserTier, claims.UserTier)
		c.Next()
	}
}

// GetUserFromContext returns the authenticated user id and tier. ok is false
// when the route is not behind Auth.
func GetUserFromContext(c *gin.Context) (userID, userTier string, ok bool) {
	userID = c.GetString(ContextUserID)
	userTier = c.GetString(ContextUserTier)
	if userTier == "" {
		userTier = "free"
	}
	return userID, userTier, userID != ""
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/avdonin/ridepool/internal/auth"
	"github.com/avdonin/ridepool/internal/domain"
	"github.com/gin-gonic/gin"
)

const ctxUserID = "user_id"

// AuthRequired parses the bearer token and stores the caller's user id in the
// request context.
func AuthRequired(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		userID, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ctxUserID, userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	id, _ := c.Get(ctxUserID)
	userID, _ := id.(int64)
	return userID
}

// writeError maps domain sentinels onto HTTP statuses. Unknown errors become
// 500 without leaking internals.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrDuplicateBooking),
		errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

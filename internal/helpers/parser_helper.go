package helpers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
)

// ParseUUIDParam reads a path parameter as a UUID and answers 400 when it
// is malformed.
func ParseUUIDParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid "+label+".")
		return uuid.Nil, false
	}
	return id, true
}

// CurrentUserID returns the identity set by the auth middleware.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return uuid.Nil, false
	}
	return id, true
}

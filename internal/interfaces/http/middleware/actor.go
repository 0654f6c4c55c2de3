package middleware

import (
	"net/http"
	"strings"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/infrastructure/logger"
	"github.com/agrolink/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Actor identity headers set by the gateway in front of the API
const (
	HeaderUserID    = "X-User-ID"
	HeaderActorRole = "X-Actor-Role"
)

// Context keys for the resolved actor
const (
	ActorKey       = "actor"
	ActorUserIDKey = "actor_user_id"
	ActorRoleKey   = "actor_role"
)

const actorHelp = "Send X-User-ID with a UUID and X-Actor-Role with BUYER or SUPPLIER"

// ActorIdentity resolves the acting party from the identity headers.
// Requests without headers pass through anonymously; malformed headers are rejected.
func ActorIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		rawRole := strings.TrimSpace(c.GetHeader(HeaderActorRole))
		if rawID == "" && rawRole == "" {
			c.Next()
			return
		}

		actor, err := parseActor(rawID, rawRole)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
				dto.ErrCodeInvalidInput, err.Error(), dto.WithRequestID(RequestIDFrom(c)), dto.WithHelp(actorHelp)))
			return
		}

		c.Set(ActorKey, actor)
		c.Set(ActorUserIDKey, rawID)
		c.Set(ActorRoleKey, string(actor.Role()))
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), rawID, string(actor.Role())))
		c.Next()
	}
}

// RequireActor rejects requests that carry no actor identity
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetActor(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				dto.ErrCodeUnauthorized, "actor identity required", dto.WithRequestID(RequestIDFrom(c)), dto.WithHelp(actorHelp)))
			return
		}
		c.Next()
	}
}

// GetActor returns the actor resolved by ActorIdentity
func GetActor(c *gin.Context) (ordering.Actor, bool) {
	v, exists := c.Get(ActorKey)
	if !exists {
		return nil, false
	}
	actor, ok := v.(ordering.Actor)
	return actor, ok
}

// GetActorUserID returns the acting user ID, or an empty string for anonymous requests
func GetActorUserID(c *gin.Context) string {
	return c.GetString(ActorUserIDKey)
}

// GetActorRole returns the acting role, or an empty string for anonymous requests
func GetActorRole(c *gin.Context) string {
	return c.GetString(ActorRoleKey)
}

func parseActor(rawID, rawRole string) (ordering.Actor, error) {
	userID, err := uuid.Parse(rawID)
	if err != nil || userID == uuid.Nil {
		return nil, errInvalidActorHeader(HeaderUserID)
	}

	role := ordering.ActorRole(strings.ToUpper(rawRole))
	// SYSTEM is reserved for the deadline sweep
	if role != ordering.ActorRoleBuyer && role != ordering.ActorRoleSupplier {
		return nil, errInvalidActorHeader(HeaderActorRole)
	}

	return ordering.NewActor(role, userID)
}

type actorHeaderError string

func (e actorHeaderError) Error() string {
	return "invalid " + string(e) + " header"
}

func errInvalidActorHeader(header string) error {
	return actorHeaderError(header)
}

package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// RoleAdmin may move money on behalf of others
	RoleAdmin = "admin"

	actorKey = "actor"
)

// Claims are issued by the identity service; the subject is the account id
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller of a request
type Actor struct {
	ID    int64
	Roles []string
}

// HasRole reports whether the actor was granted role
func (a Actor) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

// IsAdmin reports whether the actor has the admin role
func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

var errMalformedSubject = errors.New("token subject is not an account id")

// ParseToken validates an HS256 token and returns the actor it names
func ParseToken(tokenString string, secret []byte) (Actor, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Actor{}, err
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Actor{}, errMalformedSubject
	}
	return Actor{ID: id, Roles: claims.Roles}, nil
}

// Auth rejects requests without a valid bearer token
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token")
			return
		}

		actor, err := ParseToken(token, key)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid bearer token")
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireRole rejects authenticated actors without role
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok || !actor.HasRole(role) {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Requires role "+role)
			return
		}
		c.Next()
	}
}

// GetActor returns the actor set by Auth
func GetActor(c *gin.Context) (Actor, bool) {
	v, exists := c.Get(actorKey)
	if !exists {
		return Actor{}, false
	}
	actor, ok := v.(Actor)
	return actor, ok
}

func abortWithError(c *gin.Context, status int, code, message string) {
	response := gin.H{"error": gin.H{"code": code, "message": message}}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(status, response)
}

package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sudosos-ledger/internal/api_gateway/middleware"
)

// pathID parses a positive integer path parameter, responding 400 otherwise
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// queryIDs parses a comma separated id list such as ?ids=1,2,3
func queryIDs(c *gin.Context, name string) ([]int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			RespondBadRequest(c, "Invalid "+name)
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func pagination(c *gin.Context) (PaginationParams, bool) {
	var p PaginationParams
	if err := c.ShouldBindQuery(&p); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return p, false
	}
	return p, true
}

// actor returns the authenticated caller; routes without Auth respond 401
func actor(c *gin.Context) (middleware.Actor, bool) {
	a, ok := middleware.GetActor(c)
	if !ok {
		RespondUnauthorized(c, "")
	}
	return a, ok
}

// allowAccount lets admins and the account owner through
func allowAccount(c *gin.Context, accountID int64) (middleware.Actor, bool) {
	a, ok := actor(c)
	if !ok {
		return a, false
	}
	if !a.IsAdmin() && a.ID != accountID {
		RespondForbidden(c, "")
		return a, false
	}
	return a, true
}

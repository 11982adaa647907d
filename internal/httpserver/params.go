package httpserver

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
)

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// queryInt returns def when the parameter is absent.
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, name+" must be an integer")
		return 0, false
	}
	return v, true
}

func identity(c *gin.Context) auth.Identity {
	id, _ := auth.FromContext(c)
	return id
}

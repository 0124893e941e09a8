// Package files serves the sandboxed file explorer endpoint.
package files

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/onlymatt/gateway/internal/explorer"
	"github.com/onlymatt/gateway/internal/httpapi"
)

// MountRoutes mounts GET /ai/files/list behind the admin key guard.
func MountRoutes(r *gin.Engine, exp *explorer.Explorer, auth gin.HandlerFunc) {
	r.GET("/ai/files/list", auth, func(c *gin.Context) { listFiles(c, exp) })
}

func listFiles(c *gin.Context, exp *explorer.Explorer) {
	if exp == nil {
		httpapi.Fail(c, 400, httpapi.CodeValidation, "file explorer is not configured")
		return
	}
	opts := explorer.ListOptions{Recursive: true}
	if raw := c.Query("recursive"); raw != "" {
		recursive, err := strconv.ParseBool(raw)
		if err != nil {
			httpapi.Fail(c, 400, httpapi.CodeValidation, "recursive must be a boolean")
			return
		}
		opts.Recursive = recursive
	}
	var err error
	if opts.Limit, err = intQuery(c, "limit"); err != nil {
		httpapi.Fail(c, 400, httpapi.CodeValidation, "limit must be a non-negative integer")
		return
	}
	if opts.Offset, err = intQuery(c, "offset"); err != nil {
		httpapi.Fail(c, 400, httpapi.CodeValidation, "offset must be a non-negative integer")
		return
	}

	listing, err := exp.List(c.Request.Context(), c.Query("path"), opts)
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	httpapi.OK(c, gin.H{
		"path":      listing.Path,
		"files":     listing.Entries,
		"total":     listing.Total,
		"truncated": listing.Truncated,
	})
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

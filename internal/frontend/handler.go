package frontend

import (
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	apperrors "github.com/ZanzyTHEbar/survey-o-meter/internal/errors"
	"github.com/gin-gonic/gin"
)

// apiPrefix paths never fall back to the UI.
const apiPrefix = "/api/"

// NewHandler serves the UI for unmatched routes: assets with long-lived
// caching, any other GET with index.html. Unknown API paths get a JSON 404.
func NewHandler(dist fs.FS) (gin.HandlerFunc, error) {
	index, err := fs.ReadFile(dist, "index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to read index.html: %w", err)
	}
	fileServer := http.FileServer(http.FS(dist))

	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if strings.HasPrefix(path, apiPrefix) || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			_ = c.Error(apperrors.NewNotFoundError("route", c.Request.Method+" "+path))
			return
		}

		if strings.HasPrefix(path, "/assets/") {
			if _, err := fs.Stat(dist, strings.TrimPrefix(path, "/")); err != nil {
				_ = c.Error(apperrors.NewNotFoundError("asset", path))
				return
			}
			c.Header("Cache-Control", "public, max-age=3600")
			fileServer.ServeHTTP(c.Writer, c.Request)
			return
		}

		c.Header("Cache-Control", "no-cache")
		c.Data(http.StatusOK, "text/html; charset=utf-8", index)
	}, nil
}

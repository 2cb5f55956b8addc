package cache

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/monitoring"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Expiry(t *testing.T) {
	c := NewCache(time.Minute)
	defer c.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", "application/json", []byte(`{}`))
	item, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "application/json", item.ContentType)

	now = now.Add(2 * time.Minute)
	stats := c.Stats()
	assert.Equal(t, 1, stats["expired_items"])

	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestCache_Sweep(t *testing.T) {
	c := NewCache(time.Minute)
	defer c.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("old", "", nil)
	now = now.Add(30 * time.Second)
	c.Set("new", "", nil)
	now = now.Add(45 * time.Second)

	c.sweep()
	assert.Equal(t, 1, c.Size())
	_, ok := c.Get("new")
	assert.True(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Size())
	c.Close()
	c.Close()
}

func TestCache_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewCache(time.Minute)
	defer c.Close()

	metrics := monitoring.NewMetrics()
	logger := monitoring.NewLoggerTo(io.Discard, "error")

	calls := 0
	router := gin.New()
	router.Use(c.Middleware(metrics, logger))
	router.GET("/api/questions", func(ctx *gin.Context) {
		calls++
		ctx.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	router.GET("/api/models/:name", func(ctx *gin.Context) {
		calls++
		ctx.JSON(http.StatusNotFound, gin.H{"error": "missing"})
	})

	tests := []struct {
		name   string
		path   string
		status int
		cache  string
		body   string
		calls  int
	}{
		{name: "first request misses", path: "/api/questions", status: http.StatusOK, cache: "MISS", body: `{"calls":1}`, calls: 1},
		{name: "second request hits", path: "/api/questions", status: http.StatusOK, cache: "HIT", body: `{"calls":1}`, calls: 1},
		{name: "query string is part of the key", path: "/api/questions?x=1", status: http.StatusOK, cache: "MISS", body: `{"calls":2}`, calls: 2},
		{name: "errors are not cached", path: "/api/models/a.gob", status: http.StatusNotFound, cache: "MISS", calls: 3},
		{name: "errors still miss", path: "/api/models/a.gob", status: http.StatusNotFound, cache: "MISS", calls: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.cache, w.Header().Get("X-Cache"))
			if tt.body != "" {
				assert.JSONEq(t, tt.body, w.Body.String())
				assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
			}
			assert.Equal(t, tt.calls, calls)
		})
	}

	assert.Equal(t, 2, c.Size())
}

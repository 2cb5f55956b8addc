package frontend

import (
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/ZanzyTHEbar/survey-o-meter/internal/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dist, err := GetDistFS()
	require.NoError(t, err)
	handler, err := NewHandler(dist)
	require.NoError(t, err)

	r := gin.New()
	r.Use(apperrors.ErrorHandler())
	r.NoRoute(handler)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
		contains       string
	}{
		{name: "root serves index", method: http.MethodGet, path: "/", expectedStatus: http.StatusOK, contains: "upload-form"},
		{name: "client route serves index", method: http.MethodGet, path: "/modelos", expectedStatus: http.StatusOK, contains: "upload-form"},
		{name: "script asset", method: http.MethodGet, path: "/assets/app.js", expectedStatus: http.StatusOK, contains: "/api/datasets"},
		{name: "missing asset", method: http.MethodGet, path: "/assets/nope.js", expectedStatus: http.StatusNotFound},
		{name: "unknown api route", method: http.MethodGet, path: "/api/nope", expectedStatus: http.StatusNotFound, contains: "not_found"},
		{name: "non-GET", method: http.MethodPost, path: "/", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.contains != "" {
				assert.Contains(t, w.Body.String(), tt.contains)
			}
		})
	}
}

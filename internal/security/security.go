package security

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/ZanzyTHEbar/survey-o-meter/internal/errors"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxUploadBytes    int64    `json:"max_upload_bytes"`
	MaxFilenameLength int      `json:"max_filename_length"`
	MaxQuestionIDs    int      `json:"max_question_ids"`
	AllowedOrigins    []string `json:"allowed_origins"`
	EnableHSTS        bool     `json:"enable_hsts"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxUploadBytes:    20 << 20,
		MaxFilenameLength: 255,
		MaxQuestionIDs:    200,
	}
}

// SecurityMiddleware provides request hardening for the API
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{config: config}
}

var questionIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateFilename rejects upload names that could escape a directory or
// carry control characters.
func (sm *SecurityMiddleware) ValidateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("file name is empty")
	}
	if len(name) > sm.config.MaxFilenameLength {
		return fmt.Errorf("file name exceeds maximum length of %d characters", sm.config.MaxFilenameLength)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("file name contains invalid UTF-8 encoding")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return fmt.Errorf("file name must not contain path elements")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("file name contains invalid characters")
		}
	}
	return nil
}

// SanitizeFilename reduces a client-supplied name to a bare file name
func (sm *SecurityMiddleware) SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == utf8.RuneError {
			return -1
		}
		return r
	}, name)

	if name == "." || name == "/" {
		return ""
	}
	return name
}

// ParseQuestionIDs accepts a JSON array of ids or a comma separated list.
// Ids are lowercased and trimmed; blanks are dropped. An empty input yields
// nil, meaning every question found in the data.
func (sm *SecurityMiddleware) ParseQuestionIDs(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var parts []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &parts); err != nil {
			return nil, fmt.Errorf("questions must be a JSON array of strings: %w", err)
		}
	} else {
		parts = strings.Split(raw, ",")
	}

	if len(parts) > sm.config.MaxQuestionIDs {
		return nil, fmt.Errorf("too many questions: %d (max %d)", len(parts), sm.config.MaxQuestionIDs)
	}

	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		id := strings.ToLower(strings.TrimSpace(p))
		if id == "" {
			continue
		}
		if !questionIDPattern.MatchString(id) {
			return nil, fmt.Errorf("invalid question id %q", id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SecurityHeaders adds security headers to responses
func (sm *SecurityMiddleware) SecurityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

	// The swagger UI ships inline scripts and styles. The web UI loads its
	// own assets and calls the API on the same origin.
	path := c.Request.URL.Path
	switch {
	case strings.HasPrefix(path, "/swagger/"):
	case strings.HasPrefix(path, "/api/"), path == "/health", path == "/metrics":
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	default:
		c.Header("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'")
	}

	if sm.config.EnableHSTS && c.Request.TLS != nil {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	c.Next()
}

// ValidateContentType rejects request bodies the API cannot parse
func (sm *SecurityMiddleware) ValidateContentType(c *gin.Context) {
	if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodOptions || c.Request.ContentLength == 0 {
		c.Next()
		return
	}

	contentType := strings.ToLower(c.GetHeader("Content-Type"))
	allowedTypes := []string{
		"application/json",
		"multipart/form-data",
	}

	for _, allowed := range allowedTypes {
		if strings.HasPrefix(contentType, allowed) {
			c.Next()
			return
		}
	}

	appErr := apperrors.NewValidationError("Unsupported content type", map[string]string{"content_type": contentType})
	appErr.HTTPStatus = http.StatusUnsupportedMediaType
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
}

// LimitUploadSize caps request bodies at the configured upload size
func (sm *SecurityMiddleware) LimitUploadSize(c *gin.Context) {
	limit := sm.config.MaxUploadBytes
	if c.Request.ContentLength > limit {
		appErr := apperrors.NewValidationError("Upload too large", map[string]string{"limit_bytes": fmt.Sprint(limit)})
		appErr.HTTPStatus = http.StatusRequestEntityTooLarge
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	c.Next()
}

// CORSConfig allows every origin unless AllowedOrigins is set
func (sm *SecurityMiddleware) CORSConfig() gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}

	if len(sm.config.AllowedOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = sm.config.AllowedOrigins
	}

	return cors.New(config)
}

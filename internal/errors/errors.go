package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/artifacts"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/catalog"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/dataset"
	"github.com/gin-gonic/gin"
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryInputFormat   ErrorCategory = "input_format"
	CategorySelection     ErrorCategory = "selection"
	CategoryNoFeatures    ErrorCategory = "no_features"
	CategoryClustering    ErrorCategory = "clustering"
	CategoryNotFound      ErrorCategory = "not_found"
	CategoryRateLimit     ErrorCategory = "rate_limit"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryProcessing    ErrorCategory = "processing"
	CategoryInternal      ErrorCategory = "internal"
	CategoryConfiguration ErrorCategory = "configuration"
)

// AppError wraps an errbuilder error with HTTP context. Fields mirrors the
// errbuilder detail map as plain strings for the response body.
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory
	HTTPStatus int
	Timestamp  time.Time
	Fields     map[string]string
	Violations []catalog.Violation
	StackTrace string
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code(), e.ErrBuilder.Msg)
}

// Code is the stable machine-readable error code
func (e *AppError) Code() string {
	switch e.ErrBuilder.ErrCode() {
	case errbuilder.CodeInvalidArgument:
		return "VALIDATION_ERROR"
	case errbuilder.CodeNotFound:
		return "NOT_FOUND"
	case errbuilder.CodeDeadlineExceeded:
		return "TIMEOUT_ERROR"
	case errbuilder.CodeResourceExhausted:
		return "RATE_LIMIT_EXCEEDED"
	case errbuilder.CodeFailedPrecondition:
		if e.Category == CategoryConfiguration {
			return "CONFIGURATION_ERROR"
		}
		return "UNPROCESSABLE"
	case errbuilder.CodeInternal:
		if e.Category == CategoryProcessing {
			return "PROCESSING_ERROR"
		}
		return "INTERNAL_ERROR"
	}
	return "UNKNOWN_ERROR"
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

type errorBody struct {
	Code       string              `json:"code"`
	Category   ErrorCategory       `json:"category"`
	Message    string              `json:"message"`
	Details    map[string]string   `json:"details,omitempty"`
	Violations []catalog.Violation `json:"violations,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
	StackTrace string              `json:"stack_trace,omitempty"`
}

// MarshalJSON renders the response body
func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorBody{
		Code:       e.Code(),
		Category:   e.Category,
		Message:    e.ErrBuilder.Msg,
		Details:    e.Fields,
		Violations: e.Violations,
		Timestamp:  e.Timestamp,
		StackTrace: e.StackTrace,
	})
}

// NewAppError creates an AppError from errbuilder with additional context
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

// withFields attaches fields both as errbuilder details and as body details.
func withFields(builder *errbuilder.ErrBuilder, fields map[string]string) *errbuilder.ErrBuilder {
	if len(fields) == 0 {
		return builder
	}
	errorMap := errbuilder.ErrorMap{}
	for key, msg := range fields {
		errorMap.Set(key, errors.New(msg))
	}
	return builder.WithDetails(errbuilder.NewErrDetails(errorMap))
}

func newWithFields(builder *errbuilder.ErrBuilder, cause error, fields map[string]string, category ErrorCategory, status int) *AppError {
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	appErr := NewAppError(withFields(builder, fields), category, status)
	appErr.Fields = fields
	return appErr
}

// NewValidationError creates a request validation error
func NewValidationError(message string, fields map[string]string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	return newWithFields(builder, nil, fields, CategoryValidation, http.StatusBadRequest)
}

// NewInputFormatError rejects an upload before any pipeline work
func NewInputFormatError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	return newWithFields(builder, cause, nil, CategoryInputFormat, http.StatusBadRequest)
}

// NewSelectionError reports every category a question selection leaves
// short, keyed by category name.
func NewSelectionError(violations []catalog.Violation) *AppError {
	fields := make(map[string]string, len(violations))
	for _, v := range violations {
		fields[v.Category] = fmt.Sprintf("requires %d questions, selected %d", v.Required, v.Selected)
	}

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("Question selection does not meet category minimums")

	appErr := newWithFields(builder, nil, fields, CategorySelection, http.StatusBadRequest)
	appErr.Violations = violations
	return appErr
}

// NewNotFoundError creates a 404 for a named resource
func NewNotFoundError(resource, name string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("%s not found", resource))

	return newWithFields(builder, nil, map[string]string{resource: name}, CategoryNotFound, http.StatusNotFound)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeDeadlineExceeded).
		WithMsg(message)

	return newWithFields(builder, cause, nil, CategoryTimeout, http.StatusGatewayTimeout)
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded")

	return newWithFields(builder, nil, map[string]string{"retry_after": retryAfter}, CategoryRateLimit, http.StatusTooManyRequests)
}

// NewProcessingError surfaces a failed pipeline run with its original message
func NewProcessingError(cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("Processing failed: " + cause.Error())

	return newWithFields(builder, cause, nil, CategoryProcessing, http.StatusInternalServerError)
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("Internal server error")

	appErr := newWithFields(builder, cause, map[string]string{"internal_details": message}, CategoryInternal, http.StatusInternalServerError)

	// Capture stack trace in development/debug mode
	if gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode {
		appErr.StackTrace = captureStackTrace()
	}
	return appErr
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("Configuration error")

	return newWithFields(builder, cause, map[string]string{"config_details": message}, CategoryConfiguration, http.StatusInternalServerError)
}

// pipelineError builds an AppError whose message is the cause itself.
func pipelineError(builder *errbuilder.ErrBuilder, err error, category ErrorCategory, status int) *AppError {
	return newWithFields(builder.WithMsg(err.Error()), err, nil, category, status)
}

// FromPipeline maps analysis, dataset and artifact errors onto AppErrors.
func FromPipeline(err error) *AppError {
	if err == nil {
		return nil
	}

	var (
		appErr    *AppError
		selErr    *analysis.SelectionError
		answerErr *analysis.AnswerError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, dataset.ErrUnsupportedFormat):
		return NewInputFormatError(err.Error(), err)
	case errors.As(err, &selErr):
		return NewSelectionError(selErr.Violations)
	case errors.Is(err, analysis.ErrEmptySelection):
		return pipelineError(errbuilder.New().WithCode(errbuilder.CodeInvalidArgument), err, CategorySelection, http.StatusBadRequest)
	case errors.As(err, &answerErr):
		fields := make(map[string]string)
		for _, id := range answerErr.Missing {
			fields[id] = "missing answer"
		}
		for _, id := range answerErr.Unmapped {
			fields[id] = "unrecognized answer"
		}
		for _, id := range answerErr.Duplicate {
			fields[id] = "answered more than once"
		}
		return NewValidationError("Incomplete answers", fields)
	case errors.Is(err, analysis.ErrNoFeatureColumns):
		return pipelineError(errbuilder.New().WithCode(errbuilder.CodeFailedPrecondition), err, CategoryNoFeatures, http.StatusUnprocessableEntity)
	case errors.Is(err, analysis.ErrClusteringUnderflow),
		errors.Is(err, analysis.ErrDegenerateClusters),
		errors.Is(err, analysis.ErrUnsupportedK):
		return pipelineError(errbuilder.New().WithCode(errbuilder.CodeFailedPrecondition), err, CategoryClustering, http.StatusUnprocessableEntity)
	case errors.Is(err, artifacts.ErrNotFound):
		return pipelineError(errbuilder.New().WithCode(errbuilder.CodeNotFound), err, CategoryNotFound, http.StatusNotFound)
	case errors.Is(err, artifacts.ErrInvalidName):
		return NewValidationError(err.Error(), nil)
	case errors.Is(err, analysis.ErrExport):
		return NewInternalError(analysis.ErrExport.Error(), err)
	}
	return NewProcessingError(err)
}

// captureStackTrace captures a stack trace for debugging
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// ErrorHandler is a Gin middleware that provides centralized error handling
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			appErr := ToAppError(c.Errors.Last().Err)
			LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
		}
	}
}

// RecoveryHandler provides panic recovery with structured error responses
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err interface{}) {
		appErr := NewInternalError(
			fmt.Sprintf("Panic recovered: %v", err),
			fmt.Errorf("%v", err),
		)
		appErr.StackTrace = captureStackTrace()

		LogError(c, appErr)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
	})
}

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	if errors.Is(err, context.Canceled) {
		return NewTimeoutError("Request cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("Request deadline exceeded", err)
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return NewValidationError("Upload too large", map[string]string{"limit_bytes": fmt.Sprint(maxBytes.Limit)})
	}

	if strings.Contains(err.Error(), "timeout") {
		return NewTimeoutError("Request timeout", err)
	}

	return FromPipeline(err)
}

// LogError logs an error with appropriate level and context
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.Code(),
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetHeader("X-Request-ID"),
	)

	errorMsg := err.ErrBuilder.Msg
	switch err.Category {
	case CategoryValidation, CategoryInputFormat, CategorySelection, CategoryNotFound, CategoryRateLimit:
		if len(err.Fields) > 0 {
			logEntry.Warn(errorMsg, "details", err.Fields)
		} else {
			logEntry.Warn(errorMsg)
		}
	case CategoryNoFeatures, CategoryClustering, CategoryTimeout:
		logEntry.Info(errorMsg, "cause", err.ErrBuilder.Unwrap())
	default:
		if cause := err.ErrBuilder.Unwrap(); cause != nil {
			logEntry.Error(errorMsg, "cause", cause)
		} else {
			logEntry.Error(errorMsg)
		}
	}

	if err.StackTrace != "" && (gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode) {
		logEntry.Debug("stack_trace", "trace", err.StackTrace)
	}
}

// WrapError wraps an error with additional context
func WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(message, args...), err)
}

// SafeClose safely closes a resource and logs any errors
func SafeClose(closer interface{ Close() error }, resourceName string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		slog.Warn("Failed to close resource",
			"resource", resourceName,
			"error", err)
	}
}

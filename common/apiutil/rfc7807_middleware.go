package apiutil

import (
	"net/http"

	"github.com/Aidin1998/visitante_sonoro/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RFC7807ErrorMiddleware renders the last error pushed with c.Error as an
// RFC 7807 problem document. Unclassified errors are logged and reported as
// a generic 500.
func RFC7807ErrorMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		problemDetails := ToProblemDetails(err, c.Request.URL.Path)
		if problemDetails.Status >= http.StatusInternalServerError {
			logger.Error("Request failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Error(err))
		}

		RFC7807ErrorResponse(c, problemDetails)
		c.Abort()
	}
}

// ToProblemDetails classifies err
func ToProblemDetails(err error, instance string) *errors.ProblemDetails {
	var (
		problem *errors.ProblemDetails
		typed   *errors.Error
		status  errors.StatusCode
	)
	switch {
	case errors.As(err, &problem):
		return problem
	case errors.As(err, &typed):
		return typed.ToProblemDetails(instance)
	case errors.As(err, &status):
		return statusCodeToProblemDetails(int(status), instance)
	default:
		return errors.NewInternalError("An unexpected error occurred", instance)
	}
}

func statusCodeToProblemDetails(statusCode int, instance string) *errors.ProblemDetails {
	switch statusCode {
	case http.StatusBadRequest:
		return errors.NewValidationError("Invalid request parameters", instance)
	case http.StatusUnauthorized:
		return errors.NewUnauthorizedError("Authentication required", instance)
	case http.StatusNotFound:
		return errors.NewNotFoundError("Resource not found", instance)
	default:
		return errors.NewInternalError("Internal server error", instance)
	}
}

// GetTraceID extracts trace ID from context
func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get("trace_id"); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}

	return c.GetHeader("X-Trace-ID")
}

// RFC7807ErrorResponse writes an RFC 7807 compliant error response
func RFC7807ErrorResponse(c *gin.Context, problemDetails *errors.ProblemDetails) {
	if traceID := GetTraceID(c); traceID != "" {
		problemDetails.WithTraceID(traceID)
	}

	c.Header("Content-Type", "application/problem+json")
	c.JSON(problemDetails.Status, problemDetails)
}

package responses

import (
	"net/http"
	"time"

	"github.com/Aidin1998/visitante_sonoro/common/apiutil"
	"github.com/gin-gonic/gin"
)

// StandardResponse represents a standard API response format
type StandardResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}, message ...string) {
	msg := "Operation successful"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}

	c.JSON(http.StatusOK, StandardResponse{
		Success:   true,
		Data:      data,
		Message:   msg,
		Timestamp: time.Now().UTC(),
		TraceID:   apiutil.GetTraceID(c),
	})
}

// Message sends a bare {"message": ...} body, the shape resource clients
// expect for actions without a payload
func Message(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

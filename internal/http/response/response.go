package response

import (
	"github.com/gin-gonic/gin"
)

// ErrorBody failure envelope
type ErrorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Success writes 200 with {"success": true} merged with fields
func Success(c *gin.Context, fields gin.H) {
	body := gin.H{}
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	c.JSON(CodeOK, body)
}

// SuccessWithMsg writes 200 with a message alongside fields
func SuccessWithMsg(c *gin.Context, msg string, fields gin.H) {
	body := gin.H{"message": msg}
	for k, v := range fields {
		body[k] = v
	}
	Success(c, body)
}

// Error writes a failure body with the HTTP status code
func Error(c *gin.Context, code int, tag, msg string) {
	if tag == "" {
		tag = TagForCode(code)
	}
	c.JSON(code, ErrorBody{
		Success:   false,
		Error:     tag,
		Message:   msg,
		RequestID: requestID(c),
	})
}

// NotFound 404 response
func NotFound(c *gin.Context, msg string) {
	Error(c, CodeNotFound, TagNotFound, msg)
}

// BadRequest 400 response
func BadRequest(c *gin.Context, msg string) {
	Error(c, CodeBadRequest, TagValidation, msg)
}

func requestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if value, ok := c.Get("request_id"); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}

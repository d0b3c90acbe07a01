package shared

import (
	"github.com/tabiguide-next/internal/http/response"
	"github.com/tabiguide-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog returns a logger carrying the request_id of c
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError writes a failure body and logs err when one is given.
// err never reaches the client.
func RespondError(c *gin.Context, code int, tag, msg string, err error) {
	appErr := response.WrapError(code, tag, msg, err)
	RespondAppError(c, appErr)
}

// RespondAppError writes appErr to the client
func RespondAppError(c *gin.Context, appErr *response.AppError) {
	if appErr == nil {
		return
	}
	if appErr.Err != nil {
		log := RequestLog(c)
		if appErr.Code >= response.CodeInternal {
			log.Errorw("handler_error",
				"code", appErr.Code,
				"tag", appErr.Tag,
				"message", appErr.Message,
				"error", appErr.Err,
			)
		} else {
			log.Debugw("handler_rejected_request",
				"code", appErr.Code,
				"tag", appErr.Tag,
				"error", appErr.Err,
			)
		}
	}
	response.Error(c, appErr.Code, appErr.Tag, appErr.Message)
}

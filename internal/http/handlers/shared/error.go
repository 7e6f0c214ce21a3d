package shared

import (
	"github.com/smartcargo-next/internal/http/response"
	"github.com/smartcargo-next/internal/logger"
	"github.com/smartcargo-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
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

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"path", c.FullPath(),
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondServiceError 按业务错误分类返回响应；未分类错误按 500 处理并记录日志
func RespondServiceError(c *gin.Context, err error, fallbackMsg string) {
	if code, ok := codeForKind(service.KindOf(err)); ok {
		RespondError(c, code, err.Error(), nil)
		return
	}
	RespondError(c, response.CodeInternal, fallbackMsg, err)
}

// RespondPartial 部分成功的失败响应，data 携带已完成的结果
func RespondPartial(c *gin.Context, err error, fallbackMsg string, data gin.H) {
	code, ok := codeForKind(service.KindOf(err))
	msg := err.Error()
	if !ok {
		code, msg = response.CodeInternal, fallbackMsg
		RequestLog(c).Errorw("handler_error", "code", code, "message", msg, "path", c.FullPath(), "error", err)
	}
	response.ErrorWithData(c, code, msg, data)
}

func codeForKind(kind service.ErrorKind) (int, bool) {
	switch kind {
	case service.KindValidation:
		return response.CodeBadRequest, true
	case service.KindNotFound:
		return response.CodeNotFound, true
	case service.KindConflict:
		return response.CodeConflict, true
	case service.KindUnauthorized:
		return response.CodeUnauthorized, true
	case service.KindForbidden:
		return response.CodeForbidden, true
	}
	return 0, false
}

package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fitlog/backend/internal/domain"
	"fitlog/backend/internal/middleware"
)

// 通用错误消息
const (
	MsgMethodNotAllowed = "Method not allowed"
	MsgNotFound         = "Not found"
)

// 错误分类 -> HTTP 状态码
var kindStatus = map[domain.ErrorKind]int{
	domain.KindValidation: http.StatusBadRequest,
	domain.KindAttachment: http.StatusBadRequest,
	domain.KindRateLimit:  http.StatusTooManyRequests,
	domain.KindTransport:  http.StatusInternalServerError,
}

// StatusFor 返回错误对应的状态码与对外消息，未分类的错误一律按服务器错误处理
func StatusFor(err error) (int, string) {
	var de *domain.Error
	if errors.As(err, &de) {
		if status, ok := kindStatus[de.Kind]; ok {
			return status, de.UserMessage()
		}
	}
	return http.StatusInternalServerError, domain.ErrServer.Error()
}

// respondError 写出错误响应，内部细节只写日志
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status, msg := StatusFor(err)
	_ = c.Error(err)

	if status >= http.StatusInternalServerError {
		log.Error("suggestion request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	ErrorJSON(c, status, msg)
}

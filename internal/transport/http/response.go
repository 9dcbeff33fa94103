package httptransport

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应结构，与浏览器客户端约定只有 error 字段
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrorJSON 写出错误响应
func ErrorJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

// OK 写出成功响应
func OK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

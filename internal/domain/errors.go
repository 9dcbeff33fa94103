package domain

import (
	"errors"
	"fmt"
)

// 用户可见的错误消息（短、非技术性）
var (
	ErrInvalidSubmission = errors.New("Invalid submission")
	ErrMissingFields     = errors.New("Missing required fields")
	ErrInvalidEmail      = errors.New("Invalid email format")
	ErrFileTooLarge      = errors.New("File too large (max 5MB)")
	ErrFileType          = errors.New("Invalid file type. Use PNG, JPEG, or WebP.")
	ErrTooManyRequests   = errors.New("Too many requests, please try again later.")
	ErrProcessingFailed  = errors.New("Failed to process suggestion")
	ErrServer            = errors.New("Server error processing suggestion")
	ErrDraftCorrupt      = errors.New("draft is corrupt")
)

// ErrorKind 错误分类
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"        // 字段校验失败，用户可修正
	KindRateLimit        ErrorKind = "rate_limit"        // 提交过于频繁
	KindAttachment       ErrorKind = "attachment"        // 附件大小/类型不符
	KindTransport        ErrorKind = "transport"         // 网络或 Webhook 失败
	KindDraftPersistence ErrorKind = "draft_persistence" // 本地草稿读写失败
)

// Error 带分类的提交流程错误。
//
// Err 保存对用户展示的哨兵错误或底层错误，Field 指出出错的表单字段（可为空）。
type Error struct {
	Kind       ErrorKind
	Field      string
	StatusCode int // 仅传输错误使用
	Err        error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Field, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %v", e.Kind, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

// Unwrap 支持 errors.Is / errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage 返回可直接展示给用户的消息
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindTransport:
		return ErrProcessingFailed.Error()
	case KindDraftPersistence:
		return "Could not load draft"
	}
	if e.Err == nil {
		return ErrInvalidSubmission.Error()
	}
	return e.Err.Error()
}

// NewValidationError 创建字段校验错误
func NewValidationError(field string, err error) *Error {
	return &Error{Kind: KindValidation, Field: field, Err: err}
}

// NewAttachmentError 创建附件错误
func NewAttachmentError(err error) *Error {
	return &Error{Kind: KindAttachment, Field: FieldFile, Err: err}
}

// NewRateLimitError 创建限流错误
func NewRateLimitError() *Error {
	return &Error{Kind: KindRateLimit, Err: ErrTooManyRequests}
}

// NewTransportError 创建传输错误，status 为 0 表示请求未得到响应
func NewTransportError(status int, err error) *Error {
	return &Error{Kind: KindTransport, StatusCode: status, Err: err}
}

// NewDraftPersistenceError 创建草稿持久化错误
func NewDraftPersistenceError(err error) *Error {
	return &Error{Kind: KindDraftPersistence, Err: err}
}

// KindOf 返回错误分类，非 *Error 返回空串
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind 判断错误是否属于指定分类
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

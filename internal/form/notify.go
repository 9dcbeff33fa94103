package form

import (
	"errors"
	"fmt"
	"time"

	"fitlog/backend/internal/domain"
)

// NoticeLevel 提示级别
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
	NoticeInfo    NoticeLevel = "info"
)

// Notifier 接收展示给用户的简短提示
type Notifier interface {
	Notify(level NoticeLevel, message string)
}

// NotifierFunc 将函数适配为 Notifier
type NotifierFunc func(level NoticeLevel, message string)

// Notify 实现 Notifier
func (f NotifierFunc) Notify(level NoticeLevel, message string) { f(level, message) }

type discardNotifier struct{}

func (discardNotifier) Notify(NoticeLevel, string) {}

// 字段的显示名
var fieldLabels = map[string]string{
	domain.FieldName:       "Name",
	domain.FieldEmail:      "Email",
	domain.FieldCategory:   "Category",
	domain.FieldPriority:   "Priority",
	domain.FieldSuggestion: "Suggestion",
}

// ErrorMessage 将提交错误转换为用户可读的提示
func ErrorMessage(err error) string {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		return "Something went wrong. Please try again."
	}

	switch derr.Kind {
	case domain.KindValidation:
		if errors.Is(derr, domain.ErrMissingFields) {
			if label, ok := fieldLabels[derr.Field]; ok {
				if derr.Field == domain.FieldSuggestion {
					return fmt.Sprintf("Please fill out the required field: %s (at least %d characters)", label, domain.MinSuggestionLength)
				}
				return "Please fill out the required field: " + label
			}
		}
		return derr.UserMessage()
	case domain.KindTransport:
		return "Failed to send feedback: " + derr.UserMessage()
	default:
		return derr.UserMessage()
	}
}

// TimeAgo 以 "just now" / "12s ago" / "3m ago" / "2h ago" / "1d ago" 的形式描述经过的时间
func TimeAgo(elapsed time.Duration) string {
	seconds := int(elapsed / time.Second)
	switch {
	case seconds < 10:
		return "just now"
	case seconds < 60:
		return fmt.Sprintf("%ds ago", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh ago", seconds/3600)
	default:
		return fmt.Sprintf("%dd ago", seconds/86400)
	}
}

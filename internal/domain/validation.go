package domain

import (
	"mime"
	"regexp"
	"strings"
)

// 基础邮箱形状：local@domain.tld
var emailShapeRegex = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// ValidateEmail 检查邮箱地址的基本形状（不做 RFC 5322 完整校验）
func ValidateEmail(email string) bool {
	return emailShapeRegex.MatchString(email)
}

// ParsePriority 解析优先级，无法识别时返回 false
func ParsePriority(value string) (Priority, bool) {
	switch Priority(value) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(value), true
	}
	return Priority(value), false
}

// NormalizeContentType 去掉 MIME 参数并转小写，解析失败返回原值的小写形式
func NormalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// IsAllowedType 检查 MIME 类型是否在允许列表中
func IsAllowedType(contentType string, allowed []string) bool {
	mediaType := NormalizeContentType(contentType)
	for _, t := range allowed {
		if strings.EqualFold(mediaType, t) {
			return true
		}
	}
	return false
}

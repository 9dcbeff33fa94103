// Package format 负责文本清洗、结构化消息构建以及提交 ID 生成。
package format

import (
	"strings"

	"fitlog/backend/internal/domain"
)

// markdownEscaper 对下游富文本渲染器有特殊含义的字符加转义前缀
var markdownEscaper = strings.NewReplacer(
	"`", "\\`",
	"*", "\\*",
	"_", "\\_",
	"~", "\\~",
)

// Sanitize 转义 ` * _ ~ 并截断到 domain.MaxTextLength 个字符。
//
// 对同一原始值只能调用一次：再次调用会重复转义。
func Sanitize(text string) string {
	return Truncate(markdownEscaper.Replace(text), domain.MaxTextLength)
}

// Truncate 按字符（rune）截断字符串
func Truncate(text string, limit int) string {
	if limit < 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == limit {
			return text[:i]
		}
		count++
	}
	return text
}

// RuneLen 返回字符数
func RuneLen(text string) int {
	return len([]rune(text))
}

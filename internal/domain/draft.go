package domain

import "time"

// Draft 浏览器本地保存的未提交表单（草稿）。
//
// Fields 的值为 string 或 bool（复选框）。
type Draft struct {
	Fields  map[string]any `json:"fields"`
	SavedAt *time.Time     `json:"savedAt,omitempty"`
}

// String 返回字段的字符串值，不存在或类型不符时返回空串
func (d *Draft) String(name string) string {
	if d == nil {
		return ""
	}
	if v, ok := d.Fields[name].(string); ok {
		return v
	}
	return ""
}

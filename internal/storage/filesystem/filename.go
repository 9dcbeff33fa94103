package filesystem

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"unicode"
)

// maxFilenameLength 暂存文件名的最大字节数
const maxFilenameLength = 200

// SanitizeFilename 清理文件名，确保跨平台兼容
func SanitizeFilename(filename string) string {
	// 反斜杠在 Unix 上不是分隔符，先统一处理
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)

	for _, char := range invalidChars() {
		filename = strings.ReplaceAll(filename, char, "_")
	}

	filename = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, filename)

	filename = limitLength(filename, maxFilenameLength)
	filename = strings.Trim(filename, " .")

	if filename == "" {
		filename = "unnamed"
	}
	return filename
}

// invalidChars 当前平台不允许出现在文件名中的字符
func invalidChars() []string {
	switch runtime.GOOS {
	case "darwin", "linux":
		return []string{"/", "\x00"}
	default:
		return []string{"<", ">", ":", "\"", "|", "?", "*", "\\", "/", "\x00"}
	}
}

// limitLength 截断文件名并保留扩展名
func limitLength(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	ext := filepath.Ext(s)
	if len(ext) >= maxLen {
		return ext[:maxLen]
	}
	return strings.TrimSuffix(s, ext)[:maxLen-len(ext)] + ext
}

// ValidatePath 验证基础目录是否安全
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	if len(path) > 2000 {
		return fmt.Errorf("path too long: %d characters", len(path))
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("path traversal detected: %s", path)
		}
	}
	return nil
}

package format

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// submissionIDLength 提交 ID 的十六进制字符数（32 位）
const submissionIDLength = 8

// NewSubmissionID 生成 8 位小写十六进制的提交 ID。
//
// 取随机 UUID 的 SHA-256 摘要前缀，仅用于关联日志与消息，不可作为安全令牌。
func NewSubmissionID() string {
	return SubmissionIDFrom(uuid.New().String())
}

// SubmissionIDFrom 由给定种子确定性地派生提交 ID
func SubmissionIDFrom(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:submissionIDLength]
}

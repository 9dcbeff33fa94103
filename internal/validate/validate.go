// Package validate 提供按顺序执行的可插拔提交校验规则。
package validate

import (
	"unicode/utf8"

	"fitlog/backend/internal/domain"
)

// Result 单条规则的校验结果
type Result struct {
	Passed bool
	Reason error // 未通过时的原因，通常为 *domain.Error
}

// Pass 校验通过
func Pass() Result {
	return Result{Passed: true}
}

// Reject 校验不通过
func Reject(reason error) Result {
	return Result{Passed: false, Reason: reason}
}

// Rule 单条校验规则
type Rule interface {
	Name() string
	Check(s *domain.RawSubmission) Result
}

// RuleFunc 将函数适配为 Rule
type RuleFunc struct {
	RuleName string
	Fn       func(s *domain.RawSubmission) Result
}

// Name 返回规则名
func (r RuleFunc) Name() string { return r.RuleName }

// Check 执行规则
func (r RuleFunc) Check(s *domain.RawSubmission) Result { return r.Fn(s) }

// Chain 按顺序执行的规则列表，遇到第一条失败的规则即停止
type Chain []Rule

// Validate 执行所有规则，返回第一条失败规则的原因
func (c Chain) Validate(s *domain.RawSubmission) error {
	for _, rule := range c {
		if res := rule.Check(s); !res.Passed {
			if res.Reason == nil {
				return domain.NewValidationError("", domain.ErrInvalidSubmission)
			}
			return res.Reason
		}
	}
	return nil
}

// Honeypot 蜜罐字段非空时拒绝，错误与普通无效提交相同
func Honeypot() Rule {
	return RuleFunc{
		RuleName: "honeypot",
		Fn: func(s *domain.RawSubmission) Result {
			if s.Honeypot != "" {
				return Reject(domain.NewValidationError("", domain.ErrInvalidSubmission))
			}
			return Pass()
		},
	}
}

// RequiredFields 检查分类、优先级与建议文本（至少 minLength 个字符）
func RequiredFields(minLength int) Rule {
	return RuleFunc{
		RuleName: "required_fields",
		Fn: func(s *domain.RawSubmission) Result {
			switch {
			case s.Category == "":
				return Reject(domain.NewValidationError(domain.FieldCategory, domain.ErrMissingFields))
			case s.Priority == "":
				return Reject(domain.NewValidationError(domain.FieldPriority, domain.ErrMissingFields))
			case utf8.RuneCountInString(s.Suggestion) < minLength:
				return Reject(domain.NewValidationError(domain.FieldSuggestion, domain.ErrMissingFields))
			}
			return Pass()
		},
	}
}

// EmailShape 邮箱非空时检查基本格式
func EmailShape() Rule {
	return RuleFunc{
		RuleName: "email_shape",
		Fn: func(s *domain.RawSubmission) Result {
			if s.Email != "" && !domain.ValidateEmail(s.Email) {
				return Reject(domain.NewValidationError(domain.FieldEmail, domain.ErrInvalidEmail))
			}
			return Pass()
		},
	}
}

// AttachmentLimits 附件大小与类型检查
func AttachmentLimits(maxSize int64, allowedTypes []string) Rule {
	return RuleFunc{
		RuleName: "attachment_limits",
		Fn: func(s *domain.RawSubmission) Result {
			if err := CheckAttachment(s.File, maxSize, allowedTypes); err != nil {
				return Reject(err)
			}
			return Pass()
		},
	}
}

// CheckAttachment 检查附件是否满足限制，nil 附件视为通过
func CheckAttachment(a *domain.Attachment, maxSize int64, allowedTypes []string) error {
	if a == nil {
		return nil
	}
	if a.Size() > maxSize {
		return domain.NewAttachmentError(domain.ErrFileTooLarge)
	}
	if !domain.IsAllowedType(a.ContentType, allowedTypes) {
		return domain.NewAttachmentError(domain.ErrFileType)
	}
	return nil
}

// ServerChain 中继端点的权威校验顺序：附件、蜜罐、必填字段、邮箱
func ServerChain(maxSize int64, allowedTypes []string) Chain {
	return Chain{
		AttachmentLimits(maxSize, allowedTypes),
		Honeypot(),
		RequiredFields(domain.MinSuggestionLength),
		EmailShape(),
	}
}

// ClientChain 客户端提交前的校验顺序：蜜罐、必填字段、邮箱
//
// 附件在选择时已单独校验。
func ClientChain() Chain {
	return Chain{
		Honeypot(),
		RequiredFields(domain.MinSuggestionLength),
		EmailShape(),
	}
}

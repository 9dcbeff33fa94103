// Package form 实现建议表单的客户端控制器：字段编辑、草稿自动保存、附件选择与提交。
package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"fitlog/backend/internal/domain"
	"fitlog/backend/internal/draft"
	"fitlog/backend/internal/scheduler"
	"fitlog/backend/internal/validate"
)

var (
	// ErrSubmitInProgress 已有提交在进行中
	ErrSubmitInProgress = errors.New("submission already in progress")
	// ErrCoolingDown 提交成功后的冷却时间内不能再次提交
	ErrCoolingDown = errors.New("please wait before submitting again")
	// ErrClosed 控制器已关闭
	ErrClosed = errors.New("form controller closed")
)

// Submitter 将表单提交到中继端点
type Submitter interface {
	Submit(ctx context.Context, s *domain.RawSubmission) (*domain.SubmissionResult, error)
}

// Options 控制器参数
type Options struct {
	AutosaveInterval time.Duration         // 默认 8 秒
	SubmitCooldown   time.Duration         // 默认 5 秒
	MaxFileSize      int64                 // 默认 5MB
	AllowedTypes     []string              // 默认 jpeg/png/webp
	Metadata         func() map[string]any // 随提交附带的客户端元数据，可为 nil
}

func (o *Options) applyDefaults() {
	if o.AutosaveInterval <= 0 {
		o.AutosaveInterval = 8 * time.Second
	}
	if o.SubmitCooldown <= 0 {
		o.SubmitCooldown = 5 * time.Second
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = domain.MaxFileSize
	}
	if len(o.AllowedTypes) == 0 {
		o.AllowedTypes = domain.DefaultAllowedTypes
	}
}

// Controller 建议表单控制器。
//
// 状态流转：Idle → Editing → Submitting → Success | Failed。
// 所有方法可并发调用；网络请求期间不持有锁，重复提交会被拒绝。
type Controller struct {
	mu sync.Mutex

	state       State
	fields      map[string]any
	file        *domain.Attachment
	lastSaved   *time.Time
	coolingDown bool
	closed      bool

	autosave scheduler.Handle
	cooldown scheduler.Handle

	drafts    *draft.Store
	submitter Submitter
	sched     scheduler.Scheduler
	notifier  Notifier
	chain     validate.Chain
	opts      Options
	log       *zap.Logger
}

// New 创建控制器并启动自动保存
func New(drafts *draft.Store, submitter Submitter, sched scheduler.Scheduler, notifier Notifier, opts Options, log *zap.Logger) *Controller {
	opts.applyDefaults()
	if notifier == nil {
		notifier = discardNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if sched == nil {
		sched = scheduler.NewReal()
	}

	c := &Controller{
		state:     StateIdle,
		fields:    make(map[string]any),
		drafts:    drafts,
		submitter: submitter,
		sched:     sched,
		notifier:  notifier,
		chain:     validate.ClientChain(),
		opts:      opts,
		log:       log,
	}
	c.autosave = sched.Every(opts.AutosaveInterval, func() {
		c.Autosave(context.Background())
	})
	return c
}

// State 返回当前状态
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Fields 返回当前字段的副本
func (c *Controller) Fields() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyFields(c.fields)
}

// File 返回已选择的附件，没有时为 nil
func (c *Controller) File() *domain.Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file
}

// CanSubmit 当前是否允许提交
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.state != StateSubmitting && !c.coolingDown
}

// SetField 设置字段值（string 或 bool），不会立即保存草稿
func (c *Controller) SetField(name string, value any) error {
	switch value.(type) {
	case string, bool:
	default:
		return fmt.Errorf("unsupported value type %T for field %s", value, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	c.fields[name] = value
	c.state = StateEditing
	return nil
}

// CharCounter 返回建议文本的计数 "N / 3000"，以及文本是否过短（非空且不足最小长度）
func (c *Controller) CharCounter() (string, bool) {
	c.mu.Lock()
	text, _ := c.fields[domain.FieldSuggestion].(string)
	c.mu.Unlock()

	n := len([]rune(text))
	return fmt.Sprintf("%d / %d", n, domain.MaxTextLength), n > 0 && n < domain.MinSuggestionLength
}

// AttachFile 选择附件。不满足大小或类型限制时清除已选附件并返回附件错误。
func (c *Controller) AttachFile(filename, contentType string, data []byte) error {
	a := &domain.Attachment{Filename: filename, ContentType: contentType, Data: data}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err := validate.CheckAttachment(a, c.opts.MaxFileSize, c.opts.AllowedTypes); err != nil {
		c.file = nil
		c.mu.Unlock()
		c.notifier.Notify(NoticeError, ErrorMessage(err))
		return err
	}
	c.file = a
	if c.state != StateSubmitting {
		c.state = StateEditing
	}
	c.mu.Unlock()

	c.notifier.Notify(NoticeSuccess, "Screenshot added")
	return nil
}

// RemoveFile 移除已选附件
func (c *Controller) RemoveFile() {
	c.mu.Lock()
	had := c.file != nil
	c.file = nil
	c.mu.Unlock()

	if had {
		c.notifier.Notify(NoticeInfo, "Screenshot removed")
	}
}

// Restore 加载已保存的草稿，返回是否恢复了草稿
func (c *Controller) Restore(ctx context.Context) bool {
	d, ok := c.drafts.Load(ctx)
	if !ok || len(d.Fields) == 0 {
		return false
	}

	c.mu.Lock()
	for k, v := range d.Fields {
		switch v.(type) {
		case string, bool:
			c.fields[k] = v
		}
	}
	c.lastSaved = d.SavedAt
	if c.state == StateIdle {
		c.state = StateEditing
	}
	c.mu.Unlock()

	c.notifier.Notify(NoticeInfo, "Draft restored")
	return true
}

// Autosave 有未保存修改时保存草稿，由自动保存定时器调用
func (c *Controller) Autosave(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.state == StateSubmitting {
		c.mu.Unlock()
		return
	}
	fields := copyFields(c.fields)
	c.mu.Unlock()

	if !c.drafts.HasUnsavedChanges(ctx, fields) {
		return
	}
	if err := c.save(ctx, fields); err != nil {
		c.log.Warn("autosave failed", zap.Error(err))
		c.notifier.Notify(NoticeError, "Could not save draft")
	}
}

// SaveDraft 手动保存草稿
func (c *Controller) SaveDraft(ctx context.Context) error {
	fields := c.Fields()
	if err := c.save(ctx, fields); err != nil {
		c.log.Warn("draft save failed", zap.Error(err))
		c.notifier.Notify(NoticeError, "Could not save draft")
		return err
	}
	c.notifier.Notify(NoticeSuccess, "Draft saved")
	return nil
}

func (c *Controller) save(ctx context.Context, fields map[string]any) error {
	if err := c.drafts.Save(ctx, fields); err != nil {
		return err
	}
	now := c.sched.Now()
	c.mu.Lock()
	c.lastSaved = &now
	c.mu.Unlock()
	return nil
}

// DraftStatus 返回草稿保存状态，例如 "Last saved 3m ago"；从未保存时为空串
func (c *Controller) DraftStatus() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastSaved == nil {
		return ""
	}
	return "Last saved " + TimeAgo(c.sched.Now().Sub(*c.lastSaved))
}

// Submit 校验并提交表单。
//
// 校验失败返回校验错误，状态保持 Editing。提交成功后清除字段与草稿，
// 并在冷却时间内拒绝再次提交；提交失败时保留字段与草稿，可立即重试。
func (c *Controller) Submit(ctx context.Context) (*domain.SubmissionResult, error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return nil, ErrClosed
	case c.state == StateSubmitting:
		c.mu.Unlock()
		return nil, ErrSubmitInProgress
	case c.coolingDown:
		c.mu.Unlock()
		return nil, ErrCoolingDown
	}

	raw := c.rawLocked()
	if err := c.chain.Validate(raw); err != nil {
		c.mu.Unlock()
		c.notifier.Notify(NoticeError, ErrorMessage(err))
		return nil, err
	}
	c.state = StateSubmitting
	c.mu.Unlock()

	result, err := c.submitter.Submit(ctx, raw)

	if err != nil {
		c.mu.Lock()
		c.state = StateFailed
		c.mu.Unlock()

		c.log.Warn("submission failed", zap.Error(err))
		c.notifier.Notify(NoticeError, ErrorMessage(err))
		return nil, err
	}

	c.mu.Lock()
	c.state = StateSuccess
	c.resetLocked()
	c.coolingDown = true
	c.cooldown = c.sched.After(c.opts.SubmitCooldown, func() {
		c.mu.Lock()
		c.coolingDown = false
		c.mu.Unlock()
	})
	c.mu.Unlock()

	if err := c.drafts.Clear(ctx); err != nil {
		c.log.Warn("failed to clear draft after submit", zap.Error(err))
	}

	c.log.Info("suggestion submitted", zap.String("submission_id", result.SubmissionID))
	c.notifier.Notify(NoticeSuccess, "Thanks! Your feedback has been sent.")
	return result, nil
}

// BeforeUnload 离开前调用：有未保存修改时返回 true，调用方应请求确认
func (c *Controller) BeforeUnload(ctx context.Context) bool {
	return c.drafts.HasUnsavedChanges(ctx, c.Fields())
}

// HasUnsavedChanges 当前字段是否与已保存草稿不同
func (c *Controller) HasUnsavedChanges(ctx context.Context) bool {
	return c.BeforeUnload(ctx)
}

// Discard 丢弃当前字段、附件与草稿
func (c *Controller) Discard(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return ErrSubmitInProgress
	}
	c.resetLocked()
	c.state = StateIdle
	c.mu.Unlock()

	if err := c.drafts.Clear(ctx); err != nil {
		c.log.Warn("failed to clear draft", zap.Error(err))
		return err
	}
	c.notifier.Notify(NoticeInfo, "Changes discarded")
	return nil
}

// Close 停止自动保存与冷却计时
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.autosave != nil {
		c.autosave.Stop()
	}
	if c.cooldown != nil {
		c.cooldown.Stop()
	}
}

func (c *Controller) resetLocked() {
	c.fields = make(map[string]any)
	c.file = nil
	c.lastSaved = nil
}

// rawLocked 根据当前字段构建提交内容
func (c *Controller) rawLocked() *domain.RawSubmission {
	str := func(name string) string {
		v, _ := c.fields[name].(string)
		return v
	}

	consent := ""
	switch v := c.fields[domain.FieldConsent].(type) {
	case bool:
		if v {
			consent = "true"
		}
	case string:
		if v == "true" || v == "on" {
			consent = "true"
		}
	}

	raw := &domain.RawSubmission{
		Name:       str(domain.FieldName),
		Email:      str(domain.FieldEmail),
		Category:   str(domain.FieldCategory),
		Priority:   str(domain.FieldPriority),
		Suggestion: str(domain.FieldSuggestion),
		Consent:    consent,
		Honeypot:   str(domain.FieldHoneypot),
		File:       c.file,
	}

	if c.opts.Metadata != nil {
		if md := c.opts.Metadata(); len(md) > 0 {
			if data, err := json.Marshal(md); err == nil {
				raw.ClientMetadata = string(data)
			}
		}
	}
	return raw
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

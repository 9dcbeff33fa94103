// Package draft 在本地键值存储中保存未提交的建议表单。
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fitlog/backend/internal/domain"
	"fitlog/backend/internal/storage"
)

// 存储键
const (
	KeyDraft     = "feedback_draft"
	KeyDraftTime = "feedback_draft_time"
)

// Store 草稿存储。读取失败视为没有草稿，不影响表单使用。
type Store struct {
	kv  storage.KeyValueRepository
	log *zap.Logger
	now func() time.Time
}

// NewStore 创建草稿存储
func NewStore(kv storage.KeyValueRepository, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: kv, log: log, now: time.Now}
}

// Save 保存表单字段（蜜罐字段除外）与保存时间
func (s *Store) Save(ctx context.Context, fields map[string]any) error {
	data, err := Serialize(fields)
	if err != nil {
		return domain.NewDraftPersistenceError(fmt.Errorf("encode draft: %w", err))
	}

	if err := s.kv.SetValue(ctx, KeyDraft, data); err != nil {
		return domain.NewDraftPersistenceError(fmt.Errorf("save draft: %w", err))
	}
	if err := s.kv.SetValue(ctx, KeyDraftTime, s.now().UTC().Format(time.RFC3339)); err != nil {
		return domain.NewDraftPersistenceError(fmt.Errorf("save draft time: %w", err))
	}
	return nil
}

// Load 读取草稿。不存在或无法解析时返回 false，解析错误只记录日志。
func (s *Store) Load(ctx context.Context) (*domain.Draft, bool) {
	raw, ok, err := s.kv.GetValue(ctx, KeyDraft)
	if err != nil {
		s.log.Warn("failed to read draft", zap.Error(domain.NewDraftPersistenceError(err)))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	fields := make(map[string]any)
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		s.log.Warn("discarding malformed draft",
			zap.Error(domain.NewDraftPersistenceError(fmt.Errorf("%w: %v", domain.ErrDraftCorrupt, err))),
		)
		return nil, false
	}

	d := &domain.Draft{Fields: fields}

	if ts, ok, err := s.kv.GetValue(ctx, KeyDraftTime); err == nil && ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			d.SavedAt = &t
		}
	}

	return d, true
}

// Clear 删除草稿与保存时间
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.DeleteValue(ctx, KeyDraft, KeyDraftTime); err != nil {
		return domain.NewDraftPersistenceError(fmt.Errorf("clear draft: %w", err))
	}
	return nil
}

// HasUnsavedChanges 建议文本非空且当前字段与已保存的草稿不同
func (s *Store) HasUnsavedChanges(ctx context.Context, fields map[string]any) bool {
	if text, _ := fields[domain.FieldSuggestion].(string); text == "" {
		return false
	}

	current, err := Serialize(fields)
	if err != nil {
		return true
	}

	saved := "{}"
	raw, ok, err := s.kv.GetValue(ctx, KeyDraft)
	if err != nil {
		s.log.Warn("failed to read draft", zap.Error(err))
	} else if ok {
		saved = raw
	}

	return current != saved
}

// Serialize 将表单字段编码为草稿内容，蜜罐字段不保存。
//
// 键按字母顺序输出，相同字段总是得到相同的结果。
func Serialize(fields map[string]any) (string, error) {
	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == domain.FieldHoneypot {
			continue
		}
		clean[k] = v
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

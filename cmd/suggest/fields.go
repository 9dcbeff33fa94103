package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"fitlog/backend/internal/domain"
	"fitlog/backend/internal/form"
)

// fieldFlags 表单字段对应的命令行参数
type fieldFlags struct {
	name       string
	email      string
	category   string
	priority   string
	suggestion string
	consent    bool
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "your name (default: Anonymous)")
	cmd.Flags().StringVar(&f.email, "email", "", "contact email (optional)")
	cmd.Flags().StringVar(&f.category, "category", "", "suggestion category, e.g. Feature, Bug, UI")
	cmd.Flags().StringVar(&f.priority, "priority", "", "High, Medium or Low")
	cmd.Flags().StringVarP(&f.suggestion, "suggestion", "s", "", "the suggestion text (at least 10 characters)")
	cmd.Flags().BoolVar(&f.consent, "consent", false, "allow the team to contact you about this suggestion")
}

// apply 只写入显式给出的参数，未给出的字段保留草稿中的值
func (f *fieldFlags) apply(cmd *cobra.Command, c *form.Controller) error {
	values := map[string]any{
		domain.FieldName:       f.name,
		domain.FieldEmail:      f.email,
		domain.FieldCategory:   f.category,
		domain.FieldPriority:   f.priority,
		domain.FieldSuggestion: f.suggestion,
		domain.FieldConsent:    f.consent,
	}
	for field, value := range values {
		if !cmd.Flags().Changed(field) {
			continue
		}
		if err := c.SetField(field, value); err != nil {
			return err
		}
	}
	return nil
}

// attachFile 读取本地截图并按内容识别 MIME 类型
func attachFile(c *form.Controller, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := c.AttachFile(filepath.Base(path), http.DetectContentType(data), data); err != nil {
		return errReported
	}
	return nil
}

// formatFields 按字段名排序输出
func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == domain.FieldHoneypot {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%-11s %v\n", k+":", fields[k])
	}
	return b.String()
}

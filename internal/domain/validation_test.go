package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected bool
	}{
		{"Valid email", "test@example.com", true},
		{"Valid email with subdomain", "user@mail.example.com", true},
		{"Valid email with plus", "user+tag@example.com", true},
		{"Invalid email - no @", "testexample.com", false},
		{"Invalid email - no domain", "test@", false},
		{"Invalid email - no local part", "@example.com", false},
		{"Invalid email - multiple @", "test@@example.com", false},
		{"Invalid email - no dot in domain", "test@localhost", false},
		{"Invalid email - empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateEmail(tt.email))
		})
	}
}

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority("High")
	assert.True(t, ok)
	assert.Equal(t, PriorityHigh, p)

	_, ok = ParsePriority("Urgent")
	assert.False(t, ok)

	_, ok = ParsePriority("high")
	assert.False(t, ok)
}

func TestIsAllowedType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		expected    bool
	}{
		{"jpeg", "image/jpeg", true},
		{"png 带参数", "image/png; charset=binary", true},
		{"webp 大写", "IMAGE/WEBP", true},
		{"gif 不允许", "image/gif", false},
		{"pdf 不允许", "application/pdf", false},
		{"空类型", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsAllowedType(tt.contentType, DefaultAllowedTypes))
		})
	}
}

func TestErrorKinds(t *testing.T) {
	err := NewValidationError(FieldEmail, ErrInvalidEmail)
	assert.True(t, IsKind(err, KindValidation))
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.Equal(t, "Invalid email format", err.UserMessage())

	transport := NewTransportError(502, assert.AnError)
	assert.Equal(t, KindTransport, KindOf(transport))
	assert.Equal(t, "Failed to process suggestion", transport.UserMessage())

	assert.Equal(t, ErrorKind(""), KindOf(assert.AnError))
}

func TestAttachmentExt(t *testing.T) {
	a := &Attachment{Filename: "Screen.PNG", ContentType: "image/png"}
	assert.Equal(t, "png", a.Ext())

	b := &Attachment{Filename: "capture", ContentType: "image/jpeg", Data: []byte{1, 2, 3}}
	assert.Equal(t, "jpg", b.Ext())
	assert.Equal(t, int64(3), b.Size())

	t.Run("扩展名只取决于MIME类型", func(t *testing.T) {
		c := &Attachment{Filename: "x.html", ContentType: "image/png"}
		assert.Equal(t, "png", c.Ext())

		d := &Attachment{Filename: "shot.webp", ContentType: "image/WEBP; charset=binary"}
		assert.Equal(t, "webp", d.Ext())

		e := &Attachment{Filename: "run.exe", ContentType: "application/octet-stream"}
		assert.Equal(t, "bin", e.Ext())
	})
}

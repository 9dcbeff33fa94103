package webhook

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fitlog/backend/internal/domain"
)

func samplePayload() *domain.WebhookPayload {
	return &domain.WebhookPayload{
		Embeds: []domain.StructuredMessage{{
			Title:       "New Suggestion — UI — High",
			Color:       0xE53E3E,
			Description: "Please add dark mode",
			Footer:      domain.EmbedFooter{Text: "FitLog v1.0.0 | ID: a1b2c3d4"},
		}},
	}
}

func TestEncode_JSON(t *testing.T) {
	body, contentType, err := Encode(samplePayload())
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Contains(t, decoded, "embeds")
	assert.NotContains(t, decoded, "files")
}

func TestEncode_Multipart(t *testing.T) {
	p := samplePayload()
	p.Files = []domain.FileAttachment{
		{Name: "full-suggestion.txt", ContentType: "text/plain; charset=utf-8", Data: []byte("full text")},
		{Name: "a1b2c3d4.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
	}

	body, contentType, err := Encode(p)
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	reader := multipart.NewReader(strings.NewReader(string(body)), params["boundary"])

	part, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "payload_json", part.FormName())
	data, _ := io.ReadAll(part)
	var decoded domain.WebhookPayload
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Please add dark mode", decoded.Embeds[0].Description)

	part, err = reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "files[0]", part.FormName())
	assert.Equal(t, "full-suggestion.txt", part.FileName())
	data, _ = io.ReadAll(part)
	assert.Equal(t, "full text", string(data))

	part, err = reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "files[1]", part.FormName())
	assert.Equal(t, "a1b2c3d4.png", part.FileName())
	assert.Equal(t, "image/png", part.Header.Get("Content-Type"))

	_, err = reader.NextPart()
	assert.Equal(t, io.EOF, err)
}

func TestClient_Send(t *testing.T) {
	t.Run("2xx视为成功", func(t *testing.T) {
		var gotType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotType = r.Header.Get("Content-Type")
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		c := New(srv.URL, Options{Timeout: time.Second}, zap.NewNop())
		require.NoError(t, c.Send(context.Background(), samplePayload()))
		assert.Equal(t, "application/json", gotType)
	})

	t.Run("非2xx返回传输错误", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		}))
		defer srv.Close()

		c := New(srv.URL, Options{}, zap.NewNop())
		err := c.Send(context.Background(), samplePayload())
		require.Error(t, err)

		var derr *domain.Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, domain.KindTransport, derr.Kind)
		assert.Equal(t, http.StatusBadGateway, derr.StatusCode)
		assert.Contains(t, derr.Error(), "upstream down")
	})

	t.Run("网络错误返回传输错误", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		c := New(url, Options{Timeout: time.Second}, zap.NewNop())
		err := c.Send(context.Background(), samplePayload())
		assert.True(t, domain.IsKind(err, domain.KindTransport))
	})

	t.Run("上下文取消", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := New(srv.URL, Options{}, zap.NewNop())
		err := c.Send(ctx, samplePayload())
		assert.True(t, domain.IsKind(err, domain.KindTransport))
	})
}

func TestClient_Pacing(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{RPS: 20, Burst: 1}, zap.NewNop())

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Send(context.Background(), samplePayload()))
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

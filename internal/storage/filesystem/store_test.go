package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitlog/backend/internal/storage"
)

func TestStore_SaveUpload(t *testing.T) {
	base := t.TempDir()
	store, err := NewStore(base)
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC) }

	ctx := context.Background()

	t.Run("保存到日期目录", func(t *testing.T) {
		loc, err := store.SaveUpload(ctx, "a1b2c3d4.png", "image/png", []byte("png-bytes"))
		require.NoError(t, err)
		assert.Equal(t, "uploads/2024-03-09/a1b2c3d4.png", loc)

		data, err := os.ReadFile(filepath.Join(store.BasePath(), loc))
		require.NoError(t, err)
		assert.Equal(t, []byte("png-bytes"), data)
	})

	t.Run("文件名中的目录被去掉", func(t *testing.T) {
		loc, err := store.SaveUpload(ctx, "../../evil.png", "image/png", []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, "uploads/2024-03-09/evil.png", loc)
	})

	t.Run("空文件名被拒绝", func(t *testing.T) {
		_, err := store.SaveUpload(ctx, "", "image/png", []byte("x"))
		assert.ErrorIs(t, err, storage.ErrInvalidUploadName)
	})

	t.Run("已取消的上下文", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.SaveUpload(cctx, "b.png", "image/png", []byte("x"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestStore_CleanupExpired(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	oldLoc, err := store.SaveUpload(ctx, "old.png", "image/png", []byte("old"))
	require.NoError(t, err)
	newLoc, err := store.SaveUpload(ctx, "new.png", "image/png", []byte("new"))
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(store.BasePath(), oldLoc), past, past))

	removed, err := store.CleanupExpired(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(store.BasePath(), oldLoc))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(store.BasePath(), newLoc))
	assert.NoError(t, err)
}

func TestStore_CheckWritable(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.CheckWritable())
}

func TestNewStore_InvalidPath(t *testing.T) {
	_, err := NewStore("/tmp/../etc")
	assert.Error(t, err)
}

func TestKVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "drafts.json")
	kv, err := NewKVFile(path)
	require.NoError(t, err)

	ctx := context.Background()

	_, ok, err := kv.GetValue(ctx, "feedback_draft")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.SetValue(ctx, "feedback_draft", `{"a":1}`))

	reopened, err := NewKVFile(path)
	require.NoError(t, err)
	v, ok, err := reopened.GetValue(ctx, "feedback_draft")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, v)

	require.NoError(t, reopened.DeleteValue(ctx, "feedback_draft"))
	_, ok, err = kv.GetValue(ctx, "feedback_draft")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVFile_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	kv, err := NewKVFile(path)
	require.NoError(t, err)

	_, _, err = kv.GetValue(context.Background(), "feedback_draft")
	assert.Error(t, err)
}

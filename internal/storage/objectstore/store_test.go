package objectstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitlog/backend/internal/config"
	"fitlog/backend/internal/storage"
)

func TestObjectKey(t *testing.T) {
	ts := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))
	assert.Equal(t, "uploads/year=2024/month=03/day=10/a1b2c3d4.png", ObjectKey("uploads", ts, "a1b2c3d4.png"))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(config.MinIOConfig{Bucket: "b"})
	assert.Error(t, err)

	_, err = New(config.MinIOConfig{Endpoint: "localhost:9000"})
	assert.Error(t, err)

	store, err := New(config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "fitlog", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "fitlog", store.bucket)
}

func TestSaveUpload_InvalidName(t *testing.T) {
	store, err := New(config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "fitlog"})
	require.NoError(t, err)

	for _, name := range []string{"", "  ", "a/b.png", `..\x.png`} {
		_, err := store.SaveUpload(context.Background(), name, "image/png", []byte("x"))
		assert.ErrorIs(t, err, storage.ErrInvalidUploadName, name)
	}
}

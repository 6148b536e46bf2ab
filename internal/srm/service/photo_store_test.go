package service

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeReceiptPhoto(t *testing.T) {
	body := base64.StdEncoding.EncodeToString([]byte("fake-jpeg-bytes"))

	photo, err := DecodeReceiptPhoto("data:image/jpeg;base64," + body)
	require.NoError(t, err)
	assert.Equal(t, "jpg", photo.Ext)
	assert.Equal(t, "image/jpeg", photo.ContentType)
	assert.Equal(t, []byte("fake-jpeg-bytes"), photo.Data)

	photo, err = DecodeReceiptPhoto("data:image/webp;base64," + body)
	require.NoError(t, err)
	assert.Equal(t, "webp", photo.Ext)

	photo, err = DecodeReceiptPhoto("data:image/svg+xml;base64," + body)
	require.NoError(t, err)
	assert.Equal(t, "png", photo.Ext)
}

func TestDecodeReceiptPhoto_Malformed(t *testing.T) {
	inputs := []string{
		"not-a-data-uri",
		"data:text/plain;base64,aGVsbG8=",
		"data:image/png;base64,@@@not-base64@@@",
		"data:image/png,aGVsbG8=",
		"",
	}
	for _, in := range inputs {
		_, err := DecodeReceiptPhoto(in)
		assert.ErrorIs(t, err, ErrInvalidPhoto, in)
	}
}

func TestPhotoExt(t *testing.T) {
	assert.Equal(t, "jpg", photoExt("jpeg"))
	assert.Equal(t, "jpg", photoExt("jpg"))
	assert.Equal(t, "png", photoExt("png"))
	assert.Equal(t, "gif", photoExt("gif"))
	assert.Equal(t, "png", photoExt("tiff"))
}

func TestPhotoObjectName(t *testing.T) {
	name := photoObjectName("jpg", time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^receipts/2026/03/[0-9a-f-]{36}\.jpg$`), name)
}

func TestLocalPhotoStore_Save(t *testing.T) {
	root := t.TempDir()
	store := NewLocalPhotoStore(root, "/files")

	p, err := store.Save(context.Background(), "receipts/2026/03/a.png", "image/png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "/files/receipts/2026/03/a.png", p)

	data, err := os.ReadFile(filepath.Join(root, "receipts", "2026", "03", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestLocalPhotoStore_CancelledContext(t *testing.T) {
	store := NewLocalPhotoStore(t.TempDir(), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, "receipts/x.png", "image/png", []byte("png"))
	assert.Error(t, err)
}

func TestLocalPhotoStore_Defaults(t *testing.T) {
	store := NewLocalPhotoStore("", "")
	assert.Equal(t, "./uploads", store.root)
	assert.True(t, strings.HasPrefix(store.urlPrefix, "/uploads"))
}

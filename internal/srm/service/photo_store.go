package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

var dataURIPattern = regexp.MustCompile(`^data:image/([a-zA-Z0-9.+-]+);base64,(.+)$`)

// ErrInvalidPhoto 回执照片不是合法的data URI
var ErrInvalidPhoto = errors.New("invalid receipt photo data uri")

// PhotoStore 回执照片存储
type PhotoStore interface {
	// Save 保存照片，返回可访问路径
	Save(ctx context.Context, objectName, contentType string, data []byte) (string, error)
}

// ReceiptPhoto 解码后的回执照片
type ReceiptPhoto struct {
	Data        []byte
	Ext         string
	ContentType string
}

// DecodeReceiptPhoto 解析 data:image/<subtype>;base64,<body>
func DecodeReceiptPhoto(uri string) (*ReceiptPhoto, error) {
	m := dataURIPattern.FindStringSubmatch(strings.TrimSpace(uri))
	if m == nil {
		return nil, ErrInvalidPhoto
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPhoto, err)
	}
	if len(data) == 0 {
		return nil, ErrInvalidPhoto
	}

	subtype := strings.ToLower(m[1])
	return &ReceiptPhoto{
		Data:        data,
		Ext:         photoExt(subtype),
		ContentType: "image/" + subtype,
	}, nil
}

func photoExt(subtype string) string {
	switch subtype {
	case "jpeg", "jpg":
		return "jpg"
	case "png", "gif", "webp", "bmp":
		return subtype
	}
	return "png"
}

// photoObjectName receipts/{yyyy}/{mm}/{uuid}.{ext}
func photoObjectName(ext string, now time.Time) string {
	return fmt.Sprintf("receipts/%d/%02d/%s.%s", now.Year(), now.Month(), uuid.New().String(), ext)
}

// LocalPhotoStore 本地磁盘存储，对外以 /uploads/... 访问
type LocalPhotoStore struct {
	root      string
	urlPrefix string
}

func NewLocalPhotoStore(root, urlPrefix string) *LocalPhotoStore {
	if root == "" {
		root = "./uploads"
	}
	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	return &LocalPhotoStore{root: root, urlPrefix: urlPrefix}
}

func (s *LocalPhotoStore) Save(ctx context.Context, objectName, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full := filepath.Join(s.root, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("创建上传目录失败: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("写入照片失败: %w", err)
	}
	return path.Join(s.urlPrefix, objectName), nil
}

// MinIOPhotoStore MinIO对象存储
type MinIOPhotoStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOPhotoStore(client *minio.Client, bucket string) *MinIOPhotoStore {
	return &MinIOPhotoStore{client: client, bucket: bucket}
}

func (s *MinIOPhotoStore) Save(ctx context.Context, objectName, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传照片到MinIO失败: %w", err)
	}
	return s.bucket + "/" + objectName, nil
}

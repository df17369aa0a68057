package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ashwinyue/next-augment/internal/config"
)

// NewPublisher 按配置创建产物发布存储
// local 类型返回 nil：产物已经在输出目录中，直接通过 API 下载
func NewPublisher(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch StorageType(cfg.Type) {
	case "", StorageTypeLocal:
		return nil, nil
	case StorageTypeMinIO:
		m := cfg.MinIO
		if m.Endpoint == "" || m.AccessKey == "" || m.SecretKey == "" || m.Bucket == "" {
			return nil, fmt.Errorf("missing required MinIO config")
		}
		store, err := NewMinIOStorage(ctx, &MinIOConfig{
			Endpoint:   m.Endpoint,
			AccessKey:  m.AccessKey,
			SecretKey:  m.SecretKey,
			BucketName: m.Bucket,
			UseSSL:     m.UseSSL,
			URLPrefix:  m.URLPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// Publish 把本地文件上传到 {prefix}/{文件名}，返回访问 URL
func Publish(ctx context.Context, store Storage, prefix, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat artifact: %w", err)
	}

	name := filepath.Base(path)
	key, err := store.Save(ctx, &SaveRequest{
		Key:         prefix + "/" + name,
		ContentType: ContentTypeOf(name),
		Size:        info.Size(),
		Reader:      f,
	})
	if err != nil {
		return "", err
	}
	return store.GetURL(key), nil
}

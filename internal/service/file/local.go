package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage 本地文件存储
type LocalStorage struct {
	basePath string
}

// NewLocalStorage 创建本地存储服务
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Path 返回 key 对应的本地路径
func (s *LocalStorage) Path(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

// Save 保存文件到 {basePath}/{key}
func (s *LocalStorage) Save(ctx context.Context, req *SaveRequest) (string, error) {
	if err := checkKey(req.Key); err != nil {
		return "", err
	}
	fullPath := s.Path(req.Key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, req.Reader); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return req.Key, nil
}

// Get 获取文件内容
func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Delete 删除文件
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.Path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetURL 本地文件通过 API 下载，没有独立 URL
func (s *LocalStorage) GetURL(key string) string {
	return ""
}

// checkKey 拒绝越出存储根目录的 key
func checkKey(key string) error {
	clean := filepath.ToSlash(filepath.Clean(key))
	if key == "" || filepath.IsAbs(key) || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}

func hasExt(name, ext string) bool {
	return strings.EqualFold(filepath.Ext(name), ext)
}

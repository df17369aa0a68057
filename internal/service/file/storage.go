// Package file 提供上传文件与生成产物的存储
package file

import (
	"context"
	"io"
)

// Storage 文件存储接口
type Storage interface {
	// Save 保存文件，返回存储 key
	Save(ctx context.Context, req *SaveRequest) (string, error)
	// Get 获取文件内容
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete 删除文件
	Delete(ctx context.Context, key string) error
	// GetURL 获取文件的访问 URL，本地存储返回空串
	GetURL(key string) string
}

// SaveRequest 保存文件请求
type SaveRequest struct {
	Key         string // 形如 {jobID}/{fileName}
	ContentType string
	Size        int64 // -1 表示未知
	Reader      io.Reader
}

// StorageType 存储类型
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeMinIO StorageType = "minio"
)

// ContentTypeOf 产物的内容类型
func ContentTypeOf(name string) string {
	switch {
	case hasExt(name, ".jsonl"):
		return "application/x-ndjson"
	case hasExt(name, ".csv"):
		return "text/csv"
	case hasExt(name, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// Package repository 定义数据访问接口
// 接口抽象使依赖注入和单元测试成为可能
package repository

import (
	"errors"

	"github.com/ashwinyue/next-augment/internal/model"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// JobRepository 生成任务数据访问接口
type JobRepository interface {
	Create(job *model.Job) error
	GetByID(id string) (*model.Job, error)
	List(offset, limit int) ([]*model.Job, int64, error)
	Update(job *model.Job) error
}

// 确保实现了接口
var (
	_ JobRepository = (*jobRepositoryImpl)(nil)
	_ JobRepository = (*MemoryJobRepository)(nil)
)

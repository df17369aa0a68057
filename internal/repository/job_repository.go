package repository

import (
	"errors"

	"github.com/ashwinyue/next-augment/internal/model"
	"gorm.io/gorm"
)

// jobRepositoryImpl 基于 gorm 的任务仓库
type jobRepositoryImpl struct {
	db *gorm.DB
}

// NewJobRepository 创建任务仓库
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepositoryImpl{db: db}
}

// Create 创建任务，ID 由 BeforeCreate 钩子生成
func (r *jobRepositoryImpl) Create(job *model.Job) error {
	return r.db.Create(job).Error
}

// GetByID 根据 ID 获取任务
func (r *jobRepositoryImpl) GetByID(id string) (*model.Job, error) {
	var job model.Job
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// List 按创建时间倒序列出任务
func (r *jobRepositoryImpl) List(offset, limit int) ([]*model.Job, int64, error) {
	var jobs []*model.Job
	var total int64

	query := r.db.Model(&model.Job{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&jobs).Error
	return jobs, total, err
}

// Update 保存任务
func (r *jobRepositoryImpl) Update(job *model.Job) error {
	return r.db.Save(job).Error
}

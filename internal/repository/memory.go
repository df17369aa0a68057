package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/ashwinyue/next-augment/internal/model"
	"github.com/google/uuid"
)

// MemoryJobRepository 内存任务仓库
// 返回的都是副本，调用方修改后需要 Update 才会生效
type MemoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

// NewMemoryJobRepository 创建内存任务仓库
func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{jobs: make(map[string]*model.Job)}
}

// Create 创建任务
func (r *MemoryJobRepository) Create(job *model.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

// GetByID 根据 ID 获取任务
func (r *MemoryJobRepository) GetByID(id string) (*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *job
	return &cp, nil
}

// List 按创建时间倒序列出任务
func (r *MemoryJobRepository) List(offset, limit int) ([]*model.Job, int64, error) {
	r.mu.RLock()
	all := make([]*model.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		cp := *job
		all = append(all, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []*model.Job{}, total, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

// Update 保存任务
func (r *MemoryJobRepository) Update(job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	job.UpdatedAt = time.Now()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

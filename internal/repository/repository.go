package repository

import "gorm.io/gorm"

// Repositories 仓库集合
type Repositories struct {
	DB  *gorm.DB // 未启用数据库时为 nil
	Job JobRepository
}

// NewRepositories 基于数据库创建仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:  db,
		Job: NewJobRepository(db),
	}
}

// NewMemoryRepositories 未启用数据库时使用内存仓库，任务历史随进程退出丢失
func NewMemoryRepositories() *Repositories {
	return &Repositories{
		Job: NewMemoryJobRepository(),
	}
}

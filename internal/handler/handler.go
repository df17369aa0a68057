package handler

import (
	"net/http"

	"github.com/ashwinyue/next-augment/internal/config"
	"github.com/ashwinyue/next-augment/internal/service/job"
)

// Handlers 处理器集合
type Handlers struct {
	Job    *JobHandler
	System *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(cfg *config.Config, jobs *job.Service, client *http.Client) *Handlers {
	return &Handlers{
		Job:    NewJobHandler(jobs, cfg.Server.UploadLimit<<20),
		System: NewSystemHandler(cfg, client),
	}
}

package handler

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/ashwinyue/next-augment/internal/service/event"
	"github.com/ashwinyue/next-augment/internal/service/job"
	"github.com/gin-gonic/gin"
)

// webMaxWorkers Web 表单允许的最大并发，CLI 的上限见 model.MaxWorkersLimit
const webMaxWorkers = 16

// JobHandler 生成任务处理器
type JobHandler struct {
	jobs        *job.Service
	uploadLimit int64 // 字节，0 表示不限制
}

// NewJobHandler 创建任务处理器
func NewJobHandler(jobs *job.Service, uploadLimit int64) *JobHandler {
	return &JobHandler{jobs: jobs, uploadLimit: uploadLimit}
}

// CreateJob 上传数据集并启动任务
// POST /api/v1/jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}
	if h.uploadLimit > 0 && fh.Size > h.uploadLimit {
		BadRequest(c, fmt.Sprintf("file exceeds upload limit of %d bytes", h.uploadLimit))
		return
	}

	maxWorkers := 0
	if v := c.PostForm("max_workers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			BadRequest(c, "max_workers must be an integer")
			return
		}
		if n < 1 || n > webMaxWorkers {
			BadRequest(c, fmt.Sprintf("max_workers must be within 1..%d", webMaxWorkers))
			return
		}
		maxWorkers = n
	}

	f, err := fh.Open()
	if err != nil {
		InternalServerError(c, "failed to read upload")
		return
	}
	defer f.Close()

	created, err := h.jobs.Create(c.Request.Context(), &job.CreateRequest{
		Mode:       c.PostForm("mode"),
		ModelName:  c.PostForm("model_name"),
		APIKey:     c.PostForm("api_key"),
		BaseURL:    c.PostForm("base_url"),
		MaxWorkers: maxWorkers,
		InputName:  fh.Filename,
		Input:      f,
	})
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, created)
}

// GetJob 获取任务
// GET /api/v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	j, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, j)
}

// ListJobs 分页列出任务
// GET /api/v1/jobs?page=1&page_size=20
func (h *JobHandler) ListJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	jobs, total, err := h.jobs.List(c.Request.Context(), page, size)
	if err != nil {
		Error(c, err)
		return
	}
	SuccessWithPagination(c, jobs, total, page, size)
}

// StreamLogs 通过 SSE 推送任务日志，先补发历史再推送实时事件，最后一个事件为 end
// GET /api/v1/jobs/:id/logs
func (h *JobHandler) StreamLogs(c *gin.Context) {
	id := c.Param("id")
	j, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		Error(c, err)
		return
	}

	// 设置 SSE 响应头
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	stream, ok := h.jobs.Stream(id)
	if !ok {
		// 服务重启前的任务没有日志，只返回最终状态
		c.SSEvent(string(event.EventEnd), event.Event{Type: event.EventEnd, Data: string(j.Status)})
		c.Writer.Flush()
		return
	}

	history, events, cancel := stream.Subscribe()
	defer cancel()

	for _, evt := range history {
		c.SSEvent(string(evt.Type), evt)
		if evt.Type == event.EventEnd {
			c.Writer.Flush()
			return
		}
	}
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(string(evt.Type), evt)
			c.Writer.Flush()
			if evt.Type == event.EventEnd {
				return
			}
		}
	}
}

// Download 下载任务产物
// GET /api/v1/jobs/:id/download?format=jsonl|csv
func (h *JobHandler) Download(c *gin.Context) {
	path, err := h.jobs.Artifact(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "jsonl"))
	if err != nil {
		Error(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

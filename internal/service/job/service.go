// Package job 提供 Web 端的异步生成任务
// 上传的数据集在启动前完成校验，任务在后台运行，日志通过事件流实时推送
package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ashwinyue/next-augment/internal/config"
	"github.com/ashwinyue/next-augment/internal/model"
	"github.com/ashwinyue/next-augment/internal/repository"
	"github.com/ashwinyue/next-augment/internal/service/callback"
	"github.com/ashwinyue/next-augment/internal/service/dataset"
	"github.com/ashwinyue/next-augment/internal/service/event"
	"github.com/ashwinyue/next-augment/internal/service/file"
	"github.com/ashwinyue/next-augment/internal/service/llm"
	"github.com/ashwinyue/next-augment/internal/service/pipeline"
	"github.com/ashwinyue/next-augment/internal/service/stage"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/google/uuid"
)

const inputFileName = "input.jsonl"

// 保留最近结束任务的事件流，更早的任务只能查询最终状态
const defaultKeepStreams = 32

// ErrArtifactNotReady 任务尚未产出文件
var ErrArtifactNotReady = errors.New("artifact is not ready")

// ChatModelFactory 按任务凭据创建 ChatModel
type ChatModelFactory func(ctx context.Context, cfg llm.ChatModelConfig) (einomodel.BaseChatModel, error)

// Service 生成任务服务
type Service struct {
	repo      repository.JobRepository
	files     *file.LocalStorage // 上传的数据集和产物都在 {outputDir}/{jobID}/ 下
	publisher file.Storage       // nil 表示不额外发布
	cfg       *config.Config
	newModel  ChatModelFactory

	mu          sync.RWMutex
	streams     map[string]*event.Stream
	finished    []string // 已结束任务的 id，按结束顺序
	keepStreams int
	wg          sync.WaitGroup
}

// Option 服务配置项
type Option func(*Service)

// WithPublisher 任务完成后把产物上传到对象存储
func WithPublisher(store file.Storage) Option {
	return func(s *Service) { s.publisher = store }
}

// WithChatModelFactory 替换 ChatModel 的创建方式
func WithChatModelFactory(f ChatModelFactory) Option {
	return func(s *Service) { s.newModel = f }
}

// NewService 创建任务服务
func NewService(cfg *config.Config, repo repository.JobRepository, opts ...Option) (*Service, error) {
	files, err := file.NewLocalStorage(cfg.Job.OutputDir)
	if err != nil {
		return nil, err
	}
	s := &Service{
		repo:     repo,
		files:    files,
		cfg:      cfg,
		newModel:    llm.NewChatModel,
		streams:     make(map[string]*event.Stream),
		keepStreams: defaultKeepStreams,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateRequest 创建任务请求
type CreateRequest struct {
	Mode       string
	ModelName  string
	APIKey     string
	BaseURL    string
	MaxWorkers int
	InputName  string
	Input      io.Reader
}

// Create 校验配置与数据集后在后台启动任务
// 配置错误返回 *model.ConfigError，数据集错误返回 *model.InputParseError，此时不会创建任务
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*model.Job, error) {
	id := uuid.New().String()
	jobCfg := s.jobConfig(id, req)
	if err := jobCfg.Validate(); err != nil {
		return nil, err
	}

	key := id + "/" + inputFileName
	if _, err := s.files.Save(ctx, &file.SaveRequest{Key: key, Reader: req.Input, Size: -1}); err != nil {
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}
	if err := s.checkInput(jobCfg.InputFile, req.InputName, jobCfg.Mode); err != nil {
		_ = s.files.Delete(ctx, key)
		return nil, err
	}

	job := &model.Job{
		ID:         id,
		Mode:       jobCfg.Mode,
		ModelName:  jobCfg.ModelName,
		BaseURL:    jobCfg.Credentials.BaseURL,
		InputName:  req.InputName,
		MaxWorkers: jobCfg.MaxWorkers,
		Status:     model.JobStatusPending,
	}
	if err := s.repo.Create(job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	stream := event.NewStream()
	s.mu.Lock()
	s.streams[id] = stream
	s.mu.Unlock()

	// 后台协程持有自己的副本
	running := *job
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(&running, jobCfg, stream)
	}()

	return job, nil
}

// checkInput 先快速检查前几行，再完整解析一遍，保证启动后不会因为格式问题失败
func (s *Service) checkInput(path, name string, mode model.Mode) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	if name == "" {
		name = inputFileName
	}
	if err := dataset.Preview(f, name, mode); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind upload: %w", err)
	}
	_, err = dataset.Decode(f, name, mode, 0)
	return err
}

func (s *Service) jobConfig(id string, req *CreateRequest) model.JobConfig {
	cfg := s.cfg.JobConfig()
	cfg.Mode = model.Mode(strings.TrimSpace(req.Mode))
	cfg.InputFile = s.files.Path(id + "/" + inputFileName)
	cfg.OutputDir = s.files.Path(id)
	if req.ModelName != "" {
		cfg.ModelName = req.ModelName
	}
	if req.APIKey != "" {
		cfg.Credentials.APIKey = req.APIKey
	}
	if req.BaseURL != "" {
		cfg.Credentials.BaseURL = req.BaseURL
	}
	if req.MaxWorkers != 0 {
		cfg.MaxWorkers = req.MaxWorkers
	}
	return cfg
}

// run 在后台执行任务，结束时更新状态并关闭事件流
func (s *Service) run(job *model.Job, cfg model.JobConfig, stream *event.Stream) {
	ctx := context.Background()
	logger := log.New(io.MultiWriter(stream, os.Stdout), "[job "+shortID(job.ID)+"] ", log.LstdFlags)

	now := time.Now()
	job.Status = model.JobStatusRunning
	job.StartedAt = &now
	s.save(job)

	rc := &pipeline.RunContext{
		Logger: logger,
		OnProgress: func(done, total int) {
			stream.Publish(event.EventProgress, fmt.Sprintf("%d/%d", done, total))
		},
	}

	res, err := s.execute(ctx, rc, cfg)
	finished := time.Now()
	job.CompletedAt = &finished
	if err != nil {
		logger.Printf("❌ job failed: %v", err)
		job.Status = model.JobStatusFailed
		job.ErrorMsg = err.Error()
		s.save(job)
		s.closeStream(job, stream)
		return
	}

	job.Status = model.JobStatusCompleted
	job.Items = res.Items
	job.Records = res.Records
	job.Failed = res.Failed
	job.Filtered = res.Filtered
	job.TabularPath = res.TabularPath
	job.LogPath = res.LogPath
	s.publish(ctx, logger, job)
	s.save(job)
	s.closeStream(job, stream)
}

// closeStream 结束事件流，并淘汰超出保留数量的旧流
// 已订阅的连接持有自己的通道，淘汰不影响它们读完
func (s *Service) closeStream(job *model.Job, stream *event.Stream) {
	stream.Close(string(job.Status))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = append(s.finished, job.ID)
	for len(s.finished) > s.keepStreams {
		delete(s.streams, s.finished[0])
		s.finished = s.finished[1:]
	}
}

func (s *Service) execute(ctx context.Context, rc *pipeline.RunContext, cfg model.JobConfig) (*pipeline.Result, error) {
	chatModel, err := s.newModel(ctx, llm.ChatModelConfig{
		ModelName: cfg.ModelName,
		APIKey:    cfg.Credentials.APIKey,
		BaseURL:   cfg.Credentials.BaseURL,
		Timeout:   time.Duration(s.cfg.LLM.Timeout) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	client := llm.NewClient(chatModel,
		llm.WithCallbackHandler(callback.NewLogger(rc.Logger, s.cfg.App.Debug)),
		llm.WithGuidedDecodingBackend(s.cfg.LLM.GuidedDecodingBackend),
	)
	stages := stage.New(client, s.prompts())
	return pipeline.Run(ctx, rc, cfg, stages)
}

func (s *Service) prompts() map[string]string {
	out := make(map[string]string, len(s.cfg.Agents))
	for name, agent := range s.cfg.Agents {
		out[name] = agent.SystemPrompt
	}
	return out
}

// publish 发布产物，失败只记录日志，本地文件仍可下载
func (s *Service) publish(ctx context.Context, logger *log.Logger, job *model.Job) {
	if s.publisher == nil {
		return
	}
	var err error
	if job.TabularURL, err = file.Publish(ctx, s.publisher, job.ID, job.TabularPath); err != nil {
		logger.Printf("failed to publish %s: %v", job.TabularPath, err)
	}
	if job.LogURL, err = file.Publish(ctx, s.publisher, job.ID, job.LogPath); err != nil {
		logger.Printf("failed to publish %s: %v", job.LogPath, err)
	}
}

func (s *Service) save(job *model.Job) {
	if err := s.repo.Update(job); err != nil {
		log.Printf("Warning: failed to update job %s: %v", job.ID, err)
	}
}

// Get 获取任务
func (s *Service) Get(ctx context.Context, id string) (*model.Job, error) {
	return s.repo.GetByID(id)
}

// List 分页列出任务
func (s *Service) List(ctx context.Context, page, size int) ([]*model.Job, int64, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return s.repo.List((page-1)*size, size)
}

// Stream 返回任务的事件流，进程重启前的任务没有事件流
func (s *Service) Stream(id string) (*event.Stream, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stream, ok := s.streams[id]
	return stream, ok
}

// Artifact 返回产物的本地路径，format 为 csv 或 jsonl
func (s *Service) Artifact(ctx context.Context, id, format string) (string, error) {
	job, err := s.repo.GetByID(id)
	if err != nil {
		return "", err
	}

	var path string
	switch format {
	case "csv":
		path = job.TabularPath
	case "jsonl", "":
		path = job.LogPath
	default:
		return "", &model.ConfigError{Field: "format", Reason: fmt.Sprintf("unsupported format %q", format)}
	}
	if path == "" || !job.Done() {
		return "", ErrArtifactNotReady
	}
	if _, err := os.Stat(path); err != nil {
		return "", ErrArtifactNotReady
	}
	return path, nil
}

// Wait 等待所有后台任务结束
func (s *Service) Wait() {
	s.wg.Wait()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

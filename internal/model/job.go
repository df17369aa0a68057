package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChunkStrategy 段落切分策略
type ChunkStrategy string

const (
	ChunkNone      ChunkStrategy = "none"      // 整段作为一个 chunk
	ChunkRecursive ChunkStrategy = "recursive" // 按字符长度递归切分
	ChunkLLM       ChunkStrategy = "llm"       // 由模型切分
)

// Chunking 切分配置
type Chunking struct {
	Strategy    ChunkStrategy `json:"strategy"`
	ChunkSize   int           `json:"chunk_size"`
	OverlapSize int           `json:"overlap_size"`
}

// Credentials 端点凭证
type Credentials struct {
	APIKey  string `json:"-"`
	BaseURL string `json:"base_url"`
}

// JobConfig 一次运行的配置，运行期间不可变
type JobConfig struct {
	Mode        Mode        `json:"mode"`
	InputFile   string      `json:"input_file"`
	OutputDir   string      `json:"output_dir"`
	ModelName   string      `json:"model_name"`
	MaxWorkers  int         `json:"max_workers"`
	Variants    int         `json:"variants"`
	Chunking    Chunking    `json:"chunking"`
	Credentials Credentials `json:"credentials"`
}

const (
	DefaultMaxWorkers = 8
	DefaultVariants   = 3
	MaxWorkersLimit   = 64
)

// Validate 校验配置；未知模式在此处而不是分发时被拒绝
func (c *JobConfig) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return &ConfigError{Field: "model_name", Reason: "is required"}
	}
	if c.Credentials.APIKey == "" {
		return &ConfigError{Field: "api_key", Reason: "is required"}
	}
	if strings.TrimSpace(c.InputFile) == "" {
		return &ConfigError{Field: "input_file", Reason: "is required"}
	}
	if c.MaxWorkers < 1 || c.MaxWorkers > MaxWorkersLimit {
		return &ConfigError{Field: "max_workers", Reason: fmt.Sprintf("must be within 1..%d, got %d", MaxWorkersLimit, c.MaxWorkers)}
	}
	if c.Variants < 1 || c.Variants > 3 {
		return &ConfigError{Field: "variants", Reason: fmt.Sprintf("must be within 1..3, got %d", c.Variants)}
	}
	switch c.Chunking.Strategy {
	case "", ChunkNone, ChunkLLM:
	case ChunkRecursive:
		if c.Chunking.ChunkSize <= 0 {
			return &ConfigError{Field: "chunking.chunk_size", Reason: "must be positive for recursive chunking"}
		}
		if c.Chunking.OverlapSize < 0 || c.Chunking.OverlapSize >= c.Chunking.ChunkSize {
			return &ConfigError{Field: "chunking.overlap_size", Reason: "must be within 0..chunk_size-1"}
		}
	default:
		return &ConfigError{Field: "chunking.strategy", Reason: fmt.Sprintf("unknown strategy %q", c.Chunking.Strategy)}
	}
	return nil
}

// ArtifactPaths 返回 <model>_<mode_tag>.csv 与 <model>_<mode_tag>.jsonl
func (c *JobConfig) ArtifactPaths() (csvPath, jsonlPath string) {
	base := strings.ReplaceAll(c.ModelName, "/", "-") + "_" + c.Mode.Tag()
	return filepath.Join(c.OutputDir, base+".csv"), filepath.Join(c.OutputDir, base+".jsonl")
}

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"   // 待执行
	JobStatusRunning   JobStatus = "running"   // 执行中
	JobStatusCompleted JobStatus = "completed" // 已完成
	JobStatusFailed    JobStatus = "failed"    // 失败
)

// Job Web 端提交的生成任务
type Job struct {
	ID         string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Mode       Mode      `json:"mode" gorm:"type:varchar(20);not null;index"`
	ModelName  string    `json:"model_name" gorm:"type:varchar(255);not null"`
	BaseURL    string    `json:"base_url" gorm:"type:varchar(512)"`
	InputName  string    `json:"input_name" gorm:"type:varchar(255)"`
	MaxWorkers int       `json:"max_workers"`
	Status     JobStatus `json:"status" gorm:"type:varchar(20);default:'pending'"`

	// 运行结果
	Items       int    `json:"items" gorm:"default:0"`
	Records     int    `json:"records" gorm:"default:0"`
	Failed      int    `json:"failed" gorm:"default:0"`
	Filtered    int    `json:"filtered" gorm:"default:0"`
	TabularPath string `json:"tabular_path,omitempty" gorm:"type:varchar(1024)"`
	LogPath     string `json:"log_path,omitempty" gorm:"type:varchar(1024)"`
	TabularURL  string `json:"tabular_url,omitempty" gorm:"type:varchar(1024)"`
	LogURL      string `json:"log_url,omitempty" gorm:"type:varchar(1024)"`
	ErrorMsg    string `json:"error_msg,omitempty" gorm:"type:text"`

	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// BeforeCreate GORM 钩子，创建前生成 UUID
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (Job) TableName() string {
	return "generation_jobs"
}

// Done 任务是否已结束
func (j *Job) Done() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

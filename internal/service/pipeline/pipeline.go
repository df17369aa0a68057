// Package pipeline 实现四种生成模式的并发流水线
// 每种模式对应一个 Pipeline 实现，由 New 在编译期确定的分支中选择
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/ashwinyue/next-augment/internal/model"
	"github.com/ashwinyue/next-augment/internal/service/stage"
)

// RunContext 一次运行的输出通道
// 日志和进度条都写到这里，而不是进程级的全局缓冲
type RunContext struct {
	Logger   *log.Logger
	Progress io.Writer // 进度条输出，nil 表示不显示

	// OnProgress 每完成一项调用一次，只在收集协程中调用
	OnProgress func(done, total int)

	// 日志与进度条共用输出，运行期间日志改由进度条容器打印在进度条上方
	logAboveBar bool
}

// NewRunContext 日志与进度都写入 w
func NewRunContext(w io.Writer) *RunContext {
	return &RunContext{Logger: log.New(w, "", log.LstdFlags), Progress: w, logAboveBar: true}
}

func (rc *RunContext) logger() *log.Logger {
	if rc == nil || rc.Logger == nil {
		return log.Default()
	}
	return rc.Logger
}

func (rc *RunContext) progress() io.Writer {
	if rc == nil {
		return os.Stderr
	}
	return rc.Progress
}

// Result 运行摘要
type Result struct {
	Mode        model.Mode    `json:"mode"`
	TabularPath string        `json:"tabular_path"`
	LogPath     string        `json:"log_path"`
	Items       int           `json:"items"`
	Records     int           `json:"records"`
	Failed      int           `json:"failed"`
	Filtered    int           `json:"filtered"`
	Duration    time.Duration `json:"duration"`
}

// Pipeline 一种生成模式
type Pipeline interface {
	Mode() model.Mode
	Run(ctx context.Context, rc *RunContext, job model.JobConfig) (*Result, error)
}

// New 按模式创建流水线，未知模式返回 *model.ConfigError
func New(mode model.Mode, stages *stage.Stages) (Pipeline, error) {
	switch mode {
	case model.ModeSingleSFT:
		return &sftPipeline{mode: mode, stages: stages}, nil
	case model.ModeMultiSFT:
		return &sftPipeline{mode: mode, stages: stages, multiTurn: true}, nil
	case model.ModeSingleAlign, model.ModeMultiAlign:
		return &alignmentPipeline{mode: mode, stages: stages}, nil
	}
	_, err := model.ParseMode(string(mode))
	return nil, err
}

// Run 校验配置并运行 job.Mode 对应的流水线
func Run(ctx context.Context, rc *RunContext, job model.JobConfig, stages *stage.Stages) (*Result, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	p, err := New(job.Mode, stages)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, rc, job)
}

func checkJob(mode model.Mode, job model.JobConfig) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if job.Mode != mode {
		return &model.ConfigError{Field: "mode", Reason: fmt.Sprintf("pipeline %s cannot run %s jobs", mode, job.Mode)}
	}
	return nil
}

// sftPipeline 单轮/多轮 SFT
type sftPipeline struct {
	mode      model.Mode
	stages    *stage.Stages
	multiTurn bool
}

func (p *sftPipeline) Mode() model.Mode { return p.mode }

func (p *sftPipeline) Run(ctx context.Context, rc *RunContext, job model.JobConfig) (*Result, error) {
	if err := checkJob(p.mode, job); err != nil {
		return nil, err
	}
	chunker, err := stage.NewChunker(ctx, job.Chunking, p.stages)
	if err != nil {
		return nil, err
	}

	var w worker = &singleSFTWorker{stages: p.stages, chunker: chunker}
	if p.multiTurn {
		w = &multiSFTWorker{stages: p.stages, chunker: chunker}
	}
	return drive(ctx, rc, job, w)
}

// alignmentPipeline 单轮/多轮对齐，输入行自带上下文与种子对话
type alignmentPipeline struct {
	mode   model.Mode
	stages *stage.Stages
}

func (p *alignmentPipeline) Mode() model.Mode { return p.mode }

func (p *alignmentPipeline) Run(ctx context.Context, rc *RunContext, job model.JobConfig) (*Result, error) {
	if err := checkJob(p.mode, job); err != nil {
		return nil, err
	}
	return drive(ctx, rc, job, newAlignmentWorker(p.stages, job.Variants))
}

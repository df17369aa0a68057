package pipeline

import (
	"context"
	"time"

	"github.com/ashwinyue/next-augment/internal/model"
	"github.com/ashwinyue/next-augment/internal/service/dataset"
	"github.com/ashwinyue/next-augment/internal/service/progress"
	"github.com/ashwinyue/next-augment/internal/service/sink"
	"golang.org/x/sync/errgroup"
)

// drive 加载数据集，按 MaxWorkers 限制并发提交每一行，并由单个收集者写出结果
// 数据集在发起任何 LLM 调用之前完整解析；单行失败只记录日志，不影响其他行
func drive(ctx context.Context, rc *RunContext, job model.JobConfig, w worker) (*Result, error) {
	start := time.Now()
	logger := rc.logger()

	rows, err := dataset.Load(job.InputFile, job.Mode)
	if err != nil {
		return nil, err
	}

	csvPath, logPath := job.ArtifactPaths()
	out, err := sink.Open(csvPath, logPath)
	if err != nil {
		return nil, err
	}

	logger.Printf("Running mode=%s items=%d workers=%d model=%s", job.Mode, len(rows), job.MaxWorkers, job.ModelName)

	results := make(chan ItemResult, job.MaxWorkers)
	go func() {
		var g errgroup.Group
		g.SetLimit(job.MaxWorkers)
		for i, row := range rows {
			g.Go(func() error {
				results <- w.Process(ctx, i, row)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	res := &Result{Mode: job.Mode, TabularPath: csvPath, LogPath: logPath, Items: len(rows)}
	bar := progress.New(rc.progress(), job.Mode.Label(), len(rows))
	output := logger.Writer()
	if rc != nil && rc.logAboveBar {
		logger.SetOutput(bar.Writer())
	}
	done := 0
	for r := range results {
		collect(logger, out, res, r)
		bar.Increment()
		done++
		if rc != nil && rc.OnProgress != nil {
			rc.OnProgress(done, len(rows))
		}
	}
	bar.Wait()
	// 进度条结束后容器不再接受写入
	logger.SetOutput(output)

	if err := out.Close(); err != nil {
		return nil, err
	}
	res.Records = out.Count()
	res.Duration = time.Since(start)

	logger.Printf("✅ %s: %d records from %d items (%d failed, %d filtered) -> %s / %s",
		job.Mode, res.Records, res.Items, res.Failed, res.Filtered, csvPath, logPath)
	return res, nil
}

// collect 只在收集协程中调用
func collect(logger printer, out *sink.DualSink, res *Result, r ItemResult) {
	for _, rec := range r.Records {
		if err := out.Append(rec); err != nil {
			logger.Printf("item %d: failed to write record: %v", r.Index, err)
		}
	}
	switch {
	case r.Err != nil:
		res.Failed++
		logger.Printf("item %d failed: %v", r.Index, r.Err)
	case r.Filtered:
		res.Filtered++
	}
}

type printer interface {
	Printf(format string, v ...interface{})
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashwinyue/next-augment/internal/service/callback"
	"github.com/ashwinyue/next-augment/internal/service/file"
	"github.com/ashwinyue/next-augment/internal/service/llm"
	"github.com/ashwinyue/next-augment/internal/service/pipeline"
	"github.com/ashwinyue/next-augment/internal/service/stage"
)

// runCommand 运行一次生成任务
// 只要配置和输入校验通过就返回 nil，单条失败只体现在摘要里
func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := configFlag(fs)
	mode := fs.String("mode", "", "generation mode: single-sft | multi-sft | single-align | multi-align")
	input := fs.String("input", "", "input JSON-Lines file")
	output := fs.String("output", "", "output directory")
	modelName := fs.String("model", "", "model name")
	apiKey := fs.String("api-key", "", "API key (defaults to LLM_API_KEY)")
	baseURL := fs.String("base-url", "", "OpenAI-compatible base URL")
	workers := fs.Int("workers", 0, "max concurrent items")
	variants := fs.Int("variants", 0, "rejected variants per alignment turn (1-3)")
	chunking := fs.String("chunking", "", "chunking strategy for SFT modes: none | recursive | llm")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	setIf(&cfg.Job.Mode, *mode)
	setIf(&cfg.Job.InputFile, *input)
	setIf(&cfg.Job.OutputDir, *output)
	setIf(&cfg.LLM.ModelName, *modelName)
	setIf(&cfg.LLM.APIKey, *apiKey)
	setIf(&cfg.LLM.BaseURL, *baseURL)
	setIf(&cfg.Job.Chunking.Strategy, *chunking)
	if *workers > 0 {
		cfg.Job.MaxWorkers = *workers
	}
	if *variants > 0 {
		cfg.Job.Variants = *variants
	}

	jobCfg := cfg.JobConfig()
	if err := jobCfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	chatModel, err := llm.NewChatModel(ctx, llm.ChatModelConfig{
		ModelName: jobCfg.ModelName,
		APIKey:    jobCfg.Credentials.APIKey,
		BaseURL:   jobCfg.Credentials.BaseURL,
		Timeout:   time.Duration(cfg.LLM.Timeout) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create chat model: %w", err)
	}

	rc := pipeline.NewRunContext(os.Stdout)
	client := llm.NewClient(chatModel,
		llm.WithCallbackHandler(callback.NewLogger(rc.Logger, cfg.App.Debug)),
		llm.WithGuidedDecodingBackend(cfg.LLM.GuidedDecodingBackend),
	)
	prompts := make(map[string]string, len(cfg.Agents))
	for name, agent := range cfg.Agents {
		prompts[name] = agent.SystemPrompt
	}

	res, err := pipeline.Run(ctx, rc, jobCfg, stage.New(client, prompts))
	if err != nil {
		return err
	}

	publisher, err := file.NewPublisher(ctx, cfg.Storage)
	if err != nil {
		rc.Logger.Printf("Warning: artifacts not published: %v", err)
	} else if publisher != nil {
		for _, path := range []string{res.TabularPath, res.LogPath} {
			url, err := file.Publish(ctx, publisher, "cli", path)
			if err != nil {
				rc.Logger.Printf("Warning: failed to publish %s: %v", path, err)
				continue
			}
			rc.Logger.Printf("Published %s", url)
		}
	}

	summary, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(summary))
	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/ashwinyue/next-augment/internal/service/llm"
)

// pingCommand 用一个 1 token 的请求检查端点
func pingCommand(args []string) error {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)
	configPath := configFlag(fs)
	modelName := fs.String("model", "", "model name")
	apiKey := fs.String("api-key", "", "API key")
	baseURL := fs.String("base-url", "", "OpenAI-compatible base URL")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	setIf(&cfg.LLM.ModelName, *modelName)
	setIf(&cfg.LLM.APIKey, *apiKey)
	setIf(&cfg.LLM.BaseURL, *baseURL)

	status := llm.Ping(context.Background(), nil, cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.ModelName)
	if !status.OK {
		return fmt.Errorf("endpoint %s is not healthy: %s", cfg.LLM.BaseURL, status.Message)
	}
	fmt.Printf("✅ %s\n", status.Message)
	return nil
}

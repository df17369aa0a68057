// Package llm 封装结构化的 LLM 调用
// 基于 eino ChatModel：一次调用 = 一条 system 消息 + 一条 user 消息，
// 通过 response_format 约束输出结构，并把响应解析为期望的对象
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// ChatModelConfig OpenAI 兼容端点配置
type ChatModelConfig struct {
	ModelName string
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
}

// NewChatModel 创建 OpenAI 兼容的 ChatModel（vLLM、OpenAI 等）
func NewChatModel(ctx context.Context, cfg ChatModelConfig) (model.BaseChatModel, error) {
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for model: %s", cfg.ModelName)
	}

	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.ModelName,
		Timeout: cfg.Timeout,
	})
}

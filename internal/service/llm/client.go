package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ashwinyue/next-augment/internal/model"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/kaptinlin/jsonrepair"
)

const (
	taskPrefix = "Now, do the task for the following: \n"
	admonition = "\nDon't deviate from the instructions otherwise you will be penalized heavily."
)

// Request 一次 LLM 调用
type Request struct {
	Stage        string  // 阶段名，用于日志和错误
	SystemPrompt string  // 阶段角色提示词
	Payload      string  // 本次任务数据
	Temperature  float32 // 采样温度
	Schema       *Schema // 期望的输出结构，Complete 不使用
}

// Client 结构化 LLM 调用客户端
// 只依赖 BaseChatModel，测试中可替换为 mock
type Client struct {
	chatModel einomodel.BaseChatModel
	handler   callbacks.Handler
	backend   string
}

// Option Client 配置项
type Option func(*Client)

// WithCallbackHandler 每次调用挂载的回调处理器
func WithCallbackHandler(h callbacks.Handler) Option {
	return func(c *Client) { c.handler = h }
}

// WithGuidedDecodingBackend vLLM 约束解码后端，空串表示不发送
func WithGuidedDecodingBackend(backend string) Option {
	return func(c *Client) { c.backend = backend }
}

// NewClient 创建客户端
func NewClient(chatModel einomodel.BaseChatModel, opts ...Option) *Client {
	c := &Client{chatModel: chatModel}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke 发起一次结构化调用并把结果解析到 out
// 传输失败返回 *model.TransportError；输出不符合结构返回 *model.SchemaViolation
func (c *Client) Invoke(ctx context.Context, req Request, out interface{}) error {
	if req.Schema == nil {
		return fmt.Errorf("stage %s: schema is required", req.Stage)
	}
	format, err := req.Schema.responseFormat()
	if err != nil {
		return err
	}

	extra := map[string]any{"response_format": format}
	if c.backend != "" {
		extra["guided_decoding_backend"] = c.backend
	}

	content, err := c.generate(ctx, req, openai.WithExtraFields(extra))
	if err != nil {
		return err
	}
	return Decode(req.Stage, content, req.Schema, out)
}

// Complete 发起一次不约束结构的调用，返回原始文本
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	return c.generate(ctx, req)
}

func (c *Client) generate(ctx context.Context, req Request, extra ...einomodel.Option) (string, error) {
	if c.handler != nil {
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      req.Stage,
			Type:      "OpenAI",
			Component: components.ComponentOfChatModel,
		}, c.handler)
	}

	messages := []*schema.Message{
		schema.SystemMessage(req.SystemPrompt),
		schema.UserMessage(taskPrefix + req.Payload + admonition),
	}
	opts := append([]einomodel.Option{einomodel.WithTemperature(req.Temperature)}, extra...)

	resp, err := c.chatModel.Generate(ctx, messages, opts...)
	if err != nil {
		return "", &model.TransportError{Stage: req.Stage, Err: err}
	}
	if resp == nil {
		return "", &model.TransportError{Stage: req.Stage, Err: errors.New("empty response")}
	}
	return resp.Content, nil
}

// Decode 把模型输出解析为期望结构
// 先直接解析，失败时用 jsonrepair 修复一次；必填字段缺失或为 null 视为违反结构
func Decode(stage, content string, s *Schema, out interface{}) error {
	raw := extractJSON(content)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(raw)
		if rerr != nil {
			return &model.SchemaViolation{Stage: stage, Raw: content, Err: err}
		}
		if err := json.Unmarshal([]byte(repaired), &fields); err != nil {
			return &model.SchemaViolation{Stage: stage, Raw: content, Err: err}
		}
		raw = repaired
	}

	if path := missingIn(fields, s.Fields, ""); path != "" {
		return &model.SchemaViolation{Stage: stage, Raw: content, Err: fmt.Errorf("missing field %q", path)}
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &model.SchemaViolation{Stage: stage, Raw: content, Err: err}
	}
	return nil
}

// missingIn 返回第一个缺失或为 null 的必填字段路径（如 qa_pairs[0].answer），空串表示完整
// 类型不符不在这里判断，交给最终的 Unmarshal
func missingIn(obj map[string]json.RawMessage, params map[string]*schema.ParameterInfo, prefix string) string {
	for _, name := range requiredNames(params) {
		if v, ok := obj[name]; !ok || string(v) == "null" {
			return prefix + name
		}
	}
	for name, info := range params {
		v, ok := obj[name]
		if !ok {
			continue
		}
		if path := missingNested(v, info, prefix+name); path != "" {
			return path
		}
	}
	return ""
}

func missingNested(raw json.RawMessage, info *schema.ParameterInfo, path string) string {
	if info == nil {
		return ""
	}
	switch info.Type {
	case schema.Object:
		if len(info.SubParams) == 0 {
			return ""
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return ""
		}
		return missingIn(obj, info.SubParams, path+".")
	case schema.Array:
		if info.ElemInfo == nil {
			return ""
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return ""
		}
		for i, item := range items {
			if p := missingNested(item, info.ElemInfo, fmt.Sprintf("%s[%d]", path, i)); p != "" {
				return p
			}
		}
	}
	return ""
}

// extractJSON 去掉 markdown 代码块，截取最外层对象
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "{") {
		return s
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Call 一次被记录的调用
type Call struct {
	System      string
	User        string
	Temperature float32
}

// Responder 根据 system/user 消息返回模型输出
type Responder func(system, user string) (string, error)

// ChatModel 并发安全的 mock ChatModel
type ChatModel struct {
	mu      sync.Mutex
	respond Responder
	calls   []Call
}

// NewChatModel 创建 mock，respond 决定每次调用的输出
func NewChatModel(respond Responder) *ChatModel {
	return &ChatModel{respond: respond}
}

// Fixed 对所有调用返回同一个输出
func Fixed(content string) *ChatModel {
	return NewChatModel(func(string, string) (string, error) { return content, nil })
}

// Failing 所有调用都返回 err
func Failing(err error) *ChatModel {
	return NewChatModel(func(string, string) (string, error) { return "", err })
}

// ByPrompt 按 system prompt 中包含的关键字选择输出，未匹配时返回错误
func ByPrompt(outputs map[string]string) *ChatModel {
	return NewChatModel(func(system, _ string) (string, error) {
		for key, out := range outputs {
			if strings.Contains(system, key) {
				return out, nil
			}
		}
		return "", errors.New("no scripted response for prompt")
	})
}

func (m *ChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	var c Call
	for _, msg := range messages {
		switch msg.Role {
		case schema.System:
			c.System = msg.Content
		case schema.User:
			c.User = msg.Content
		}
	}
	if o := model.GetCommonOptions(nil, opts...); o.Temperature != nil {
		c.Temperature = *o.Temperature
	}

	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := m.respond(c.System, c.User)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(out, nil), nil
}

func (m *ChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

// Calls 返回已记录调用的副本
func (m *ChatModel) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount 已发生的调用次数
func (m *ChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

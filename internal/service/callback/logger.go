// Package callback 提供 Eino Callback 日志支持
// 每次运行使用自己的 *log.Logger，多个任务并发时日志互不干扰
package callback

import (
	"context"
	"log"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const maxLogLen = 200

// Logger 日志回调处理器
// 实现 callbacks.Handler 接口，记录 ChatModel 调用的开始、结束和错误
type Logger struct {
	EnableDebug bool
	out         *log.Logger
}

// NewLogger 创建日志回调处理器，out 为 nil 时写入标准 log
func NewLogger(out *log.Logger, enableDebug bool) *Logger {
	if out == nil {
		out = log.Default()
	}
	return &Logger{EnableDebug: enableDebug, out: out}
}

// OnStart 调用开始
func (l *Logger) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if l.EnableDebug {
		l.out.Printf("[LLM] start: stage=%s messages=%d", info.Name, countMessages(input))
	}
	return ctx
}

// OnEnd 调用成功结束
func (l *Logger) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	if !l.EnableDebug {
		return ctx
	}
	if out := model.ConvCallbackOutput(output); out != nil && out.Message != nil {
		l.out.Printf("[LLM] end: stage=%s output=%s", info.Name, truncate(out.Message.Content))
		return ctx
	}
	l.out.Printf("[LLM] end: stage=%s", info.Name)
	return ctx
}

// OnError 调用出错，总是记录
func (l *Logger) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	l.out.Printf("[LLM] error: stage=%s error=%v", info.Name, err)
	return ctx
}

// OnStartWithStreamInput 流式输入开始
func (l *Logger) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo, input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}

// OnEndWithStreamOutput 流式输出结束
func (l *Logger) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	return ctx
}

func countMessages(input callbacks.CallbackInput) int {
	in := model.ConvCallbackInput(input)
	if in == nil {
		return 0
	}
	return len(in.Messages)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) > maxLogLen {
		return string(r[:maxLogLen]) + "..."
	}
	return s
}

package model

import (
	"fmt"
)

// ConfigError 配置错误，任务开始前即失败
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// InputParseError 输入文件不是合法的 JSON-Lines，提交任何 worker 之前即失败
type InputParseError struct {
	Path string
	Line int // 从 1 开始；0 表示与具体行无关
	Err  error
}

func (e *InputParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s could not be parsed as JSON-Lines (line %d): %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s could not be parsed as JSON-Lines: %v", e.Path, e.Err)
}

func (e *InputParseError) Unwrap() error { return e.Err }

// SchemaViolation 模型输出无法解析为期望的结构
type SchemaViolation struct {
	Stage string
	Raw   string
	Err   error
}

func (e *SchemaViolation) Error() string {
	return fmt.Sprintf("stage %s: response violates schema: %v", e.Stage, e.Err)
}

func (e *SchemaViolation) Unwrap() error { return e.Err }

// TransportError 调用 LLM 端点失败（网络、超时、非 2xx）
type TransportError struct {
	Stage string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stage %s: llm call failed: %v", e.Stage, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Package stage 提供流水线的各个 LLM 阶段
// 每个阶段是一次结构化调用的薄封装：固定提示词、固定输出结构、固定温度
package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashwinyue/next-augment/internal/model"
	"github.com/ashwinyue/next-augment/internal/service/llm"
)

// 多轮对话生成使用较高温度以增加多样性，其余阶段均为 0
const conversationTemperature float32 = 0.7

// Invoker 结构化 LLM 调用
type Invoker interface {
	Invoke(ctx context.Context, req llm.Request, out interface{}) error
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Persona 对抗人设
type Persona struct {
	Name   string
	Prompt string
}

// AdversarialRequest 对抗回答的输入
type AdversarialRequest struct {
	Context  string
	History  []model.Turn
	Question string
	Answer   string
}

// Stages 全部阶段
type Stages struct {
	llm     Invoker
	prompts map[string]string
}

// New 创建阶段集合，overrides 中非空的提示词覆盖内置提示词
func New(invoker Invoker, overrides map[string]string) *Stages {
	prompts := make(map[string]string, len(defaultPrompts))
	for name, p := range defaultPrompts {
		prompts[name] = p
	}
	for name, p := range overrides {
		if strings.TrimSpace(p) != "" {
			prompts[strings.ToLower(name)] = p
		}
	}
	return &Stages{llm: invoker, prompts: prompts}
}

// Personas 按下标顺序返回三个对抗人设
func (s *Stages) Personas() []Persona {
	names := []string{PersonaIrrelevant, PersonaIncorrectFacts, PersonaOffensiveTone}
	personas := make([]Persona, len(names))
	for i, name := range names {
		personas[i] = Persona{Name: name, Prompt: s.prompts[name]}
	}
	return personas
}

// SplitChunks 把长文本切分为若干块
func (s *Stages) SplitChunks(ctx context.Context, passage string) ([]string, error) {
	var out struct {
		Chunks []string `json:"chunks"`
	}
	if err := s.llm.Invoke(ctx, llm.Request{
		Stage:        Chunker,
		SystemPrompt: s.prompts[Chunker],
		Payload:      "Chunk: " + passage,
		Schema:       llm.ChunkerSchema,
	}, &out); err != nil {
		return nil, err
	}
	return out.Chunks, nil
}

// ValidateContext 判断文本块是否值得生成问答
func (s *Stages) ValidateContext(ctx context.Context, chunk string) (bool, error) {
	var out struct {
		IsRelevant bool `json:"is_relevant"`
	}
	if err := s.llm.Invoke(ctx, llm.Request{
		Stage:        ContextValidator,
		SystemPrompt: s.prompts[ContextValidator],
		Payload:      "Chunk: " + chunk,
		Schema:       llm.ContextValidatorSchema,
	}, &out); err != nil {
		return false, err
	}
	return out.IsRelevant, nil
}

// GenerateQA 基于文本块生成问答对
func (s *Stages) GenerateQA(ctx context.Context, chunk string) ([]model.QAPair, error) {
	var out struct {
		QAPairs []model.QAPair `json:"qa_pairs"`
	}
	if err := s.llm.Invoke(ctx, llm.Request{
		Stage:        Generator,
		SystemPrompt: s.prompts[Generator],
		Payload:      "Chunk: " + chunk,
		Schema:       llm.GeneratorSchema,
	}, &out); err != nil {
		return nil, err
	}
	return out.QAPairs, nil
}

// ValidateQA 校验问答对是否正确且与文本块一致
func (s *Stages) ValidateQA(ctx context.Context, pair model.QAPair, chunk string) (bool, error) {
	var out struct {
		IsValid bool `json:"is_valid"`
	}
	payload := fmt.Sprintf("Question: %s\nAnswer: %s\nChunk: %s", pair.Question, pair.Answer, chunk)
	if err := s.llm.Invoke(ctx, llm.Request{
		Stage:        QAValidator,
		SystemPrompt: s.prompts[QAValidator],
		Payload:      payload,
		Schema:       llm.QAValidatorSchema,
	}, &out); err != nil {
		return false, err
	}
	return out.IsValid, nil
}

// GenerateConversation 基于上下文生成多轮对话
func (s *Stages) GenerateConversation(ctx context.Context, chunk string) (model.Conversation, error) {
	var out struct {
		Conversation model.Conversation `json:"conversation"`
	}
	if err := s.llm.Invoke(ctx, llm.Request{
		Stage:        MultiTurnGenerator,
		SystemPrompt: s.prompts[MultiTurnGenerator],
		Payload:      "Context: " + chunk,
		Temperature:  conversationTemperature,
		Schema:       llm.ConversationSchema,
	}, &out); err != nil {
		return nil, err
	}
	return out.Conversation, nil
}

// RespondAdversarially 以对抗人设回答问题，返回纯文本
func (s *Stages) RespondAdversarially(ctx context.Context, persona Persona, req AdversarialRequest) (string, error) {
	history, err := json.Marshal(req.History)
	if err != nil {
		return "", fmt.Errorf("failed to encode history: %w", err)
	}
	payload := fmt.Sprintf("Context: %s\n%s\nQuestion: %s\nCorrect Answer: %s\n",
		req.Context, history, req.Question, req.Answer)

	return s.llm.Complete(ctx, llm.Request{
		Stage:        persona.Name,
		SystemPrompt: persona.Prompt,
		Payload:      payload,
	})
}

package model

import (
	"encoding/json"
	"fmt"
)

// QAPair 问答对
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Conversation 多轮对话，顺序即轮次顺序
type Conversation []QAPair

// InputRow 输入数据集中的一行
// SFT 模式只使用 Text；对齐模式使用 Context 以及 Question/Answer 或 Conversation
type InputRow struct {
	Text         string       `json:"text,omitempty"`
	Context      string       `json:"context,omitempty"`
	Question     string       `json:"question,omitempty"`
	Answer       string       `json:"answer,omitempty"`
	Conversation Conversation `json:"conversation,omitempty"`
}

// SeedConversation 返回对齐模式的种子对话
// 单轮对齐输入由 question/answer 构造出只有一轮的对话
func (r InputRow) SeedConversation() Conversation {
	if len(r.Conversation) > 0 {
		return r.Conversation
	}
	return Conversation{{Question: r.Question, Answer: r.Answer}}
}

// Turn ShareGPT 风格的对话消息
type Turn struct {
	From  string `json:"from"`
	Value string `json:"value"`
}

const (
	TurnSystem = "system"
	TurnHuman  = "human"
	TurnGPT    = "gpt"
)

// Record 写入两个输出端的结果记录
type Record interface {
	// CSVHeader 表格导出的列名
	CSVHeader() []string
	// CSVRow 表格导出的一行，嵌套字段以 JSON 文本存放
	CSVRow() ([]string, error)
}

// SFTRecord 单轮 SFT 结果
type SFTRecord struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Context  string `json:"context"`
}

func (r *SFTRecord) CSVHeader() []string { return []string{"question", "answer", "context"} }

func (r *SFTRecord) CSVRow() ([]string, error) {
	return []string{r.Question, r.Answer, r.Context}, nil
}

// ConversationRecord 多轮 SFT 结果
type ConversationRecord struct {
	Context      string       `json:"context"`
	Conversation Conversation `json:"conversation"`
}

func (r *ConversationRecord) CSVHeader() []string { return []string{"context", "conversation"} }

func (r *ConversationRecord) CSVRow() ([]string, error) {
	conv, err := marshalCell(r.Conversation)
	if err != nil {
		return nil, err
	}
	return []string{r.Context, conv}, nil
}

// PreferenceRecord 偏好对：chosen 为标准答案，rejected 为对抗人设生成的答案
type PreferenceRecord struct {
	Conversations []Turn `json:"conversations"`
	Chosen        Turn   `json:"chosen"`
	Rejected      Turn   `json:"rejected"`
}

// AlignmentRecord 对齐模式结果
type AlignmentRecord struct {
	Context      string           `json:"context"`
	Conversation PreferenceRecord `json:"conversation"`
	Persona      string           `json:"persona,omitempty"`
}

func (r *AlignmentRecord) CSVHeader() []string {
	return []string{"context", "conversation", "persona"}
}

func (r *AlignmentRecord) CSVRow() ([]string, error) {
	conv, err := marshalCell(r.Conversation)
	if err != nil {
		return nil, err
	}
	return []string{r.Context, conv, r.Persona}, nil
}

func marshalCell(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode csv cell: %w", err)
	}
	return string(b), nil
}

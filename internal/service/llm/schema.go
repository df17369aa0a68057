package llm

import (
	"fmt"
	"sort"

	"github.com/cloudwego/eino/schema"
)

// Schema 期望的输出结构
// 字段描述复用 eino 的 ParameterInfo，再转换为 JSON Schema 交给端点做约束解码
type Schema struct {
	Name   string
	Fields map[string]*schema.ParameterInfo
}

// Required 必填字段名（排序后返回）
func (s *Schema) Required() []string {
	return requiredNames(s.Fields)
}

func requiredNames(params map[string]*schema.ParameterInfo) []string {
	names := make([]string, 0, len(params))
	for name, info := range params {
		if info != nil && info.Required {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// responseFormat 生成 OpenAI 风格的 response_format 字段
func (s *Schema) responseFormat() (map[string]interface{}, error) {
	js, err := schema.NewParamsOneOfByParams(s.Fields).ToJSONSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to build json schema for %s: %w", s.Name, err)
	}
	return map[string]interface{}{
		"type": "json_schema",
		"json_schema": map[string]interface{}{
			"name":   s.Name,
			"schema": js,
			"strict": true,
		},
	}, nil
}

// ========== 预定义结构 ==========

func qaPairInfo(desc string) *schema.ParameterInfo {
	return &schema.ParameterInfo{
		Type: schema.Object,
		Desc: desc,
		SubParams: map[string]*schema.ParameterInfo{
			"question": {Type: schema.String, Desc: "Question text", Required: true},
			"answer":   {Type: schema.String, Desc: "Answer text", Required: true},
		},
	}
}

// ChunkerSchema {chunks: [string]}
var ChunkerSchema = &Schema{
	Name: "ChunkerOutput",
	Fields: map[string]*schema.ParameterInfo{
		"chunks": {
			Type:     schema.Array,
			Desc:     "List of text chunks extracted from the input passage.",
			ElemInfo: &schema.ParameterInfo{Type: schema.String},
			Required: true,
		},
	},
}

// ContextValidatorSchema {is_relevant: bool}
var ContextValidatorSchema = &Schema{
	Name: "ContextValidatorOutput",
	Fields: map[string]*schema.ParameterInfo{
		"is_relevant": {
			Type:     schema.Boolean,
			Desc:     "True if the chunk contains important information, otherwise False.",
			Required: true,
		},
	},
}

// GeneratorSchema {qa_pairs: [{question, answer}]}
var GeneratorSchema = &Schema{
	Name: "GeneratorOutput",
	Fields: map[string]*schema.ParameterInfo{
		"qa_pairs": {
			Type:     schema.Array,
			Desc:     "List of generated question-answer pairs.",
			ElemInfo: qaPairInfo("Question grounded in the input text and its answer."),
			Required: true,
		},
	},
}

// QAValidatorSchema {is_valid: bool}
var QAValidatorSchema = &Schema{
	Name: "QAValidatorOutput",
	Fields: map[string]*schema.ParameterInfo{
		"is_valid": {
			Type:     schema.Boolean,
			Desc:     "True if the question is relevant, the answer is correct, and it aligns with the passage.",
			Required: true,
		},
	},
}

// ConversationSchema {conversation: [{question, answer}]}
var ConversationSchema = &Schema{
	Name: "ConversationOutput",
	Fields: map[string]*schema.ParameterInfo{
		"conversation": {
			Type:     schema.Array,
			Desc:     "A list of conversation questions and answers",
			ElemInfo: qaPairInfo("One user question and the AI answer."),
			Required: true,
		},
	},
}

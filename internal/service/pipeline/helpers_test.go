package pipeline

import (
	"context"

	"github.com/ashwinyue/next-augment/internal/service/llm"
	"github.com/ashwinyue/next-augment/internal/service/stage"
	"github.com/ashwinyue/next-augment/internal/testutil"
)

// 测试中用短提示词区分阶段
const (
	promptCtx  = "CTX"
	promptGen  = "GEN"
	promptQAV  = "QAV"
	promptConv = "CONV"
)

var personaPrompts = []string{"P0", "P1", "P2"}

func scriptedStages(respond testutil.Responder) (*stage.Stages, *testutil.ChatModel) {
	chatModel := testutil.NewChatModel(respond)
	return stage.New(llm.NewClient(chatModel), map[string]string{
		stage.ContextValidator:      promptCtx,
		stage.Generator:             promptGen,
		stage.QAValidator:           promptQAV,
		stage.MultiTurnGenerator:    promptConv,
		stage.PersonaIrrelevant:     personaPrompts[0],
		stage.PersonaIncorrectFacts: personaPrompts[1],
		stage.PersonaOffensiveTone:  personaPrompts[2],
	}), chatModel
}

// noChunk 整段作为一个上下文块
type noChunk struct{}

func (noChunk) Chunks(_ context.Context, text string) ([]string, error) {
	return []string{text}, nil
}

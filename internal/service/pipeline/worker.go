package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/ashwinyue/next-augment/internal/model"
	"github.com/ashwinyue/next-augment/internal/service/stage"
)

// ItemResult 单个输入行的处理结果
// Err 非空时 Records 仍可能包含部分成功的记录（对齐模式中各人设互相独立）
type ItemResult struct {
	Index    int
	Records  []model.Record
	Filtered bool // 没有错误但也没有产出（被校验过滤）
	Err      error
}

// SFTStages SFT 流水线依赖的阶段
type SFTStages interface {
	ValidateContext(ctx context.Context, chunk string) (bool, error)
	GenerateQA(ctx context.Context, chunk string) ([]model.QAPair, error)
	ValidateQA(ctx context.Context, pair model.QAPair, chunk string) (bool, error)
	GenerateConversation(ctx context.Context, chunk string) (model.Conversation, error)
}

// AlignmentStages 对齐流水线依赖的阶段
type AlignmentStages interface {
	Personas() []stage.Persona
	RespondAdversarially(ctx context.Context, persona stage.Persona, req stage.AdversarialRequest) (string, error)
}

// Chunker 把一行输入文本切成上下文块
type Chunker interface {
	Chunks(ctx context.Context, text string) ([]string, error)
}

// worker 处理一行输入，不返回 error，失败记录在 ItemResult 中
type worker interface {
	Process(ctx context.Context, index int, row model.InputRow) ItemResult
}

func finish(res ItemResult, records []model.Record, err error) ItemResult {
	if err != nil {
		res.Err = err
		return res
	}
	res.Records = records
	res.Filtered = len(records) == 0
	return res
}

// ========== 单轮 SFT ==========

// singleSFTWorker 上下文校验 → 生成问答 → 逐条校验
// 任一阶段出错时该行不产出任何记录
type singleSFTWorker struct {
	stages  SFTStages
	chunker Chunker
}

func (w *singleSFTWorker) Process(ctx context.Context, index int, row model.InputRow) ItemResult {
	res := ItemResult{Index: index}
	chunks, err := w.chunker.Chunks(ctx, row.Text)
	if err != nil {
		return finish(res, nil, err)
	}

	var records []model.Record
	for _, chunk := range chunks {
		out, err := w.processChunk(ctx, chunk)
		if err != nil {
			return finish(res, nil, err)
		}
		records = append(records, out...)
	}
	return finish(res, records, nil)
}

func (w *singleSFTWorker) processChunk(ctx context.Context, chunk string) ([]model.Record, error) {
	relevant, err := w.stages.ValidateContext(ctx, chunk)
	if err != nil {
		return nil, err
	}
	if !relevant {
		return nil, nil
	}

	pairs, err := w.stages.GenerateQA(ctx, chunk)
	if err != nil {
		return nil, err
	}

	var records []model.Record
	for _, pair := range pairs {
		valid, err := w.stages.ValidateQA(ctx, pair, chunk)
		if err != nil {
			return nil, err
		}
		if valid {
			records = append(records, &model.SFTRecord{Question: pair.Question, Answer: pair.Answer, Context: chunk})
		}
	}
	return records, nil
}

// ========== 多轮 SFT ==========

// multiSFTWorker 每个上下文块生成一段多轮对话，不做校验
type multiSFTWorker struct {
	stages  SFTStages
	chunker Chunker
}

func (w *multiSFTWorker) Process(ctx context.Context, index int, row model.InputRow) ItemResult {
	res := ItemResult{Index: index}
	chunks, err := w.chunker.Chunks(ctx, row.Text)
	if err != nil {
		return finish(res, nil, err)
	}

	var records []model.Record
	for _, chunk := range chunks {
		conv, err := w.stages.GenerateConversation(ctx, chunk)
		if err != nil {
			return finish(res, nil, err)
		}
		if len(conv) > 0 {
			records = append(records, &model.ConversationRecord{Context: chunk, Conversation: conv})
		}
	}
	return finish(res, records, nil)
}

// ========== 对齐 ==========

// alignmentWorker 依次尝试前 variants 个对抗人设
// 人设 id 对应的历史前缀长度为 len(conversation)-id-1，为负时跳过；
// 只有一轮的对话随机挑选人设，三种风格都能覆盖
type alignmentWorker struct {
	stages   AlignmentStages
	variants int
	pick     func(n int) int
}

func newAlignmentWorker(stages AlignmentStages, variants int) *alignmentWorker {
	return &alignmentWorker{stages: stages, variants: variants, pick: rand.IntN}
}

func (w *alignmentWorker) Process(ctx context.Context, index int, row model.InputRow) ItemResult {
	res := ItemResult{Index: index}
	conv := row.SeedConversation()
	personas := w.stages.Personas()

	var records []model.Record
	var errs []error
	for id := 0; id < w.variants && id < len(personas); id++ {
		prefixLen := len(conv) - id - 1
		if prefixLen < 0 {
			break
		}

		persona := personas[id]
		if len(conv) == 1 {
			persona = personas[w.pick(len(personas))]
		}

		rec, err := w.preferencePair(ctx, persona, row.Context, conv, prefixLen)
		if err != nil {
			errs = append(errs, fmt.Errorf("persona %s: %w", persona.Name, err))
			continue
		}
		records = append(records, rec)
	}

	res.Records = records
	res.Err = errors.Join(errs...)
	res.Filtered = len(records) == 0 && res.Err == nil
	return res
}

func (w *alignmentWorker) preferencePair(ctx context.Context, persona stage.Persona, passage string, conv model.Conversation, prefixLen int) (*model.AlignmentRecord, error) {
	history := make([]model.Turn, 0, 2*prefixLen+2)
	history = append(history, model.Turn{From: model.TurnSystem, Value: stage.AssistantSystemTurn})
	for _, pair := range conv[:prefixLen] {
		history = append(history,
			model.Turn{From: model.TurnHuman, Value: pair.Question},
			model.Turn{From: model.TurnGPT, Value: pair.Answer},
		)
	}
	target := conv[prefixLen]

	rejected, err := w.stages.RespondAdversarially(ctx, persona, stage.AdversarialRequest{
		Context:  passage,
		History:  history,
		Question: target.Question,
		Answer:   target.Answer,
	})
	if err != nil {
		return nil, err
	}

	conversations := append(history, model.Turn{From: model.TurnHuman, Value: target.Question})
	return &model.AlignmentRecord{
		Context: passage,
		Conversation: model.PreferenceRecord{
			Conversations: conversations,
			Chosen:        model.Turn{From: model.TurnGPT, Value: target.Answer},
			Rejected:      model.Turn{From: model.TurnGPT, Value: rejected},
		},
		Persona: persona.Name,
	}, nil
}

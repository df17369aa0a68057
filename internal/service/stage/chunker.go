package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashwinyue/next-augment/internal/model"
	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
)

// TextChunker 把一段输入文本切成若干个上下文块
type TextChunker struct {
	strategy model.ChunkStrategy
	splitter document.Transformer
	stages   *Stages
}

// NewChunker 按切分策略创建切分器
func NewChunker(ctx context.Context, cfg model.Chunking, stages *Stages) (*TextChunker, error) {
	c := &TextChunker{strategy: cfg.Strategy, stages: stages}
	switch cfg.Strategy {
	case "", model.ChunkNone:
		c.strategy = model.ChunkNone
	case model.ChunkRecursive:
		splitter, err := recursive.NewSplitter(ctx, &recursive.Config{
			ChunkSize:   cfg.ChunkSize,
			OverlapSize: cfg.OverlapSize,
			Separators:  []string{"\n\n", "\n", ". ", "。", "? ", "？", "! ", "！", " ", ""},
			KeepType:    recursive.KeepTypeNone,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create splitter: %w", err)
		}
		c.splitter = splitter
	case model.ChunkLLM:
		if stages == nil {
			return nil, fmt.Errorf("llm chunking requires stages")
		}
	default:
		return nil, &model.ConfigError{Field: "chunking.strategy", Reason: fmt.Sprintf("unknown strategy %q", cfg.Strategy)}
	}
	return c, nil
}

// Chunks 返回非空的上下文块
func (c *TextChunker) Chunks(ctx context.Context, text string) ([]string, error) {
	var chunks []string
	switch c.strategy {
	case model.ChunkRecursive:
		docs, err := c.splitter.Transform(ctx, []*schema.Document{{Content: text}})
		if err != nil {
			return nil, fmt.Errorf("splitter failed: %w", err)
		}
		for _, d := range docs {
			chunks = append(chunks, d.Content)
		}
	case model.ChunkLLM:
		out, err := c.stages.SplitChunks(ctx, text)
		if err != nil {
			return nil, err
		}
		chunks = out
	default:
		chunks = []string{text}
	}

	kept := chunks[:0]
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk) != "" {
			kept = append(kept, chunk)
		}
	}
	return kept, nil
}
